package p2c

import "strings"

// The gateway renders receipt vouchers three different ways depending on the
// bank behind it: a <voucher> with repeated <linea> children, a <voucher>
// with a single <linea>, or a bare text voucher with newline-separated lines.
// All three collapse to the same []string here, at decode time.

// DecodeVoucher extracts the printable receipt lines from a decoded response.
// The placeholder character '_' means space; lines are trimmed and empty
// lines dropped. Returns nil when the response carries no voucher.
func DecodeVoucher(response Fields) []string {
	if lines, ok := response.Child("voucher"); ok {
		return normalizeLines(lines.Values("linea"))
	}

	if raw, ok := response.Get("voucher"); ok {
		return normalizeLines(strings.Split(raw, "\n"))
	}

	return nil
}

func normalizeLines(raw []string) []string {
	var out []string
	for _, line := range raw {
		line = strings.TrimSpace(strings.ReplaceAll(line, "_", " "))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
