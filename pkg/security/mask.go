// Package security holds helpers for keeping personal data out of logs.
// National ids and phone numbers ride through every purchase; log lines
// keep just enough of them to correlate a support case.
package security

// maskTail is how many trailing digits survive masking
const maskTail = 3

// MaskDigits replaces every digit except the last three with '*',
// leaving non-digit characters alone so the shape of a malformed value
// stays visible: "CI: 12.345.678" becomes "CI: **.***.678".
func MaskDigits(s string) string {
	total := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			total++
		}
	}
	if total <= maskTail {
		return s
	}

	out := []rune(s)
	toMask := total - maskTail
	for i, r := range out {
		if toMask == 0 {
			break
		}
		if r >= '0' && r <= '9' {
			out[i] = '*'
			toMask--
		}
	}
	return string(out)
}

// MaskIdentifier masks a national id, normalized or raw
func MaskIdentifier(cid string) string {
	return MaskDigits(cid)
}

// MaskPhone masks a phone number but keeps the operator prefix, which is
// what diagnostics actually need: "04121234567" becomes "0412****567".
func MaskPhone(phone string) string {
	masked := MaskDigits(phone)

	total := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			total++
		}
	}
	// Too short to keep a prefix without giving the number away
	if total < maskTail+5 {
		return masked
	}

	out := []rune(masked)
	src := []rune(phone)
	kept := 0
	for i := range out {
		if kept == 4 {
			break
		}
		if src[i] >= '0' && src[i] <= '9' {
			out[i] = src[i]
			kept++
		}
	}
	return string(out)
}
