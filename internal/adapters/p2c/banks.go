package p2c

import (
	"sort"
	"strings"

	"github.com/taquillave/p2c-gateway/internal/domain"
)

// Superintendencia bank codes with P2C coverage. The gateway rejects any
// code outside this catalog, so we fail fast before spending a roundtrip.
var banks = map[string]string{
	"0102": "Banco de Venezuela",
	"0104": "Venezolano de Crédito",
	"0105": "Banco Mercantil",
	"0108": "Banco Provincial",
	"0114": "Bancaribe",
	"0115": "Banco Exterior",
	"0128": "Banco Caroní",
	"0134": "Banesco",
	"0137": "Sofitasa",
	"0138": "Banco Plaza",
	"0146": "Bangente",
	"0151": "BFC Banco Fondo Común",
	"0156": "100% Banco",
	"0157": "DelSur",
	"0163": "Banco del Tesoro",
	"0166": "Banco Agrícola de Venezuela",
	"0168": "Bancrecer",
	"0169": "Mi Banco",
	"0171": "Banco Activo",
	"0172": "Bancamiga",
	"0173": "Banco Internacional de Desarrollo",
	"0174": "Banplus",
	"0175": "Banco Bicentenario",
	"0177": "Banfanb",
	"0191": "Banco Nacional de Crédito",
}

// NormalizeBankCode validates a bank code against the P2C catalog and returns
// its canonical 4-digit form
func NormalizeBankCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)

	// A dropped leading zero is the one slip worth tolerating
	if len(code) == 3 && isDigits(code) {
		code = "0" + code
	}

	if _, ok := banks[code]; !ok {
		return "", domain.NewDomainError(domain.ErrorCodeInvalidBankCode,
			"bank code is not in the P2C catalog").
			WithDetail("bank_code", raw)
	}

	return code, nil
}

// BankName returns the display name for a catalog bank code
func BankName(code string) (string, bool) {
	name, ok := banks[code]
	return name, ok
}

// BankCodes returns every catalog code, for diagnostics and CLI listings
func BankCodes() []string {
	codes := make([]string, 0, len(banks))
	for code := range banks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
