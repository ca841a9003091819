package p2c

import "fmt"

// Result is the outcome of a purchase or status query. Declines are results,
// not errors: Approved is false and Description carries the reason. Errors
// are reserved for conversations that never produced an interpretable answer.
type Result struct {
	Approved          bool     `json:"approved"`
	Code              string   `json:"code"`
	Description       string   `json:"description"`
	Control           string   `json:"control,omitempty"`
	Invoice           string   `json:"invoice,omitempty"`
	Sequence          string   `json:"sequence,omitempty"`
	Authorization     string   `json:"authorization,omitempty"`
	AuthorizationName string   `json:"authorization_name,omitempty"`
	Reference         string   `json:"reference,omitempty"`
	Terminal          string   `json:"terminal,omitempty"`
	Lot               string   `json:"lot,omitempty"`
	BankRIF           string   `json:"bank_rif,omitempty"`
	Affiliation       string   `json:"affiliation,omitempty"`
	State             string   `json:"state,omitempty"`
	Environment       string   `json:"environment"`
	VoucherLines      []string `json:"voucher,omitempty"`

	// Raw keeps every decoded field for callers that need bank-specific extras
	Raw Fields `json:"-"`
}

// resultFromFields maps a decoded <response> document onto a Result
func resultFromFields(fields Fields, env Environment) *Result {
	code := fields.GetOr("codigo", "")

	r := &Result{
		Approved:          IsApproved(code),
		Code:              code,
		Description:       fields.GetOr("descripcion", GetResponseCode(code).Description),
		Control:           fields.GetOr("control", ""),
		Invoice:           fields.GetOr("factura", ""),
		Sequence:          fields.GetOr("secuencia", ""),
		Authorization:     fields.GetOr("autorizacion", ""),
		AuthorizationName: fields.GetOr("nombreAutorizacion", ""),
		Reference:         fields.GetOr("referencia", ""),
		Terminal:          fields.GetOr("terminal", ""),
		Lot:               fields.GetOr("lote", ""),
		BankRIF:           fields.GetOr("rifBanco", ""),
		Affiliation:       fields.GetOr("afiliacion", ""),
		State:             fields.GetOr("estado", ""),
		Environment:       string(env),
		VoucherLines:      DecodeVoucher(fields),
		Raw:               fields,
	}

	return r
}

// accountNotRegisteredReason names the exact combination the bank refused, so
// the buyer knows which of the three inputs to fix
func accountNotRegisteredReason(phone, bankCode, cid string, env Environment) string {
	bank := bankCode
	if name, ok := BankName(bankCode); ok {
		bank = fmt.Sprintf("%s (%s)", name, bankCode)
	}
	return fmt.Sprintf(
		"La combinación de teléfono %s, banco %s y documento %s no está afiliada al servicio de pago P2C [%s]",
		phone, bank, cid, env,
	)
}
