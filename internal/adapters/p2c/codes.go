package p2c

// Gateway result codes. 00 is the only success code; everything else is a
// decline with descripcion as the bank's reason.
const (
	CodeApproved             = "00"
	CodeAccountNotRegistered = "AG"
)

// ResponseCodeInfo contains detailed information about a gateway result code
type ResponseCodeInfo struct {
	Code        string
	Display     string
	Description string // Spanish, as shown to buyers
	IsApproved  bool
	IsRetriable bool // worth retrying with the same data later
}

var responseCodes = map[string]ResponseCodeInfo{
	"00": {
		Code:        "00",
		Display:     "APROBADA",
		Description: "Transacción aprobada",
		IsApproved:  true,
	},
	"01": {
		Code:        "01",
		Display:     "RECHAZADA",
		Description: "Transacción rechazada por el banco emisor",
	},
	"05": {
		Code:        "05",
		Display:     "NEGADA",
		Description: "Transacción negada",
	},
	"13": {
		Code:        "13",
		Display:     "MONTO INVALIDO",
		Description: "Monto de la transacción inválido",
	},
	"30": {
		Code:        "30",
		Display:     "ERROR DE FORMATO",
		Description: "Error de formato en la solicitud",
	},
	"51": {
		Code:        "51",
		Display:     "FONDOS INSUFICIENTES",
		Description: "Fondos insuficientes en la cuenta del cliente",
		IsRetriable: true,
	},
	"55": {
		Code:        "55",
		Display:     "CLAVE ERRADA",
		Description: "Clave de pago incorrecta",
		IsRetriable: true,
	},
	"56": {
		Code:        "56",
		Display:     "CUENTA INVALIDA",
		Description: "Cuenta del cliente no válida",
	},
	"61": {
		Code:        "61",
		Display:     "EXCEDE MONTO",
		Description: "Excede el límite de monto permitido",
	},
	"65": {
		Code:        "65",
		Display:     "EXCEDE OPERACIONES",
		Description: "Excede el límite de operaciones diarias",
		IsRetriable: true,
	},
	"91": {
		Code:        "91",
		Display:     "BANCO FUERA DE LINEA",
		Description: "Banco emisor fuera de servicio",
		IsRetriable: true,
	},
	"94": {
		Code:        "94",
		Display:     "DUPLICADA",
		Description: "Transacción duplicada",
	},
	"96": {
		Code:        "96",
		Display:     "ERROR DE SISTEMA",
		Description: "Error general del sistema",
		IsRetriable: true,
	},
	"AG": {
		Code:        "AG",
		Display:     "NO AFILIADO",
		Description: "Cuenta no afiliada al servicio de pago P2C",
	},
}

// GetResponseCode retrieves result code information, with a safe default for
// codes the table doesn't know yet
func GetResponseCode(code string) ResponseCodeInfo {
	if info, exists := responseCodes[code]; exists {
		return info
	}
	return ResponseCodeInfo{
		Code:        code,
		Display:     "DESCONOCIDA",
		Description: "Respuesta no reconocida del gateway (" + code + ")",
	}
}

// IsApproved reports whether a gateway result code means the debit happened
func IsApproved(code string) bool {
	return code == CodeApproved
}
