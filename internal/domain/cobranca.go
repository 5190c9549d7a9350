package domain

import (
	"math"
	"time"
)

// ============================================================
// Cobranças (charges)
// ============================================================

// StatusPagamento is the derived payment status of a cobrança.
type StatusPagamento string

const (
	StatusPendente StatusPagamento = "pendente"
	StatusParcial  StatusPagamento = "parcial"
	StatusPago     StatusPagamento = "pago"
	StatusVencido  StatusPagamento = "vencido"
)

// PrazoVencimento is how long after issuance a cobrança (and a nota fiscal) falls due.
const PrazoVencimento = 30 * 24 * time.Hour

// FloatTolerance bounds rounding drift in the valorPago/valorPendente bookkeeping.
const FloatTolerance = 1e-6

// Cobranca is a charge issued to a cliente.
//
// Invariants maintained by ApplyPayment and the service layer:
//   - ValorPago + ValorPendente == Valor (within FloatTolerance)
//   - Status == true exactly when ValorPendente <= 0
//   - StatusPagamento mirrors the paid amounts; "vencido" is a derived
//     override applied by CheckOverdue when the due date has passed.
//   - NotaFiscal may only be set once the cobrança is fully paid.
type Cobranca struct {
	ID              int64           `json:"id"`
	Data            time.Time       `json:"data"`
	Descricao       string          `json:"descricao"`
	Valor           float64         `json:"valor"`
	Cliente         int64           `json:"cliente"`
	TipoServico     string          `json:"tipoServico,omitempty"`
	Status          bool            `json:"status"`
	StatusPagamento StatusPagamento `json:"statusPagamento"`
	DataVencimento  time.Time       `json:"dataVencimento"`
	Pagamentos      []int64         `json:"pagamentos"`
	NotaFiscal      int64           `json:"notaFiscal,omitempty"`
	ValorPago       float64         `json:"valorPago"`
	ValorPendente   float64         `json:"valorPendente"`
}

// CobrancaInput is the plain-data payload used to create a cobrança.
type CobrancaInput struct {
	Descricao   string  `json:"descricao"`
	Valor       float64 `json:"valor"`
	Cliente     int64   `json:"cliente"`
	TipoServico string  `json:"tipoServico,omitempty"`
}

// ValidateCobranca collects validation messages for a cobrança payload.
func ValidateCobranca(in *CobrancaInput) []string {
	var erros []string
	if in.Descricao == "" {
		erros = append(erros, "Descrição é obrigatória")
	}
	if in.Valor <= 0 {
		erros = append(erros, "Valor deve ser maior que zero")
	}
	if in.Cliente == 0 {
		erros = append(erros, "Cliente é obrigatório")
	}
	return erros
}

// NewCobranca builds a pending cobrança issued now.
func NewCobranca(in *CobrancaInput, now time.Time) Cobranca {
	return Cobranca{
		Data:            now,
		Descricao:       in.Descricao,
		Valor:           in.Valor,
		Cliente:         in.Cliente,
		TipoServico:     in.TipoServico,
		Status:          false,
		StatusPagamento: StatusPendente,
		DataVencimento:  now.Add(PrazoVencimento),
		Pagamentos:      []int64{},
		ValorPago:       0,
		ValorPendente:   in.Valor,
	}
}

// ApplyPayment applies an amount against the cobrança and recomputes the
// derived financial fields. It mutates only the returned copy; persisting
// the result is the caller's responsibility.
func ApplyPayment(c Cobranca, amount float64) Cobranca {
	c.ValorPago += amount
	c.ValorPendente = c.Valor - c.ValorPago
	// Snap rounding drift to an exact settlement; anything beyond tolerance
	// stays on the books so ValorPago + ValorPendente == Valor always holds.
	if math.Abs(c.ValorPendente) <= FloatTolerance {
		c.ValorPago = c.Valor
		c.ValorPendente = 0
	}
	if c.ValorPendente <= FloatTolerance {
		c.Status = true
		c.StatusPagamento = StatusPago
	} else if c.ValorPago > 0 {
		c.StatusPagamento = StatusParcial
	}
	return c
}

// CheckOverdue derives the "vencido" override. Idempotent; a fully paid
// cobrança never becomes overdue.
func CheckOverdue(c Cobranca, now time.Time) Cobranca {
	if now.After(c.DataVencimento) && c.StatusPagamento != StatusPago {
		c.StatusPagamento = StatusVencido
	}
	return c
}

// Settled reports whether the cobrança is fully paid within tolerance.
func Settled(c Cobranca) bool {
	return c.ValorPendente <= FloatTolerance
}

// Consistent reports whether the monetary bookkeeping invariant holds.
func Consistent(c Cobranca) bool {
	return math.Abs(c.ValorPago+c.ValorPendente-c.Valor) <= FloatTolerance
}

// StatusLabel maps a payment status to its display label.
func StatusLabel(s StatusPagamento) string {
	switch s {
	case StatusPendente:
		return "Pendente"
	case StatusParcial:
		return "Parcialmente Pago"
	case StatusPago:
		return "Pago"
	case StatusVencido:
		return "Vencido"
	default:
		return "Status Desconhecido"
	}
}

// StatusColor maps a payment status to its display color.
func StatusColor(s StatusPagamento) string {
	switch s {
	case StatusPendente:
		return "#f59e0b"
	case StatusParcial:
		return "#3b82f6"
	case StatusPago:
		return "#10b981"
	case StatusVencido:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}
