package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ============================================================
// Pagamentos (payments applied against cobranças)
// ============================================================

// StatusPagamentoRegistro is the lifecycle status of a pagamento record.
// "confirmado" and "cancelado" are terminal.
type StatusPagamentoRegistro string

const (
	PagamentoPendente   StatusPagamentoRegistro = "pendente"
	PagamentoConfirmado StatusPagamentoRegistro = "confirmado"
	PagamentoCancelado  StatusPagamentoRegistro = "cancelado"
)

// FormaPagamento identifies a payment method.
type FormaPagamento string

const (
	FormaDinheiro      FormaPagamento = "dinheiro"
	FormaPix           FormaPagamento = "pix"
	FormaCartaoDebito  FormaPagamento = "cartao_debito"
	FormaCartaoCredito FormaPagamento = "cartao_credito"
	FormaBoleto        FormaPagamento = "boleto"
	FormaTransferencia FormaPagamento = "transferencia"
)

// taxasPorForma is the fixed fee percentage charged per payment method.
var taxasPorForma = map[FormaPagamento]float64{
	FormaDinheiro:      0,
	FormaPix:           0,
	FormaCartaoDebito:  1.5,
	FormaCartaoCredito: 3.5,
	FormaBoleto:        2.5,
	FormaTransferencia: 0,
}

// FormaPagamentoInfo describes a payment method for the collaborator's selects.
type FormaPagamentoInfo struct {
	Value FormaPagamento `json:"value"`
	Label string         `json:"label"`
	Taxa  float64        `json:"taxa"`
}

// FormasPagamento returns the catalog of supported payment methods.
func FormasPagamento() []FormaPagamentoInfo {
	return []FormaPagamentoInfo{
		{Value: FormaDinheiro, Label: "Dinheiro", Taxa: 0},
		{Value: FormaPix, Label: "PIX", Taxa: 0},
		{Value: FormaCartaoDebito, Label: "Cartão de Débito", Taxa: 1.5},
		{Value: FormaCartaoCredito, Label: "Cartão de Crédito", Taxa: 3.5},
		{Value: FormaBoleto, Label: "Boleto Bancário", Taxa: 2.5},
		{Value: FormaTransferencia, Label: "Transferência Bancária", Taxa: 0},
	}
}

// ValidForma reports whether the method is one of the supported catalog values.
func ValidForma(f FormaPagamento) bool {
	_, ok := taxasPorForma[f]
	return ok
}

// PaymentFee returns the fee charged for receiving amount through the method.
// Unknown methods charge nothing.
func PaymentFee(amount float64, forma FormaPagamento) float64 {
	return amount * taxasPorForma[forma] / 100
}

// NetAmount is the amount left after the method's fee.
func NetAmount(amount float64, forma FormaPagamento) float64 {
	return amount - PaymentFee(amount, forma)
}

// Pagamento is a single payment event against a cobrança. It never mutates
// the cobrança by itself; the payment engine recomputes and persists the
// cobrança in the same transaction.
type Pagamento struct {
	ID                     int64                   `json:"id"`
	CobrancaID             int64                   `json:"cobrancaId"`
	FormaPagamento         FormaPagamento          `json:"formaPagamento"`
	Valor                  float64                 `json:"valor"`
	Observacoes            string                  `json:"observacoes,omitempty"`
	Comprovante            string                  `json:"comprovante,omitempty"`
	IdentificadorPagamento string                  `json:"identificadorPagamento"`
	Taxa                   float64                 `json:"taxa"`
	ValorLiquido           float64                 `json:"valorLiquido"`
	DataPagamento          time.Time               `json:"dataPagamento"`
	DataRegistro           time.Time               `json:"dataRegistro"`
	Status                 StatusPagamentoRegistro `json:"status"`
	DataConfirmacao        *time.Time              `json:"dataConfirmacao,omitempty"`
	DataCancelamento       *time.Time              `json:"dataCancelamento,omitempty"`
	MotivoCancelamento     string                  `json:"motivoCancelamento,omitempty"`
}

// PagamentoInput is the plain-data payload used to register a pagamento.
type PagamentoInput struct {
	CobrancaID             int64          `json:"cobrancaId"`
	FormaPagamento         FormaPagamento `json:"formaPagamento"`
	Valor                  float64        `json:"valor"`
	Observacoes            string         `json:"observacoes,omitempty"`
	Comprovante            string         `json:"comprovante,omitempty"`
	IdentificadorPagamento string         `json:"identificadorPagamento,omitempty"`
}

// ValidatePagamento collects validation messages for a pagamento payload.
func ValidatePagamento(in *PagamentoInput) []string {
	var erros []string
	if in.CobrancaID == 0 {
		erros = append(erros, "Cobrança é obrigatória")
	}
	if in.FormaPagamento == "" {
		erros = append(erros, "Forma de pagamento é obrigatória")
	} else if !ValidForma(in.FormaPagamento) {
		erros = append(erros, "Forma de pagamento inválida")
	}
	if in.Valor <= 0 {
		erros = append(erros, "Valor deve ser maior que zero")
	}
	return erros
}

const identifierAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GeneratePaymentIdentifier builds a unique display identifier:
// "PAG" + millisecond timestamp + 6 random base-36 characters, uppercased.
func GeneratePaymentIdentifier(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = identifierAlphabet[rand.Intn(len(identifierAlphabet))]
	}
	return strings.ToUpper(fmt.Sprintf("PAG%d%s", now.UnixMilli(), suffix))
}

// FormatPaymentIdentifier renders the identifier as PAG-XXXX-XXXX-XXXX,
// grouping the first twelve characters after the prefix.
func FormatPaymentIdentifier(identificador string) string {
	id := strings.TrimPrefix(identificador, "PAG")
	for len(id) < 12 {
		id += "0"
	}
	return fmt.Sprintf("PAG-%s-%s-%s", id[0:4], id[4:8], id[8:12])
}

// MatchesIdentifier reports whether the lookup term matches the pagamento's
// raw identifier or its display-formatted form.
func MatchesIdentifier(p Pagamento, term string) bool {
	return p.IdentificadorPagamento == term || FormatPaymentIdentifier(p.IdentificadorPagamento) == term
}
