package domain_test

import (
	"testing"
	"time"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

func TestNewCobranca(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	c := domain.NewCobranca(&domain.CobrancaInput{
		Descricao: "Consultoria mensal",
		Valor:     2500,
		Cliente:   1,
	}, now)

	if c.Status || c.StatusPagamento != domain.StatusPendente {
		t.Errorf("new cobrança should start pending: %+v", c)
	}
	if !c.DataVencimento.Equal(now.AddDate(0, 0, 30)) {
		t.Errorf("due date = %v, want 30 days after issuance", c.DataVencimento)
	}
	if c.ValorPendente != 2500 || c.ValorPago != 0 {
		t.Errorf("amounts not initialized: pago=%v pendente=%v", c.ValorPago, c.ValorPendente)
	}
	if !domain.Consistent(c) {
		t.Error("new cobrança violates the bookkeeping invariant")
	}
}

func TestApplyPaymentPartialThenFull(t *testing.T) {
	c := domain.NewCobranca(&domain.CobrancaInput{Descricao: "x", Valor: 2500, Cliente: 1}, time.Now())

	c = domain.ApplyPayment(c, 1000)
	if c.StatusPagamento != domain.StatusParcial || c.Status {
		t.Errorf("after 1000 of 2500: %+v", c)
	}
	if !approx(c.ValorPago, 1000) || !approx(c.ValorPendente, 1500) {
		t.Errorf("amounts after partial: pago=%v pendente=%v", c.ValorPago, c.ValorPendente)
	}
	if !domain.Consistent(c) {
		t.Error("invariant broken after partial payment")
	}

	c = domain.ApplyPayment(c, 1500)
	if c.StatusPagamento != domain.StatusPago || !c.Status {
		t.Errorf("after full settlement: %+v", c)
	}
	if c.ValorPendente != 0 {
		t.Errorf("pendente = %v, want exactly 0", c.ValorPendente)
	}
	if !domain.Settled(c) {
		t.Error("settled cobrança not reported as settled")
	}
}

func TestApplyPaymentAbsorbsRoundingDrift(t *testing.T) {
	c := domain.NewCobranca(&domain.CobrancaInput{Descricao: "x", Valor: 0.3, Cliente: 1}, time.Now())

	c = domain.ApplyPayment(c, 0.1)
	c = domain.ApplyPayment(c, 0.2)

	if c.ValorPendente != 0 {
		t.Errorf("pendente = %v, want 0 within tolerance", c.ValorPendente)
	}
	if c.StatusPagamento != domain.StatusPago {
		t.Errorf("status = %v, want pago", c.StatusPagamento)
	}
}

func TestApplyPaymentKeepsInvariantOnExcessAmount(t *testing.T) {
	c := domain.NewCobranca(&domain.CobrancaInput{Descricao: "x", Valor: 100, Cliente: 1}, time.Now())

	c = domain.ApplyPayment(c, 150)

	if !domain.Consistent(c) {
		t.Errorf("invariant broken: pago=%v pendente=%v valor=%v", c.ValorPago, c.ValorPendente, c.Valor)
	}
	if !approx(c.ValorPago, 150) || !approx(c.ValorPendente, -50) {
		t.Errorf("excess must stay on the books: pago=%v pendente=%v", c.ValorPago, c.ValorPendente)
	}
	if !domain.Settled(c) {
		t.Error("overpaid cobrança should still report settled")
	}
}

func TestCheckOverdue(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := domain.NewCobranca(&domain.CobrancaInput{Descricao: "x", Valor: 100, Cliente: 1}, issued)

	before := issued.AddDate(0, 0, 29)
	if got := domain.CheckOverdue(c, before); got.StatusPagamento != domain.StatusPendente {
		t.Errorf("not yet due: %v", got.StatusPagamento)
	}

	after := issued.AddDate(0, 0, 31)
	if got := domain.CheckOverdue(c, after); got.StatusPagamento != domain.StatusVencido {
		t.Errorf("past due: %v", got.StatusPagamento)
	}

	paid := domain.ApplyPayment(c, 100)
	if got := domain.CheckOverdue(paid, after); got.StatusPagamento != domain.StatusPago {
		t.Errorf("paid cobrança must never go overdue: %v", got.StatusPagamento)
	}
}

func TestStatusLabelsAndColors(t *testing.T) {
	if domain.StatusLabel(domain.StatusParcial) != "Parcialmente Pago" {
		t.Error("wrong label for parcial")
	}
	if domain.StatusColor(domain.StatusVencido) != "#ef4444" {
		t.Error("wrong color for vencido")
	}
	if domain.StatusLabel("outro") != "Status Desconhecido" {
		t.Error("unknown status should have fallback label")
	}
}
