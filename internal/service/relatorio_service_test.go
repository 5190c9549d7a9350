package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"
)

func newRelatorioService(t *testing.T, f *fixture) *service.RelatorioService {
	t.Helper()
	notas := newNotaService(t, f, nil)
	return service.NewRelatorioService(f.cobrancas, f.pagamentos, notas, observability.NewMetrics(), zap.NewNop())
}

func TestRelatorioPagamentosPorForma(t *testing.T) {
	f := newFixture(t)
	relatorios := newRelatorioService(t, f)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 5000)

	for _, p := range []struct {
		forma domain.FormaPagamento
		valor float64
	}{
		{domain.FormaPix, 1000},
		{domain.FormaPix, 500},
		{domain.FormaCartaoCredito, 2000},
	} {
		if _, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
			CobrancaID: cobranca.ID, FormaPagamento: p.forma, Valor: p.valor,
		}); err != nil {
			t.Fatalf("registrar: %v", err)
		}
	}

	rel, err := relatorios.Pagamentos(ctx, domain.FiltroPagamentos{})
	if err != nil {
		t.Fatalf("relatório: %v", err)
	}
	if rel.TotalPagamentos != 3 || rel.ValorTotal != 3500 {
		t.Errorf("totals: %+v", rel)
	}
	if !approxf(rel.TicketMedio, 3500.0/3.0) {
		t.Errorf("ticket médio = %v", rel.TicketMedio)
	}
	pix := rel.PorFormaPagamento[domain.FormaPix]
	if pix.Quantidade != 2 || pix.Valor != 1500 {
		t.Errorf("pix bucket: %+v", pix)
	}
}

func TestRelatorioPagamentosFiltros(t *testing.T) {
	f := newFixture(t)
	relatorios := newRelatorioService(t, f)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 5000)

	if _, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 1000,
	}); err != nil {
		t.Fatalf("registrar: %v", err)
	}
	p2, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaBoleto, Valor: 700,
	})
	if err != nil {
		t.Fatalf("registrar: %v", err)
	}
	if _, err := f.pagamentos.Cancelar(ctx, p2.ID, "boleto emitido em duplicidade"); err != nil {
		t.Fatalf("cancelar: %v", err)
	}

	confirmados, err := relatorios.Pagamentos(ctx, domain.FiltroPagamentos{
		Status: domain.PagamentoConfirmado,
	})
	if err != nil {
		t.Fatalf("relatório: %v", err)
	}
	if confirmados.TotalPagamentos != 1 || confirmados.ValorTotal != 1000 {
		t.Errorf("status filter: %+v", confirmados)
	}

	futuro, err := relatorios.Pagamentos(ctx, domain.FiltroPagamentos{
		Periodo: domain.Periodo{Inicio: time.Now().AddDate(1, 0, 0)},
	})
	if err != nil {
		t.Fatalf("relatório: %v", err)
	}
	if futuro.TotalPagamentos != 0 {
		t.Errorf("period filter leaked: %+v", futuro)
	}
}

func TestRelatorioFiscal(t *testing.T) {
	f := newFixture(t)
	notas := newNotaService(t, f, nil)
	relatorios := service.NewRelatorioService(f.cobrancas, f.pagamentos, notas, observability.NewMetrics(), zap.NewNop())
	ctx := context.Background()

	c1 := f.seedPaidCobranca(t, 1000)
	if _, err := notas.Emitir(ctx, notaInput(c1, 1000)); err != nil {
		t.Fatalf("emitir: %v", err)
	}

	rel, err := relatorios.Fiscal(ctx, domain.FiltroNotas{})
	if err != nil {
		t.Fatalf("relatório: %v", err)
	}
	if rel.TotalNotas != 1 || rel.ValorBrutoServicos != 1000 {
		t.Errorf("totals: %+v", rel)
	}
	if !approxf(rel.ValorTotalImpostos, 60) || !approxf(rel.ValorLiquido, 940) {
		t.Errorf("tax totals: impostos=%v liquido=%v", rel.ValorTotalImpostos, rel.ValorLiquido)
	}
	if !approxf(rel.Impostos.ISS, 24) {
		t.Errorf("ISS breakdown = %v, want 24", rel.Impostos.ISS)
	}
	simples := rel.PorRegime[domain.RegimeSimplesNacional]
	if simples.Quantidade != 1 || simples.ValorServicos != 1000 {
		t.Errorf("regime bucket: %+v", simples)
	}
	consultoria := rel.PorTipoServico["consultoria"]
	if consultoria.Quantidade != 1 {
		t.Errorf("tipo bucket: %+v", consultoria)
	}
}

func TestResumoGeral(t *testing.T) {
	f := newFixture(t)
	notas := newNotaService(t, f, nil)
	relatorios := service.NewRelatorioService(f.cobrancas, f.pagamentos, notas, observability.NewMetrics(), zap.NewNop())
	ctx := context.Background()

	c1 := f.seedPaidCobranca(t, 1000)
	if _, err := notas.Emitir(ctx, notaInput(c1, 1000)); err != nil {
		t.Fatalf("emitir: %v", err)
	}

	resumo, err := relatorios.ResumoGeral(ctx)
	if err != nil {
		t.Fatalf("resumo geral: %v", err)
	}
	if resumo.Cobrancas.TotalCobrancas != 1 || resumo.Cobrancas.ValorPago != 1000 {
		t.Errorf("cobranças: %+v", resumo.Cobrancas)
	}
	if resumo.Pagamentos.Total != 1 {
		t.Errorf("pagamentos: %+v", resumo.Pagamentos)
	}
	if resumo.Notas.Total != 1 || !approxf(resumo.Notas.ValorTotalImpostos, 60) {
		t.Errorf("notas: %+v", resumo.Notas)
	}
}

func approxf(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
