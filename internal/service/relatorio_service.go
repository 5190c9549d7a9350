package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
)

var relatorioTracer = otel.Tracer("service/relatorio")

// RelatorioService builds filtered reports and the dashboard aggregate on top
// of the entity services.
type RelatorioService struct {
	cobrancas  *CobrancaService
	pagamentos *PagamentoService
	notas      *NotaFiscalService
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewRelatorioService creates a new report service.
func NewRelatorioService(cobrancas *CobrancaService, pagamentos *PagamentoService, notas *NotaFiscalService, metrics *observability.Metrics, logger *zap.Logger) *RelatorioService {
	return &RelatorioService{
		cobrancas:  cobrancas,
		pagamentos: pagamentos,
		notas:      notas,
		metrics:    metrics,
		logger:     logger,
	}
}

// Pagamentos builds the filtered payment report. Cancelled payments never
// enter the monetary totals but are listed when the filter selects them.
func (s *RelatorioService) Pagamentos(ctx context.Context, filtro domain.FiltroPagamentos) (*domain.RelatorioPagamentos, error) {
	ctx, span := relatorioTracer.Start(ctx, "RelatorioService.Pagamentos")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("relatorio_pagamentos", time.Since(start)) }()

	todos, err := s.pagamentos.Listar(ctx)
	if err != nil {
		return nil, err
	}

	rel := &domain.RelatorioPagamentos{
		Periodo:           filtro.Periodo,
		PorFormaPagamento: make(map[domain.FormaPagamento]domain.GrupoPagamentos),
		Pagamentos:        make([]domain.Pagamento, 0),
	}
	for _, p := range todos {
		if !filtro.Matches(p) {
			continue
		}
		rel.Pagamentos = append(rel.Pagamentos, p)
		if p.Status == domain.PagamentoCancelado {
			continue
		}
		rel.TotalPagamentos++
		rel.ValorTotal += p.Valor

		grupo := rel.PorFormaPagamento[p.FormaPagamento]
		grupo.Quantidade++
		grupo.Valor += p.Valor
		rel.PorFormaPagamento[p.FormaPagamento] = grupo
	}
	if rel.TotalPagamentos > 0 {
		rel.TicketMedio = rel.ValorTotal / float64(rel.TotalPagamentos)
	}
	return rel, nil
}

// Fiscal builds the filtered fiscal report. Cancelled notas never enter the
// monetary totals but are listed when the filter selects them.
func (s *RelatorioService) Fiscal(ctx context.Context, filtro domain.FiltroNotas) (*domain.RelatorioFiscal, error) {
	ctx, span := relatorioTracer.Start(ctx, "RelatorioService.Fiscal")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("relatorio_fiscal", time.Since(start)) }()

	todas, err := s.notas.Listar(ctx)
	if err != nil {
		return nil, err
	}

	rel := &domain.RelatorioFiscal{
		Periodo:        filtro.Periodo,
		PorRegime:      make(map[domain.RegimeTributario]domain.GrupoRegime),
		PorTipoServico: make(map[string]domain.GrupoTipoServico),
		Notas:          make([]domain.NotaFiscal, 0),
	}
	for _, n := range todas {
		if !filtro.Matches(n) {
			continue
		}
		rel.Notas = append(rel.Notas, n)
		if n.Status == domain.NotaCancelada {
			continue
		}
		rel.TotalNotas++
		rel.ValorBrutoServicos += n.ValorServico
		rel.ValorTotalImpostos += n.Impostos.Total
		rel.ValorLiquido += n.ValorLiquido

		rel.Impostos.ISS += n.Impostos.ISS
		rel.Impostos.INSS += n.Impostos.INSS
		rel.Impostos.IR += n.Impostos.IR
		rel.Impostos.COFINS += n.Impostos.COFINS
		rel.Impostos.PIS += n.Impostos.PIS
		rel.Impostos.CSLL += n.Impostos.CSLL
		rel.Impostos.Total += n.Impostos.Total

		regime := rel.PorRegime[n.Regime]
		regime.Quantidade++
		regime.ValorServicos += n.ValorServico
		regime.ValorImpostos += n.Impostos.Total
		rel.PorRegime[n.Regime] = regime

		if n.TipoServico != "" {
			tipo := rel.PorTipoServico[n.TipoServico]
			tipo.Quantidade++
			tipo.ValorServicos += n.ValorServico
			rel.PorTipoServico[n.TipoServico] = tipo
		}
	}
	if rel.TotalNotas > 0 {
		rel.TicketMedio = rel.ValorBrutoServicos / float64(rel.TotalNotas)
	}
	return rel, nil
}

// ResumoGeral fans out over the three collections concurrently and assembles
// the dashboard aggregate.
func (s *RelatorioService) ResumoGeral(ctx context.Context) (*domain.ResumoGeral, error) {
	ctx, span := relatorioTracer.Start(ctx, "RelatorioService.ResumoGeral")
	defer span.End()

	resumo := &domain.ResumoGeral{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cobrancas, err := s.cobrancas.Resumo(gctx)
		if err != nil {
			return err
		}
		resumo.Cobrancas = *cobrancas
		return nil
	})
	g.Go(func() error {
		pagamentos, err := s.pagamentos.Estatisticas(gctx)
		if err != nil {
			return err
		}
		resumo.Pagamentos = *pagamentos
		return nil
	})
	g.Go(func() error {
		notas, err := s.notas.Estatisticas(gctx)
		if err != nil {
			return err
		}
		resumo.Notas = *notas
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resumo, nil
}
