package handler

import (
	"net/http"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// 📊 Relatórios & catálogos
// ============================================================

func relatorioPagamentosHandler(svc *service.RelatorioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/relatorios/pagamentos")
		defer span.End()

		filtro := domain.FiltroPagamentos{
			Status:         domain.StatusPagamentoRegistro(r.URL.Query().Get("status")),
			FormaPagamento: domain.FormaPagamento(r.URL.Query().Get("forma")),
			Periodo:        parsePeriodo(r),
		}

		rel, err := svc.Pagamentos(ctx, filtro)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}

func relatorioFiscalHandler(svc *service.RelatorioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/relatorios/fiscal")
		defer span.End()

		filtro := domain.FiltroNotas{
			Status:      domain.StatusNota(r.URL.Query().Get("status")),
			Regime:      domain.RegimeTributario(r.URL.Query().Get("regime")),
			TipoServico: r.URL.Query().Get("tipoServico"),
			Periodo:     parsePeriodo(r),
		}

		rel, err := svc.Fiscal(ctx, filtro)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}

func resumoGeralHandler(svc *service.RelatorioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/relatorios/resumo")
		defer span.End()

		resumo, err := svc.ResumoGeral(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resumo)
	}
}

// ============================================================
// Catálogos (static lookup tables for the UI)
// ============================================================

func formasPagamentoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"formasPagamento": domain.FormasPagamento()})
	}
}

func tiposServicoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tiposServico": domain.TiposServico()})
	}
}

func regimesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"regimes": domain.RegimesTributarios()})
	}
}

func metricsResumoHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
