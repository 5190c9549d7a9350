package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 💳 Pagamentos
// ============================================================

// listPagamentosHandler lists every payment. With ?identificador= it instead
// resolves the single payment matching the PAG receipt code (raw or formatted).
func listPagamentosHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pagamentos")
		defer span.End()

		if term := r.URL.Query().Get("identificador"); term != "" {
			span.SetAttributes(attribute.String("pagamento.identificador", term))
			pagamento, err := svc.BuscarPorIdentificador(ctx, term)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, pagamento)
			return
		}

		pagamentos, err := svc.Listar(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if pagamentos == nil {
			pagamentos = []domain.Pagamento{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"pagamentos": pagamentos})
	}
}

func getPagamentoHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pagamentos/{pagamentoId}")
		defer span.End()

		id, err := parseID(r, "pagamentoId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int64("pagamento.id", id))

		pagamento, err := svc.Buscar(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pagamento)
	}
}

func registrarPagamentoHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pagamentos")
		defer span.End()

		var in domain.PagamentoInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		pagamento, err := svc.Registrar(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, pagamento)
	}
}

func confirmarPagamentoHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pagamentos/{pagamentoId}/confirmar")
		defer span.End()

		id, err := parseID(r, "pagamentoId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		pagamento, err := svc.Confirmar(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pagamento)
	}
}

func cancelarPagamentoHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pagamentos/{pagamentoId}/cancelar")
		defer span.End()

		id, err := parseID(r, "pagamentoId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var body struct {
			Motivo string `json:"motivo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		pagamento, err := svc.Cancelar(ctx, id, body.Motivo)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pagamento)
	}
}

func estatisticasPagamentosHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pagamentos/estatisticas")
		defer span.End()

		stats, err := svc.Estatisticas(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
