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
// 💰 Cobranças
// ============================================================

func listCobrancasHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobrancas")
		defer span.End()

		cobrancas, err := svc.Listar(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if cobrancas == nil {
			cobrancas = []domain.Cobranca{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"cobrancas": cobrancas})
	}
}

func listCobrancasDoClienteHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clientes/{clienteId}/cobrancas")
		defer span.End()

		id, err := parseID(r, "clienteId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int64("cliente.id", id))

		cobrancas, err := svc.ListarDoCliente(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cobrancas": cobrancas})
	}
}

// totalCobrancasHandler sums the ledger, optionally filtered by the
// ?status= bookkeeping status.
func totalCobrancasHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobrancas/total")
		defer span.End()

		status := domain.StatusPagamento(r.URL.Query().Get("status"))
		total, err := svc.CalcularTotal(ctx, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"total":  total,
		})
	}
}

func resumoCobrancasHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobrancas/resumo")
		defer span.End()

		resumo, err := svc.Resumo(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resumo)
	}
}

func getCobrancaHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobrancas/{cobrancaId}")
		defer span.End()

		id, err := parseID(r, "cobrancaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int64("cobranca.id", id))

		cobranca, err := svc.Buscar(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cobranca)
	}
}

func createCobrancaHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobrancas")
		defer span.End()

		var in domain.CobrancaInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		cobranca, err := svc.Criar(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, cobranca)
	}
}

func updateCobrancaHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/cobrancas/{cobrancaId}")
		defer span.End()

		id, err := parseID(r, "cobrancaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var in domain.CobrancaInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		cobranca, err := svc.Atualizar(ctx, id, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cobranca)
	}
}

func deleteCobrancaHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/cobrancas/{cobrancaId}")
		defer span.End()

		id, err := parseID(r, "cobrancaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := svc.Excluir(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// alternarStatusHandler flips the paid flag, recomputing the amounts from
// the active payments when the cobrança is reopened.
func alternarStatusHandler(svc *service.CobrancaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobrancas/{cobrancaId}/status")
		defer span.End()

		id, err := parseID(r, "cobrancaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int64("cobranca.id", id))

		cobranca, err := svc.AlternarStatus(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cobranca)
	}
}

func listPagamentosDaCobrancaHandler(svc *service.PagamentoService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobrancas/{cobrancaId}/pagamentos")
		defer span.End()

		id, err := parseID(r, "cobrancaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		pagamentos, err := svc.ListarDaCobranca(ctx, id)
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

func getNotaDaCobrancaHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobrancas/{cobrancaId}/nota-fiscal")
		defer span.End()

		id, err := parseID(r, "cobrancaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		nota, err := svc.BuscarDaCobranca(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if nota == nil {
			writeError(w, http.StatusNotFound, "Cobrança não possui nota fiscal ativa")
			return
		}
		writeJSON(w, http.StatusOK, nota)
	}
}
