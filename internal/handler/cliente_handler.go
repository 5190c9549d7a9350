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
// 👤 Clientes
// ============================================================

func listClientesHandler(svc *service.ClienteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clientes")
		defer span.End()

		clientes, err := svc.Listar(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if clientes == nil {
			clientes = []domain.Cliente{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"clientes": clientes})
	}
}

func getClienteHandler(svc *service.ClienteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clientes/{clienteId}")
		defer span.End()

		id, err := parseID(r, "clienteId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int64("cliente.id", id))

		cliente, err := svc.Buscar(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cliente)
	}
}

func createClienteHandler(svc *service.ClienteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clientes")
		defer span.End()

		var in domain.ClienteInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		cliente, err := svc.Criar(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, cliente)
	}
}

func updateClienteHandler(svc *service.ClienteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/clientes/{clienteId}")
		defer span.End()

		id, err := parseID(r, "clienteId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var in domain.ClienteInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		cliente, err := svc.Atualizar(ctx, id, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cliente)
	}
}

func deleteClienteHandler(svc *service.ClienteService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/clientes/{clienteId}")
		defer span.End()

		id, err := parseID(r, "clienteId")
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
