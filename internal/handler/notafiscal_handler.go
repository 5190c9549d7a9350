package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 🧾 Notas Fiscais
// ============================================================

func listNotasHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notas-fiscais")
		defer span.End()

		// ?numero= resolves a single nota by document number.
		if numero := r.URL.Query().Get("numero"); numero != "" {
			nota, err := svc.BuscarPorNumero(ctx, numero)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, nota)
			return
		}

		var notas []domain.NotaFiscal
		var err error
		if pagamentoID := r.URL.Query().Get("pagamento"); pagamentoID != "" {
			id, perr := strconv.ParseInt(pagamentoID, 10, 64)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "identificador inválido")
				return
			}
			notas, err = svc.ListarDoPagamento(ctx, id)
		} else {
			notas, err = svc.Listar(ctx)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if notas == nil {
			notas = []domain.NotaFiscal{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"notasFiscais": notas})
	}
}

func getNotaHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notas-fiscais/{notaId}")
		defer span.End()

		id, err := parseID(r, "notaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int64("nota.id", id))

		nota, err := svc.Buscar(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, nota)
	}
}

func emitirNotaHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas-fiscais")
		defer span.End()

		var in domain.NotaFiscalInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}
		span.SetAttributes(attribute.Int64("cobranca.id", in.CobrancaID))

		nota, err := svc.Emitir(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, nota)
	}
}

func enviarNotaHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas-fiscais/{notaId}/enviar")
		defer span.End()

		id, err := parseID(r, "notaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		nota, err := svc.Enviar(ctx, id, body.Email)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, nota)
	}
}

func cancelarNotaHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notas-fiscais/{notaId}/cancelar")
		defer span.End()

		id, err := parseID(r, "notaId")
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

		nota, err := svc.Cancelar(ctx, id, body.Motivo)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, nota)
	}
}

func guiaRecolhimentoHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notas-fiscais/{notaId}/guia")
		defer span.End()

		id, err := parseID(r, "notaId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		guia, err := svc.Guia(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, guia)
	}
}

func estatisticasNotasHandler(svc *service.NotaFiscalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notas-fiscais/estatisticas")
		defer span.End()

		stats, err := svc.Estatisticas(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
