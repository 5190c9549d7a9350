package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error    string   `json:"error"`
	Detalhes []string `json:"detalhes,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseID extracts a positive numeric route parameter.
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("identificador inválido")
	}
	return id, nil
}

// parsePeriodo reads the optional inicio/fim query bounds (YYYY-MM-DD).
// The end bound is stretched to the last instant of that day so the
// range stays inclusive.
func parsePeriodo(r *http.Request) domain.Periodo {
	var p domain.Periodo
	if v := r.URL.Query().Get("inicio"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			p.Inicio = t
		}
	}
	if v := r.URL.Query().Get("fim"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			p.Fim = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return p
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var naoEncontrado *domain.ErrNaoEncontrado
	var validacao *domain.ErrValidacao
	var transicao *domain.ErrTransicaoInvalida
	var externo *domain.ErrServicoExterno
	var armazenamento *domain.ErrArmazenamento
	var naoAutorizado *domain.ErrNaoAutorizado

	switch {
	case errors.As(err, &naoEncontrado):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validacao):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:    err.Error(),
			Detalhes: validacao.Erros,
		})
	case errors.As(err, &transicao):
		logger.Debug("invalid transition", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &externo):
		logger.Error("external service failure", zap.String("service", externo.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &naoAutorizado):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &armazenamento):
		logger.Error("storage failure", zap.String("collection", armazenamento.Collection), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno de armazenamento")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
