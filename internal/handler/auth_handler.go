package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cobrancapro/cobranca-pro-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// 🔐 Autenticação
// ============================================================

func authLoginHandler(svc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var in service.LoginInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
			return
		}

		out, err := svc.Login(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
