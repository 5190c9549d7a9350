package handler

import (
	"net/http"
	"time"

	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router exposes over HTTP.
type Services struct {
	Clientes   *service.ClienteService
	Cobrancas  *service.CobrancaService
	Pagamentos *service.PagamentoService
	Notas      *service.NotaFiscalService
	Relatorios *service.RelatorioService
	Auth       *service.AuthService // nil when no operator password is configured
}

// NewRouter creates the HTTP router with all routes and middleware.
// When svcs.Auth is set, mutating routes require a Bearer token.
func NewRouter(svcs Services, store *jsonstore.Store, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, metrics))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 🔐 Autenticação
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			if svcs.Auth == nil {
				r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "Autenticação não configurada")
				})
				return
			}
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
		})

		// =============================================
		// 📚 Catálogos e métricas
		// =============================================
		r.Get("/catalogos/formas-pagamento", formasPagamentoHandler())
		r.Get("/catalogos/tipos-servico", tiposServicoHandler())
		r.Get("/catalogos/regimes", regimesHandler())
		r.Get("/metrics/resumo", metricsResumoHandler(metrics))

		// =============================================
		// 👤 Clientes (leitura)
		// =============================================
		r.Get("/clientes", listClientesHandler(svcs.Clientes, logger))
		r.Get("/clientes/{clienteId}", getClienteHandler(svcs.Clientes, logger))
		r.Get("/clientes/{clienteId}/cobrancas", listCobrancasDoClienteHandler(svcs.Cobrancas, logger))

		// =============================================
		// 💰 Cobranças (leitura)
		// =============================================
		r.Get("/cobrancas", listCobrancasHandler(svcs.Cobrancas, logger))
		r.Get("/cobrancas/resumo", resumoCobrancasHandler(svcs.Cobrancas, logger))
		r.Get("/cobrancas/total", totalCobrancasHandler(svcs.Cobrancas, logger))
		r.Get("/cobrancas/{cobrancaId}", getCobrancaHandler(svcs.Cobrancas, logger))
		r.Get("/cobrancas/{cobrancaId}/pagamentos", listPagamentosDaCobrancaHandler(svcs.Pagamentos, logger))
		r.Get("/cobrancas/{cobrancaId}/nota-fiscal", getNotaDaCobrancaHandler(svcs.Notas, logger))

		// =============================================
		// 💳 Pagamentos (leitura)
		// =============================================
		r.Get("/pagamentos", listPagamentosHandler(svcs.Pagamentos, logger))
		r.Get("/pagamentos/estatisticas", estatisticasPagamentosHandler(svcs.Pagamentos, logger))
		r.Get("/pagamentos/{pagamentoId}", getPagamentoHandler(svcs.Pagamentos, logger))

		// =============================================
		// 🧾 Notas fiscais (leitura)
		// =============================================
		r.Get("/notas-fiscais", listNotasHandler(svcs.Notas, logger))
		r.Get("/notas-fiscais/estatisticas", estatisticasNotasHandler(svcs.Notas, logger))
		r.Get("/notas-fiscais/{notaId}", getNotaHandler(svcs.Notas, logger))
		r.Get("/notas-fiscais/{notaId}/guia", guiaRecolhimentoHandler(svcs.Notas, logger))

		// =============================================
		// 📊 Relatórios
		// =============================================
		r.Get("/relatorios/pagamentos", relatorioPagamentosHandler(svcs.Relatorios, logger))
		r.Get("/relatorios/fiscal", relatorioFiscalHandler(svcs.Relatorios, logger))
		r.Get("/relatorios/resumo", resumoGeralHandler(svcs.Relatorios, logger))

		// =============================================
		// ✍️ Mutações (protegidas quando auth ativa)
		// =============================================
		r.Group(func(r chi.Router) {
			if svcs.Auth != nil {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
			}

			r.Post("/clientes", createClienteHandler(svcs.Clientes, logger))
			r.Put("/clientes/{clienteId}", updateClienteHandler(svcs.Clientes, logger))
			r.Delete("/clientes/{clienteId}", deleteClienteHandler(svcs.Clientes, logger))

			r.Post("/cobrancas", createCobrancaHandler(svcs.Cobrancas, logger))
			r.Put("/cobrancas/{cobrancaId}", updateCobrancaHandler(svcs.Cobrancas, logger))
			r.Delete("/cobrancas/{cobrancaId}", deleteCobrancaHandler(svcs.Cobrancas, logger))
			r.Post("/cobrancas/{cobrancaId}/status", alternarStatusHandler(svcs.Cobrancas, logger))

			r.Post("/pagamentos", registrarPagamentoHandler(svcs.Pagamentos, logger))
			r.Post("/pagamentos/{pagamentoId}/confirmar", confirmarPagamentoHandler(svcs.Pagamentos, logger))
			r.Post("/pagamentos/{pagamentoId}/cancelar", cancelarPagamentoHandler(svcs.Pagamentos, logger))

			r.Post("/notas-fiscais", emitirNotaHandler(svcs.Notas, logger))
			r.Post("/notas-fiscais/{notaId}/enviar", enviarNotaHandler(svcs.Notas, logger))
			r.Post("/notas-fiscais/{notaId}/cancelar", cancelarNotaHandler(svcs.Notas, logger))
		})
	})

	return r
}

// ============================================================
// Health & readiness
// ============================================================

func healthzHandler(store *jsonstore.Store, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collections := store.Collections()
		for name, count := range collections {
			metrics.SetStoreRecords(name, count)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"collections": collections,
			"checkedAt":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
