package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/handler"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/cache"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/fiscal"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"
)

func newTestRouter(t *testing.T, auth *service.AuthService) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store, err := jsonstore.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	clienteCache := cache.New[domain.Cliente](time.Minute)
	t.Cleanup(clienteCache.Close)

	clientes := service.NewClienteService(store, clienteCache, metrics, logger)
	cobrancas := service.NewCobrancaService(store, metrics, logger)
	pagamentos := service.NewPagamentoService(store, metrics, logger)
	notas := service.NewNotaFiscalService(store, fiscal.NewSimulator(), metrics, logger)
	relatorios := service.NewRelatorioService(cobrancas, pagamentos, notas, metrics, logger)

	return handler.NewRouter(handler.Services{
		Clientes:   clientes,
		Cobrancas:  cobrancas,
		Pagamentos: pagamentos,
		Notas:      notas,
		Relatorios: relatorios,
		Auth:       auth,
	}, store, metrics, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthzAndReadyz(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := doJSON(t, router, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestClienteCRUDOverHTTP(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/clientes", domain.ClienteInput{
		Nome: "Maria Silva", CPF: "123.456.789-00",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	criado := decode[domain.Cliente](t, rec)
	if criado.ID != 1 {
		t.Errorf("cliente id = %d, want 1", criado.ID)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/clientes", nil, "")
	listados := decode[struct {
		Clientes []domain.Cliente `json:"clientes"`
	}](t, rec)
	if len(listados.Clientes) != 1 {
		t.Errorf("list: %+v", listados)
	}

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/v1/clientes/%d", criado.ID), domain.ClienteInput{
		Nome: "Maria S. Oliveira", CPF: "123.456.789-00", Telefone: "11 98888-0000",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/v1/clientes/%d", criado.ID), nil, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/clientes/%d", criado.ID), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestValidationErrorsCarryDetails(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/clientes", domain.ClienteInput{}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decode[struct {
		Error    string   `json:"error"`
		Detalhes []string `json:"detalhes"`
	}](t, rec)
	if resp.Error == "" || len(resp.Detalhes) != 2 {
		t.Errorf("validation payload: %+v", resp)
	}
}

func TestBillingFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t, nil)

	cliente := decode[domain.Cliente](t, doJSON(t, router, http.MethodPost, "/v1/clientes", domain.ClienteInput{
		Nome: "Maria Silva", CPF: "123.456.789-00",
	}, ""))

	rec := doJSON(t, router, http.MethodPost, "/v1/cobrancas", domain.CobrancaInput{
		Descricao: "Consultoria mensal", Valor: 1000, Cliente: cliente.ID, TipoServico: "consultoria",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cobrança: %d: %s", rec.Code, rec.Body.String())
	}
	cobranca := decode[domain.Cobranca](t, rec)

	rec = doJSON(t, router, http.MethodPost, "/v1/pagamentos", domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 1000,
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("registrar pagamento: %d: %s", rec.Code, rec.Body.String())
	}
	pagamento := decode[domain.Pagamento](t, rec)
	if pagamento.IdentificadorPagamento == "" {
		t.Error("pagamento sem identificador")
	}

	// Receipt lookup by the PAG code.
	rec = doJSON(t, router, http.MethodGet, "/v1/pagamentos?identificador="+pagamento.IdentificadorPagamento, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup por identificador: %d", rec.Code)
	}

	// The cobrança is settled, so a nota fiscal can be issued.
	rec = doJSON(t, router, http.MethodPost, "/v1/notas-fiscais", domain.NotaFiscalInput{
		CobrancaID:       cobranca.ID,
		ClienteID:        cliente.ID,
		ValorServico:     1000,
		DescricaoServico: "Consultoria empresarial mensal",
		TipoServico:      "consultoria",
		Regime:           domain.RegimeSimplesNacional,
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("emitir nota: %d: %s", rec.Code, rec.Body.String())
	}
	nota := decode[domain.NotaFiscal](t, rec)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/cobrancas/%d/nota-fiscal", cobranca.ID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("nota da cobrança: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/notas-fiscais/%d/guia", nota.ID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("guia: %d", rec.Code)
	}
	guia := decode[domain.GuiaRecolhimento](t, rec)
	if guia.ValorTotal != 60 {
		t.Errorf("guia total = %v, want 60", guia.ValorTotal)
	}

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/clientes/%d/cobrancas", cliente.ID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cobranças do cliente: %d", rec.Code)
	}
	doCliente := decode[struct {
		Cobrancas []domain.Cobranca `json:"cobrancas"`
	}](t, rec)
	if len(doCliente.Cobrancas) != 1 || doCliente.Cobrancas[0].ID != cobranca.ID {
		t.Errorf("cobranças do cliente: %+v", doCliente)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/cobrancas/total?status=pago", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("total: %d", rec.Code)
	}
	total := decode[struct {
		Total float64 `json:"total"`
	}](t, rec)
	if total.Total != 1000 {
		t.Errorf("total pago = %v, want 1000", total.Total)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/relatorios/resumo", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resumo geral: %d", rec.Code)
	}
	resumo := decode[domain.ResumoGeral](t, rec)
	if resumo.Cobrancas.TotalCobrancas != 1 || resumo.Notas.Total != 1 {
		t.Errorf("resumo: %+v", resumo)
	}
}

func TestCatalogos(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{
		"/v1/catalogos/formas-pagamento",
		"/v1/catalogos/tipos-servico",
		"/v1/catalogos/regimes",
		"/v1/metrics/resumo",
	} {
		rec := doJSON(t, router, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestAuthProtectsMutations(t *testing.T) {
	auth, err := service.NewAuthService("operador", "s3nh4-f0rte", "test-secret", time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	router := newTestRouter(t, auth)

	// Reads stay open.
	if rec := doJSON(t, router, http.MethodGet, "/v1/clientes", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("open read: expected 200, got %d", rec.Code)
	}

	// Mutations without a token are rejected.
	rec := doJSON(t, router, http.MethodPost, "/v1/clientes", domain.ClienteInput{
		Nome: "Maria Silva", CPF: "123.456.789-00",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated mutation: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login", service.LoginInput{
		Usuario: "operador", Senha: "s3nh4-f0rte",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	login := decode[service.LoginOutput](t, rec)
	if login.AccessToken == "" {
		t.Fatal("login returned empty token")
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/clientes", domain.ClienteInput{
		Nome: "Maria Silva", CPF: "123.456.789-00",
	}, login.AccessToken)
	if rec.Code != http.StatusCreated {
		t.Errorf("authenticated mutation: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login", service.LoginInput{
		Usuario: "operador", Senha: "errada",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", rec.Code)
	}
}
