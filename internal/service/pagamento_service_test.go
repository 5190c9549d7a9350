package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/cache"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"
)

type fixture struct {
	store      *jsonstore.Store
	clientes   *service.ClienteService
	cobrancas  *service.CobrancaService
	pagamentos *service.PagamentoService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := jsonstore.Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	clienteCache := cache.New[domain.Cliente](time.Minute)
	t.Cleanup(clienteCache.Close)

	return &fixture{
		store:      store,
		clientes:   service.NewClienteService(store, clienteCache, metrics, logger),
		cobrancas:  service.NewCobrancaService(store, metrics, logger),
		pagamentos: service.NewPagamentoService(store, metrics, logger),
	}
}

func (f *fixture) seedCobranca(t *testing.T, valor float64) *domain.Cobranca {
	t.Helper()
	ctx := context.Background()

	cliente, err := f.clientes.Criar(ctx, &domain.ClienteInput{
		Nome: "Maria Silva", CPF: "123.456.789-00", Telefone: "11 99999-0000",
	})
	if err != nil {
		t.Fatalf("criar cliente: %v", err)
	}

	cobranca, err := f.cobrancas.Criar(ctx, &domain.CobrancaInput{
		Descricao: "Consultoria mensal",
		Valor:     valor,
		Cliente:   cliente.ID,
	})
	if err != nil {
		t.Fatalf("criar cobrança: %v", err)
	}
	return cobranca
}

func TestRegistrarAppliesPaymentToCobranca(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 2500)

	pagamento, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID:     cobranca.ID,
		FormaPagamento: domain.FormaCartaoCredito,
		Valor:          1000,
	})
	if err != nil {
		t.Fatalf("registrar: %v", err)
	}
	if pagamento.Status != domain.PagamentoConfirmado {
		t.Errorf("pagamento status = %v, want confirmado", pagamento.Status)
	}
	if pagamento.DataConfirmacao == nil {
		t.Error("confirmation timestamp missing")
	}
	if pagamento.IdentificadorPagamento == "" {
		t.Error("identifier should be generated when absent")
	}
	if pagamento.Taxa != 35 || pagamento.ValorLiquido != 965 {
		t.Errorf("fee stamping: taxa=%v liquido=%v", pagamento.Taxa, pagamento.ValorLiquido)
	}

	atualizada, err := f.cobrancas.Buscar(ctx, cobranca.ID)
	if err != nil {
		t.Fatalf("buscar cobrança: %v", err)
	}
	if atualizada.ValorPago != 1000 || atualizada.ValorPendente != 1500 {
		t.Errorf("cobrança not updated: pago=%v pendente=%v", atualizada.ValorPago, atualizada.ValorPendente)
	}
	if atualizada.StatusPagamento != domain.StatusParcial {
		t.Errorf("statusPagamento = %v, want parcial", atualizada.StatusPagamento)
	}
	if len(atualizada.Pagamentos) != 1 || atualizada.Pagamentos[0] != pagamento.ID {
		t.Errorf("pagamentos link list = %v", atualizada.Pagamentos)
	}
	if !domain.Consistent(*atualizada) {
		t.Error("bookkeeping invariant broken after registration")
	}
}

func TestRegistrarSettlesCobranca(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 2500)

	if _, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 1000,
	}); err != nil {
		t.Fatalf("registrar: %v", err)
	}
	if _, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaBoleto, Valor: 1500,
	}); err != nil {
		t.Fatalf("registrar: %v", err)
	}

	atualizada, err := f.cobrancas.Buscar(ctx, cobranca.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if !atualizada.Status || atualizada.StatusPagamento != domain.StatusPago {
		t.Errorf("cobrança should be settled: %+v", atualizada)
	}
	if atualizada.ValorPendente != 0 {
		t.Errorf("pendente = %v, want 0", atualizada.ValorPendente)
	}
}

func TestRegistrarRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 100)

	_, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 150,
	})
	var validacao *domain.ErrValidacao
	if !errors.As(err, &validacao) {
		t.Fatalf("expected ErrValidacao for amount above the pending balance, got %v", err)
	}

	intacta, err := f.cobrancas.Buscar(ctx, cobranca.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if intacta.ValorPago != 0 || intacta.ValorPendente != 100 {
		t.Errorf("rejected payment touched the cobrança: pago=%v pendente=%v", intacta.ValorPago, intacta.ValorPendente)
	}

	// Paying the exact pending balance is fine; paying a settled cobrança is not.
	if _, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 100,
	}); err != nil {
		t.Fatalf("exact settlement: %v", err)
	}
	_, err = f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 1,
	})
	if !errors.As(err, &validacao) {
		t.Fatalf("expected ErrValidacao on a settled cobrança, got %v", err)
	}
}

func TestRegistrarUnknownCobranca(t *testing.T) {
	f := newFixture(t)

	_, err := f.pagamentos.Registrar(context.Background(), &domain.PagamentoInput{
		CobrancaID: 99, FormaPagamento: domain.FormaPix, Valor: 10,
	})
	var notFound *domain.ErrNaoEncontrado
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNaoEncontrado, got %v", err)
	}

	// The failed transaction must not leave a stray pagamento behind.
	pagamentos, err := f.pagamentos.Listar(context.Background())
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(pagamentos) != 0 {
		t.Errorf("orphan pagamento persisted: %d", len(pagamentos))
	}
}

func TestRegistrarInvalidPayload(t *testing.T) {
	f := newFixture(t)

	_, err := f.pagamentos.Registrar(context.Background(), &domain.PagamentoInput{
		CobrancaID: 1, FormaPagamento: "cheque", Valor: -5,
	})
	var validacao *domain.ErrValidacao
	if !errors.As(err, &validacao) {
		t.Fatalf("expected ErrValidacao, got %v", err)
	}
	if len(validacao.Erros) != 2 {
		t.Errorf("expected 2 messages, got %v", validacao.Erros)
	}
}

func TestConfirmarPagamento(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 100)

	pagamento, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaDinheiro, Valor: 100,
	})
	if err != nil {
		t.Fatalf("registrar: %v", err)
	}

	// Confirming an already-confirmed pagamento is a no-op.
	confirmado, err := f.pagamentos.Confirmar(ctx, pagamento.ID)
	if err != nil {
		t.Fatalf("confirmar: %v", err)
	}
	if confirmado.Status != domain.PagamentoConfirmado {
		t.Errorf("status = %v, want confirmado", confirmado.Status)
	}
	if confirmado.DataConfirmacao == nil || !confirmado.DataConfirmacao.Equal(*pagamento.DataConfirmacao) {
		t.Error("repeated confirm must not restamp the timestamp")
	}

	// A cancelled pagamento cannot be confirmed back.
	if _, err := f.pagamentos.Cancelar(ctx, pagamento.ID, "estorno"); err != nil {
		t.Fatalf("cancelar: %v", err)
	}
	_, err = f.pagamentos.Confirmar(ctx, pagamento.ID)
	var transicao *domain.ErrTransicaoInvalida
	if !errors.As(err, &transicao) {
		t.Fatalf("expected ErrTransicaoInvalida, got %v", err)
	}
}

func TestCancelarRevertsCobranca(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 2500)

	pagamento, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 2500,
	})
	if err != nil {
		t.Fatalf("registrar: %v", err)
	}

	cancelado, err := f.pagamentos.Cancelar(ctx, pagamento.ID, "valor incorreto")
	if err != nil {
		t.Fatalf("cancelar: %v", err)
	}
	if cancelado.Status != domain.PagamentoCancelado {
		t.Errorf("status = %v, want cancelado", cancelado.Status)
	}
	if cancelado.MotivoCancelamento != "valor incorreto" {
		t.Errorf("motivo = %q", cancelado.MotivoCancelamento)
	}

	revertida, err := f.cobrancas.Buscar(ctx, cobranca.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if revertida.Status || revertida.ValorPago != 0 || revertida.ValorPendente != 2500 {
		t.Errorf("cobrança not reverted: %+v", revertida)
	}
	if revertida.StatusPagamento != domain.StatusPendente {
		t.Errorf("statusPagamento = %v, want pendente", revertida.StatusPagamento)
	}
	if len(revertida.Pagamentos) != 0 {
		t.Errorf("pagamento link not removed: %v", revertida.Pagamentos)
	}

	// cancelado is terminal.
	_, err = f.pagamentos.Cancelar(ctx, pagamento.ID, "de novo")
	var transicao *domain.ErrTransicaoInvalida
	if !errors.As(err, &transicao) {
		t.Fatalf("expected ErrTransicaoInvalida, got %v", err)
	}
}

func TestCancelarRequiresMotivo(t *testing.T) {
	f := newFixture(t)

	_, err := f.pagamentos.Cancelar(context.Background(), 1, "")
	var validacao *domain.ErrValidacao
	if !errors.As(err, &validacao) {
		t.Fatalf("expected ErrValidacao, got %v", err)
	}
}

func TestBuscarPorIdentificador(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 100)

	pagamento, err := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID:             cobranca.ID,
		FormaPagamento:         domain.FormaPix,
		Valor:                  100,
		IdentificadorPagamento: "PAG17000000000XYZAB1",
	})
	if err != nil {
		t.Fatalf("registrar: %v", err)
	}

	porRaw, err := f.pagamentos.BuscarPorIdentificador(ctx, "PAG17000000000XYZAB1")
	if err != nil {
		t.Fatalf("buscar por identificador: %v", err)
	}
	if porRaw.ID != pagamento.ID {
		t.Errorf("found wrong pagamento: %d", porRaw.ID)
	}

	formatted := domain.FormatPaymentIdentifier("PAG17000000000XYZAB1")
	porFormatado, err := f.pagamentos.BuscarPorIdentificador(ctx, formatted)
	if err != nil {
		t.Fatalf("buscar formatado: %v", err)
	}
	if porFormatado.ID != pagamento.ID {
		t.Errorf("formatted lookup found wrong pagamento: %d", porFormatado.ID)
	}

	if _, err := f.pagamentos.BuscarPorIdentificador(ctx, "PAG-0000-0000-0000"); err == nil {
		t.Error("unknown identifier should not resolve")
	}
}

func TestEstatisticasPagamentos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cobranca := f.seedCobranca(t, 1000)

	p1, _ := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaPix, Valor: 300,
	})
	p2, _ := f.pagamentos.Registrar(ctx, &domain.PagamentoInput{
		CobrancaID: cobranca.ID, FormaPagamento: domain.FormaBoleto, Valor: 200,
	})
	if _, err := f.pagamentos.Confirmar(ctx, p1.ID); err != nil {
		t.Fatalf("confirmar: %v", err)
	}
	if _, err := f.pagamentos.Cancelar(ctx, p2.ID, "duplicado"); err != nil {
		t.Fatalf("cancelar: %v", err)
	}

	stats, err := f.pagamentos.Estatisticas(ctx)
	if err != nil {
		t.Fatalf("estatísticas: %v", err)
	}
	if stats.Total != 2 || stats.Confirmados != 1 || stats.Cancelados != 1 {
		t.Errorf("counts: %+v", stats)
	}
	if stats.ValorConfirmado != 300 || stats.ValorTotal != 300 {
		t.Errorf("cancelled payment leaked into totals: %+v", stats)
	}
}
