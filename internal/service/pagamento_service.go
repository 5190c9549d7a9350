package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
)

var pagamentoTracer = otel.Tracer("service/pagamento")

// PagamentoService is the payment engine. Registering or cancelling a payment
// always rewrites the pagamento and its cobrança in the same transaction, so
// the ledger never observes one without the other.
type PagamentoService struct {
	store   *jsonstore.Store
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewPagamentoService creates a new pagamento service.
func NewPagamentoService(store *jsonstore.Store, metrics *observability.Metrics, logger *zap.Logger) *PagamentoService {
	return &PagamentoService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the service clock, for tests.
func (s *PagamentoService) WithClock(now func() time.Time) *PagamentoService {
	s.now = now
	return s
}

// Listar returns every pagamento in registration order.
func (s *PagamentoService) Listar(ctx context.Context) ([]domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.Listar")
	defer span.End()

	return jsonstore.All[domain.Pagamento](ctx, s.store, colPagamentos)
}

// Buscar finds a pagamento by id.
func (s *PagamentoService) Buscar(ctx context.Context, id int64) (*domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.Buscar")
	defer span.End()
	span.SetAttributes(attribute.Int64("pagamento.id", id))

	pagamento, found, err := jsonstore.Find[domain.Pagamento](ctx, s.store, colPagamentos, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: colPagamentos, ID: id}
	}
	return &pagamento, nil
}

// BuscarPorIdentificador finds a pagamento by its display identifier, raw or
// formatted.
func (s *PagamentoService) BuscarPorIdentificador(ctx context.Context, term string) (*domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.BuscarPorIdentificador")
	defer span.End()

	pagamentos, err := jsonstore.All[domain.Pagamento](ctx, s.store, colPagamentos)
	if err != nil {
		return nil, err
	}
	for _, p := range pagamentos {
		if domain.MatchesIdentifier(p, term) {
			return &p, nil
		}
	}
	return nil, &domain.ErrNaoEncontrado{Resource: colPagamentos}
}

// ListarDaCobranca returns the payments applied against one cobrança.
func (s *PagamentoService) ListarDaCobranca(ctx context.Context, cobrancaID int64) ([]domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.ListarDaCobranca")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", cobrancaID))

	pagamentos, err := jsonstore.All[domain.Pagamento](ctx, s.store, colPagamentos)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Pagamento, 0)
	for _, p := range pagamentos {
		if p.CobrancaID == cobrancaID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Registrar records a payment against a cobrança and applies its amount to
// the cobrança's bookkeeping in the same transaction. Payments are born
// confirmed; the pending state only exists for records written by hand.
func (s *PagamentoService) Registrar(ctx context.Context, in *domain.PagamentoInput) (*domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.Registrar")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", in.CobrancaID))

	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("registrar_pagamento", time.Since(start)) }()

	if erros := domain.ValidatePagamento(in); len(erros) > 0 {
		return nil, &domain.ErrValidacao{Erros: erros}
	}

	identificador := in.IdentificadorPagamento
	if identificador == "" {
		identificador = domain.GeneratePaymentIdentifier(start)
	}
	comprovante := in.Comprovante
	if comprovante == "" {
		comprovante = "comprovante-" + uuid.NewString()
	}

	var registrado domain.Pagamento
	err := s.store.Apply(ctx, func(tx *jsonstore.Tx) error {
		cobranca, found, err := jsonstore.FindTx[domain.Cobranca](tx, colCobrancas, in.CobrancaID)
		if err != nil {
			return err
		}
		if !found {
			return &domain.ErrNaoEncontrado{Resource: colCobrancas, ID: in.CobrancaID}
		}
		if domain.Settled(cobranca) {
			return &domain.ErrValidacao{Erros: []string{"Cobrança já está quitada"}}
		}
		if in.Valor > cobranca.ValorPendente+domain.FloatTolerance {
			return &domain.ErrValidacao{Erros: []string{"Valor excede o saldo pendente da cobrança"}}
		}

		registrado, err = jsonstore.InsertTx(tx, colPagamentos, domain.Pagamento{
			CobrancaID:             in.CobrancaID,
			FormaPagamento:         in.FormaPagamento,
			Valor:                  in.Valor,
			Observacoes:            in.Observacoes,
			Comprovante:            comprovante,
			IdentificadorPagamento: identificador,
			Taxa:                   domain.PaymentFee(in.Valor, in.FormaPagamento),
			ValorLiquido:           domain.NetAmount(in.Valor, in.FormaPagamento),
			DataPagamento:          start,
			DataRegistro:           start,
			DataConfirmacao:        &start,
			Status:                 domain.PagamentoConfirmado,
		})
		if err != nil {
			return err
		}

		aplicada := domain.ApplyPayment(cobranca, registrado.Valor)
		_, err = jsonstore.PatchTx[domain.Cobranca](tx, colCobrancas, cobranca.ID, jsonstore.Record{
			"valorPago":       aplicada.ValorPago,
			"valorPendente":   aplicada.ValorPendente,
			"status":          aplicada.Status,
			"statusPagamento": aplicada.StatusPagamento,
			"pagamentos":      append(cobranca.Pagamentos, registrado.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPagamento(string(registrado.FormaPagamento), registrado.Valor)
	s.logger.Info("pagamento registrado",
		zap.Int64("pagamento_id", registrado.ID),
		zap.Int64("cobranca_id", registrado.CobrancaID),
		zap.String("forma", string(registrado.FormaPagamento)),
		zap.Float64("valor", registrado.Valor),
	)
	return &registrado, nil
}

// Confirmar stamps a pagamento as confirmed. Confirming an already-confirmed
// pagamento is a no-op; only cancelled ones reject the transition.
func (s *PagamentoService) Confirmar(ctx context.Context, id int64) (*domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.Confirmar")
	defer span.End()
	span.SetAttributes(attribute.Int64("pagamento.id", id))

	pagamento, err := s.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if pagamento.Status == domain.PagamentoCancelado {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "pagamento",
			From:   string(pagamento.Status),
			To:     string(domain.PagamentoConfirmado),
		}
	}
	if pagamento.Status == domain.PagamentoConfirmado {
		return pagamento, nil
	}

	confirmado, err := jsonstore.Patch[domain.Pagamento](ctx, s.store, colPagamentos, id, jsonstore.Record{
		"status":          domain.PagamentoConfirmado,
		"dataConfirmacao": s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pagamento confirmado", zap.Int64("pagamento_id", id))
	return &confirmado, nil
}

// Cancelar cancels a pagamento and reverts its amount on the cobrança in the
// same transaction. Cancelled payments are terminal.
func (s *PagamentoService) Cancelar(ctx context.Context, id int64, motivo string) (*domain.Pagamento, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.Cancelar")
	defer span.End()
	span.SetAttributes(attribute.Int64("pagamento.id", id))

	if motivo == "" {
		return nil, &domain.ErrValidacao{Erros: []string{"Motivo do cancelamento é obrigatório"}}
	}

	var cancelado domain.Pagamento
	err := s.store.Apply(ctx, func(tx *jsonstore.Tx) error {
		pagamento, found, err := jsonstore.FindTx[domain.Pagamento](tx, colPagamentos, id)
		if err != nil {
			return err
		}
		if !found {
			return &domain.ErrNaoEncontrado{Resource: colPagamentos, ID: id}
		}
		if pagamento.Status == domain.PagamentoCancelado {
			return &domain.ErrTransicaoInvalida{
				Entity: "pagamento",
				From:   string(pagamento.Status),
				To:     string(domain.PagamentoCancelado),
			}
		}

		cancelado, err = jsonstore.PatchTx[domain.Pagamento](tx, colPagamentos, id, jsonstore.Record{
			"status":             domain.PagamentoCancelado,
			"dataCancelamento":   s.now(),
			"motivoCancelamento": motivo,
		})
		if err != nil {
			return err
		}

		// Revert the cobrança side. The cobrança may have been deleted since;
		// the payment record still carries the history in that case.
		cobranca, found, err := jsonstore.FindTx[domain.Cobranca](tx, colCobrancas, pagamento.CobrancaID)
		if err != nil || !found {
			return err
		}

		revertida := domain.ApplyPayment(cobranca, -pagamento.Valor)
		if revertida.ValorPago < domain.FloatTolerance {
			revertida.ValorPago = 0
			revertida.ValorPendente = revertida.Valor
		}
		if !domain.Settled(revertida) {
			revertida.Status = false
			if revertida.ValorPago > 0 {
				revertida.StatusPagamento = domain.StatusParcial
			} else {
				revertida.StatusPagamento = domain.StatusPendente
			}
		}

		restantes := make([]int64, 0, len(cobranca.Pagamentos))
		for _, pid := range cobranca.Pagamentos {
			if pid != id {
				restantes = append(restantes, pid)
			}
		}

		_, err = jsonstore.PatchTx[domain.Cobranca](tx, colCobrancas, cobranca.ID, jsonstore.Record{
			"valorPago":       revertida.ValorPago,
			"valorPendente":   revertida.ValorPendente,
			"status":          revertida.Status,
			"statusPagamento": revertida.StatusPagamento,
			"pagamentos":      restantes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pagamento cancelado",
		zap.Int64("pagamento_id", id),
		zap.String("motivo", motivo),
	)
	return &cancelado, nil
}

// Estatisticas aggregates the whole payments collection.
func (s *PagamentoService) Estatisticas(ctx context.Context) (*domain.EstatisticasPagamentos, error) {
	ctx, span := pagamentoTracer.Start(ctx, "PagamentoService.Estatisticas")
	defer span.End()

	pagamentos, err := jsonstore.All[domain.Pagamento](ctx, s.store, colPagamentos)
	if err != nil {
		return nil, err
	}

	stats := &domain.EstatisticasPagamentos{}
	for _, p := range pagamentos {
		stats.Total++
		switch p.Status {
		case domain.PagamentoConfirmado:
			stats.Confirmados++
			stats.ValorConfirmado += p.Valor
			stats.ValorTotal += p.Valor
		case domain.PagamentoPendente:
			stats.Pendentes++
			stats.ValorPendente += p.Valor
			stats.ValorTotal += p.Valor
		case domain.PagamentoCancelado:
			stats.Cancelados++
		}
	}
	return stats, nil
}
