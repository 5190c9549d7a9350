package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
)

var cobrancaTracer = otel.Tracer("service/cobranca")

// CobrancaService manages the charge ledger.
type CobrancaService struct {
	store   *jsonstore.Store
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCobrancaService creates a new cobrança service.
func NewCobrancaService(store *jsonstore.Store, metrics *observability.Metrics, logger *zap.Logger) *CobrancaService {
	return &CobrancaService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the service clock, for tests.
func (s *CobrancaService) WithClock(now func() time.Time) *CobrancaService {
	s.now = now
	return s
}

// Listar returns every cobrança with the overdue override derived at read
// time. The stored records are not rewritten; "vencido" is a view.
func (s *CobrancaService) Listar(ctx context.Context) ([]domain.Cobranca, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.Listar")
	defer span.End()

	cobrancas, err := jsonstore.All[domain.Cobranca](ctx, s.store, colCobrancas)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i, c := range cobrancas {
		cobrancas[i] = domain.CheckOverdue(c, now)
	}
	return cobrancas, nil
}

// ListarDoCliente returns the cobranças issued to one cliente, overdue
// override applied.
func (s *CobrancaService) ListarDoCliente(ctx context.Context, clienteID int64) ([]domain.Cobranca, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.ListarDoCliente")
	defer span.End()
	span.SetAttributes(attribute.Int64("cliente.id", clienteID))

	cobrancas, err := s.Listar(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Cobranca, 0)
	for _, c := range cobrancas {
		if c.Cliente == clienteID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CalcularTotal sums the charge amounts, optionally restricted to one
// bookkeeping status. An empty status sums the whole ledger.
func (s *CobrancaService) CalcularTotal(ctx context.Context, status domain.StatusPagamento) (float64, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.CalcularTotal")
	defer span.End()

	cobrancas, err := s.Listar(ctx)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, c := range cobrancas {
		if status == "" || c.StatusPagamento == status {
			total += c.Valor
		}
	}
	return total, nil
}

// Buscar finds a cobrança by id with the overdue override applied.
func (s *CobrancaService) Buscar(ctx context.Context, id int64) (*domain.Cobranca, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.Buscar")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", id))

	cobranca, found, err := jsonstore.Find[domain.Cobranca](ctx, s.store, colCobrancas, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: colCobrancas, ID: id}
	}

	cobranca = domain.CheckOverdue(cobranca, s.now())
	return &cobranca, nil
}

// Criar validates and issues a new cobrança due in thirty days.
func (s *CobrancaService) Criar(ctx context.Context, in *domain.CobrancaInput) (*domain.Cobranca, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.Criar")
	defer span.End()

	if erros := domain.ValidateCobranca(in); len(erros) > 0 {
		return nil, &domain.ErrValidacao{Erros: erros}
	}

	// The referenced cliente must exist at issuance time.
	_, found, err := jsonstore.Find[domain.Cliente](ctx, s.store, colClientes, in.Cliente)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: colClientes, ID: in.Cliente}
	}

	cobranca, err := jsonstore.Insert(ctx, s.store, colCobrancas, domain.NewCobranca(in, s.now()))
	if err != nil {
		return nil, err
	}

	s.logger.Info("cobrança criada",
		zap.Int64("cobranca_id", cobranca.ID),
		zap.Int64("cliente_id", cobranca.Cliente),
		zap.Float64("valor", cobranca.Valor),
	)
	return &cobranca, nil
}

// Atualizar merges the editable fields of a cobrança. Financial bookkeeping
// fields are owned by the payment engine and cannot be patched here.
func (s *CobrancaService) Atualizar(ctx context.Context, id int64, in *domain.CobrancaInput) (*domain.Cobranca, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.Atualizar")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", id))

	if erros := domain.ValidateCobranca(in); len(erros) > 0 {
		return nil, &domain.ErrValidacao{Erros: erros}
	}

	atual, err := s.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := jsonstore.Record{
		"descricao":   in.Descricao,
		"tipoServico": in.TipoServico,
		"cliente":     in.Cliente,
	}
	// Changing the amount re-derives the pending side against what was paid.
	if in.Valor != atual.Valor {
		rederived := *atual
		rederived.Valor = in.Valor
		rederived.ValorPago = 0
		rederived.ValorPendente = in.Valor
		rederived.Status = false
		rederived.StatusPagamento = domain.StatusPendente
		rederived = domain.ApplyPayment(rederived, atual.ValorPago)

		patch["valor"] = rederived.Valor
		patch["valorPago"] = rederived.ValorPago
		patch["valorPendente"] = rederived.ValorPendente
		patch["status"] = rederived.Status
		patch["statusPagamento"] = rederived.StatusPagamento
	}

	cobranca, err := jsonstore.Patch[domain.Cobranca](ctx, s.store, colCobrancas, id, patch)
	if err != nil {
		return nil, err
	}
	return &cobranca, nil
}

// AlternarStatus flips a cobrança between paid and open. Marking paid settles
// the full amount; reopening recomputes the paid side from the payments that
// are still active, so the bookkeeping invariant always holds afterwards.
func (s *CobrancaService) AlternarStatus(ctx context.Context, id int64) (*domain.Cobranca, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.AlternarStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", id))

	var atualizada domain.Cobranca
	err := s.store.Apply(ctx, func(tx *jsonstore.Tx) error {
		cobranca, found, err := jsonstore.FindTx[domain.Cobranca](tx, colCobrancas, id)
		if err != nil {
			return err
		}
		if !found {
			return &domain.ErrNaoEncontrado{Resource: colCobrancas, ID: id}
		}

		var patch jsonstore.Record
		if cobranca.Status {
			// Reopen: rebuild the paid amount from non-cancelled payments.
			pagamentos, err := jsonstore.AllTx[domain.Pagamento](tx, colPagamentos)
			if err != nil {
				return err
			}
			recomputed := cobranca
			recomputed.Status = false
			recomputed.StatusPagamento = domain.StatusPendente
			recomputed.ValorPago = 0
			recomputed.ValorPendente = recomputed.Valor
			for _, p := range pagamentos {
				if p.CobrancaID == id && p.Status != domain.PagamentoCancelado {
					recomputed = domain.ApplyPayment(recomputed, p.Valor)
				}
			}
			patch = jsonstore.Record{
				"status":          recomputed.Status,
				"statusPagamento": recomputed.StatusPagamento,
				"valorPago":       recomputed.ValorPago,
				"valorPendente":   recomputed.ValorPendente,
			}
		} else {
			patch = jsonstore.Record{
				"status":          true,
				"statusPagamento": domain.StatusPago,
				"valorPago":       cobranca.Valor,
				"valorPendente":   0.0,
			}
		}

		atualizada, err = jsonstore.PatchTx[domain.Cobranca](tx, colCobrancas, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("status da cobrança alternado",
		zap.Int64("cobranca_id", id),
		zap.Bool("pago", atualizada.Status),
	)
	atualizada = domain.CheckOverdue(atualizada, s.now())
	return &atualizada, nil
}

// Excluir removes a cobrança. Its payment history stays in the payments
// collection as an audit trail.
func (s *CobrancaService) Excluir(ctx context.Context, id int64) error {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.Excluir")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", id))

	if err := s.store.Delete(ctx, colCobrancas, id); err != nil {
		return err
	}

	s.logger.Info("cobrança excluída", zap.Int64("cobranca_id", id))
	return nil
}

// Resumo aggregates the whole charge ledger.
func (s *CobrancaService) Resumo(ctx context.Context) (*domain.ResumoCobrancas, error) {
	ctx, span := cobrancaTracer.Start(ctx, "CobrancaService.Resumo")
	defer span.End()

	cobrancas, err := s.Listar(ctx)
	if err != nil {
		return nil, err
	}

	resumo := &domain.ResumoCobrancas{}
	for _, c := range cobrancas {
		resumo.TotalCobrancas++
		resumo.ValorTotal += c.Valor
		resumo.ValorPago += c.ValorPago
		resumo.ValorPendente += c.ValorPendente
		if c.Status {
			resumo.CobrancasPagas++
		} else {
			resumo.CobrancasPendentes++
		}
	}
	return resumo, nil
}
