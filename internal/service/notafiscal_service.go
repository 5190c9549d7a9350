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
	"github.com/cobrancapro/cobranca-pro-go/internal/port"
)

var notaTracer = otel.Tracer("service/notafiscal")

// NotaFiscalService issues and manages simulated notas fiscais.
type NotaFiscalService struct {
	store    *jsonstore.Store
	provider port.FiscalProvider
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotaFiscalService creates a new nota fiscal service.
func NewNotaFiscalService(store *jsonstore.Store, provider port.FiscalProvider, metrics *observability.Metrics, logger *zap.Logger) *NotaFiscalService {
	return &NotaFiscalService{
		store:    store,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the service clock, for tests.
func (s *NotaFiscalService) WithClock(now func() time.Time) *NotaFiscalService {
	s.now = now
	return s
}

// Listar returns every nota fiscal in emission order.
func (s *NotaFiscalService) Listar(ctx context.Context) ([]domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Listar")
	defer span.End()

	return jsonstore.All[domain.NotaFiscal](ctx, s.store, colNotas)
}

// Buscar finds a nota fiscal by id.
func (s *NotaFiscalService) Buscar(ctx context.Context, id int64) (*domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Buscar")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	nota, found, err := jsonstore.Find[domain.NotaFiscal](ctx, s.store, colNotas, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: colNotas, ID: id}
	}
	return &nota, nil
}

// BuscarDaCobranca returns the nota linked to a cobrança, nil when none exists.
func (s *NotaFiscalService) BuscarDaCobranca(ctx context.Context, cobrancaID int64) (*domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.BuscarDaCobranca")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", cobrancaID))

	notas, err := jsonstore.All[domain.NotaFiscal](ctx, s.store, colNotas)
	if err != nil {
		return nil, err
	}
	for _, n := range notas {
		if n.CobrancaID == cobrancaID && n.Status != domain.NotaCancelada {
			return &n, nil
		}
	}
	return nil, nil
}

// BuscarPorNumero finds a nota by its document number, raw or in the
// "serie-numero" display form.
func (s *NotaFiscalService) BuscarPorNumero(ctx context.Context, numero string) (*domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.BuscarPorNumero")
	defer span.End()

	notas, err := jsonstore.All[domain.NotaFiscal](ctx, s.store, colNotas)
	if err != nil {
		return nil, err
	}
	for _, n := range notas {
		if n.Numero == numero || domain.FormatNumero(n) == numero {
			return &n, nil
		}
	}
	return nil, &domain.ErrNaoEncontrado{Resource: colNotas}
}

// ListarDoPagamento returns the notas that reference one pagamento.
func (s *NotaFiscalService) ListarDoPagamento(ctx context.Context, pagamentoID int64) ([]domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.ListarDoPagamento")
	defer span.End()
	span.SetAttributes(attribute.Int64("pagamento.id", pagamentoID))

	notas, err := jsonstore.All[domain.NotaFiscal](ctx, s.store, colNotas)
	if err != nil {
		return nil, err
	}

	out := make([]domain.NotaFiscal, 0)
	for _, n := range notas {
		if n.PagamentoID == pagamentoID {
			out = append(out, n)
		}
	}
	return out, nil
}

// Emitir issues a nota fiscal for a fully paid cobrança. The fiscal provider
// supplies the official identifiers; taxes are computed from the regime. The
// nota and the cobrança back-reference commit in one transaction.
func (s *NotaFiscalService) Emitir(ctx context.Context, in *domain.NotaFiscalInput) (*domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Emitir")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", in.CobrancaID))

	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("emitir_nota", time.Since(start)) }()

	if erros := domain.ValidateNotaFiscal(in); len(erros) > 0 {
		return nil, &domain.ErrValidacao{Erros: erros}
	}

	regime := in.Regime
	if regime == "" {
		regime = domain.RegimeSimplesNacional
	}

	cobranca, found, err := jsonstore.Find[domain.Cobranca](ctx, s.store, colCobrancas, in.CobrancaID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: colCobrancas, ID: in.CobrancaID}
	}
	if !domain.Settled(cobranca) {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "nota_fiscal",
			From:   string(cobranca.StatusPagamento),
			To:     string(domain.NotaEmitida),
			Reason: "cobrança ainda não está totalmente paga",
		}
	}
	if existente, err := s.BuscarDaCobranca(ctx, in.CobrancaID); err != nil {
		return nil, err
	} else if existente != nil {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "nota_fiscal",
			From:   string(existente.Status),
			To:     string(domain.NotaEmitida),
			Reason: "cobrança já possui nota fiscal ativa",
		}
	}

	impostos := domain.CalculateTaxes(in.ValorServico, regime)
	nota := domain.NotaFiscal{
		CobrancaID:       in.CobrancaID,
		PagamentoID:      in.PagamentoID,
		ClienteID:        in.ClienteID,
		ValorServico:     in.ValorServico,
		DescricaoServico: in.DescricaoServico,
		TipoServico:      in.TipoServico,
		Regime:           regime,
		Impostos:         impostos,
		ValorTotal:       in.ValorServico,
		ValorLiquido:     in.ValorServico - impostos.Total,
		DataEmissao:      start,
		DataVencimento:   start.Add(domain.PrazoVencimento),
		Status:           domain.NotaEmitida,
		Observacoes:      domain.BuildObservacoes(regime, in.TipoServico),
		Diretrizes:       domain.BuildDiretrizes(regime),
	}

	creds, err := s.provider.Authorize(ctx, &nota)
	if err != nil {
		s.metrics.IncrFiscalError(s.provider.Name())
		s.logger.Error("autorização fiscal falhou",
			zap.Int64("cobranca_id", in.CobrancaID),
			zap.Error(err),
		)
		return nil, err
	}
	nota.Numero = creds.Numero
	nota.Serie = creds.Serie
	nota.ChaveAcesso = creds.ChaveAcesso
	nota.Protocolo = creds.Protocolo

	var emitida domain.NotaFiscal
	err = s.store.Apply(ctx, func(tx *jsonstore.Tx) error {
		var err error
		emitida, err = jsonstore.InsertTx(tx, colNotas, nota)
		if err != nil {
			return err
		}
		_, err = jsonstore.PatchTx[domain.Cobranca](tx, colCobrancas, cobranca.ID, jsonstore.Record{
			"notaFiscal": emitida.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordNotaEmitida(string(emitida.Regime))
	s.logger.Info("nota fiscal emitida",
		zap.Int64("nota_id", emitida.ID),
		zap.Int64("cobranca_id", emitida.CobrancaID),
		zap.String("numero", domain.FormatNumero(emitida)),
		zap.Float64("impostos", emitida.Impostos.Total),
	)
	return &emitida, nil
}

// Enviar marks an issued nota as sent to the cliente's email.
func (s *NotaFiscalService) Enviar(ctx context.Context, id int64, email string) (*domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Enviar")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	if email == "" {
		return nil, &domain.ErrValidacao{Erros: []string{"E-mail de envio é obrigatório"}}
	}

	nota, err := s.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if nota.Status != domain.NotaEmitida {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "nota_fiscal",
			From:   string(nota.Status),
			To:     string(domain.NotaEnviada),
		}
	}

	enviada, err := jsonstore.Patch[domain.NotaFiscal](ctx, s.store, colNotas, id, jsonstore.Record{
		"status":     domain.NotaEnviada,
		"emailEnvio": email,
		"dataEnvio":  s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("nota fiscal enviada",
		zap.Int64("nota_id", id),
		zap.String("email", email),
	)
	return &enviada, nil
}

// Cancelar cancels an issued or sent nota within the cancellation window.
// Cancelled notas are terminal.
func (s *NotaFiscalService) Cancelar(ctx context.Context, id int64, motivo string) (*domain.NotaFiscal, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Cancelar")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	if motivo == "" {
		return nil, &domain.ErrValidacao{Erros: []string{"Motivo do cancelamento é obrigatório"}}
	}

	nota, err := s.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if nota.Status != domain.NotaEmitida && nota.Status != domain.NotaEnviada {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "nota_fiscal",
			From:   string(nota.Status),
			To:     string(domain.NotaCancelada),
		}
	}
	if s.now().Sub(nota.DataEmissao) > domain.PrazoCancelamento {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "nota_fiscal",
			From:   string(nota.Status),
			To:     string(domain.NotaCancelada),
			Reason: "prazo de cancelamento de 24h expirado",
		}
	}

	cancelada, err := jsonstore.Patch[domain.NotaFiscal](ctx, s.store, colNotas, id, jsonstore.Record{
		"status":             domain.NotaCancelada,
		"motivoCancelamento": motivo,
		"dataCancelamento":   s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("nota fiscal cancelada",
		zap.Int64("nota_id", id),
		zap.String("motivo", motivo),
	)
	return &cancelada, nil
}

// Guia derives the tax payment guide for an issued or sent nota.
func (s *NotaFiscalService) Guia(ctx context.Context, id int64) (*domain.GuiaRecolhimento, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Guia")
	defer span.End()
	span.SetAttributes(attribute.Int64("nota.id", id))

	nota, err := s.Buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if nota.Status != domain.NotaEmitida && nota.Status != domain.NotaEnviada {
		return nil, &domain.ErrTransicaoInvalida{
			Entity: "nota_fiscal",
			From:   string(nota.Status),
			To:     "guia_recolhimento",
			Reason: "guia disponível apenas para notas emitidas ou enviadas",
		}
	}

	guia := domain.BuildGuiaRecolhimento(*nota, s.now())
	return &guia, nil
}

// Estatisticas aggregates the whole notas collection.
func (s *NotaFiscalService) Estatisticas(ctx context.Context) (*domain.EstatisticasNotas, error) {
	ctx, span := notaTracer.Start(ctx, "NotaFiscalService.Estatisticas")
	defer span.End()

	notas, err := jsonstore.All[domain.NotaFiscal](ctx, s.store, colNotas)
	if err != nil {
		return nil, err
	}

	stats := &domain.EstatisticasNotas{}
	for _, n := range notas {
		stats.Total++
		switch n.Status {
		case domain.NotaEmitida:
			stats.Emitidas++
		case domain.NotaEnviada:
			stats.Enviadas++
		case domain.NotaCancelada:
			stats.Canceladas++
			continue
		}
		stats.ValorTotalServicos += n.ValorServico
		stats.ValorTotalImpostos += n.Impostos.Total
		stats.ValorTotalLiquido += n.ValorLiquido
	}
	return stats, nil
}
