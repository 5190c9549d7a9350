package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/port"
)

var clienteTracer = otel.Tracer("service/cliente")

// ClienteService manages the cliente registry.
type ClienteService struct {
	store   *jsonstore.Store
	cache   port.Cache[domain.Cliente]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewClienteService creates a new cliente service.
func NewClienteService(store *jsonstore.Store, cache port.Cache[domain.Cliente], metrics *observability.Metrics, logger *zap.Logger) *ClienteService {
	return &ClienteService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Listar returns every cliente in registration order.
func (s *ClienteService) Listar(ctx context.Context) ([]domain.Cliente, error) {
	ctx, span := clienteTracer.Start(ctx, "ClienteService.Listar")
	defer span.End()

	return jsonstore.All[domain.Cliente](ctx, s.store, colClientes)
}

// Buscar finds a cliente by id, reading through the cache.
func (s *ClienteService) Buscar(ctx context.Context, id int64) (*domain.Cliente, error) {
	ctx, span := clienteTracer.Start(ctx, "ClienteService.Buscar")
	defer span.End()
	span.SetAttributes(attribute.Int64("cliente.id", id))

	key := fmt.Sprintf("cliente:%d", id)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("clientes")
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("clientes")

	cliente, found, err := jsonstore.Find[domain.Cliente](ctx, s.store, colClientes, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNaoEncontrado{Resource: colClientes, ID: id}
	}

	s.cache.Set(key, cliente)
	return &cliente, nil
}

// Criar validates and registers a new cliente.
func (s *ClienteService) Criar(ctx context.Context, in *domain.ClienteInput) (*domain.Cliente, error) {
	ctx, span := clienteTracer.Start(ctx, "ClienteService.Criar")
	defer span.End()

	if erros := domain.ValidateCliente(in); len(erros) > 0 {
		return nil, &domain.ErrValidacao{Erros: erros}
	}

	cliente, err := jsonstore.Insert(ctx, s.store, colClientes, domain.Cliente{
		Nome:     in.Nome,
		CPF:      in.CPF,
		Telefone: in.Telefone,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cliente criado",
		zap.Int64("cliente_id", cliente.ID),
		zap.String("nome", cliente.Nome),
	)
	return &cliente, nil
}

// Atualizar validates and merges the editable fields of a cliente.
func (s *ClienteService) Atualizar(ctx context.Context, id int64, in *domain.ClienteInput) (*domain.Cliente, error) {
	ctx, span := clienteTracer.Start(ctx, "ClienteService.Atualizar")
	defer span.End()
	span.SetAttributes(attribute.Int64("cliente.id", id))

	if erros := domain.ValidateCliente(in); len(erros) > 0 {
		return nil, &domain.ErrValidacao{Erros: erros}
	}

	cliente, err := jsonstore.Patch[domain.Cliente](ctx, s.store, colClientes, id, jsonstore.Record{
		"nome":     in.Nome,
		"cpf":      in.CPF,
		"telefone": in.Telefone,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Delete(fmt.Sprintf("cliente:%d", id))
	return &cliente, nil
}

// Excluir removes a cliente. Cobranças referencing it keep their snapshot of
// the name; nothing cascades.
func (s *ClienteService) Excluir(ctx context.Context, id int64) error {
	ctx, span := clienteTracer.Start(ctx, "ClienteService.Excluir")
	defer span.End()
	span.SetAttributes(attribute.Int64("cliente.id", id))

	if err := s.store.Delete(ctx, colClientes, id); err != nil {
		return err
	}

	s.cache.Delete(fmt.Sprintf("cliente:%d", id))
	s.logger.Info("cliente excluído", zap.Int64("cliente_id", id))
	return nil
}
