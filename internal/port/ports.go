// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

// FiscalProvider obtains the official identifiers of a nota fiscal at
// emission time. The local simulator generates them offline; the HTTP
// gateway adapter fetches them from an authorizer when one is configured.
type FiscalProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	Authorize(ctx context.Context, nota *domain.NotaFiscal) (*domain.FiscalCredentials, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
