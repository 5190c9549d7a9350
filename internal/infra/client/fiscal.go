// Package client holds outbound HTTP adapters.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// FiscalClient authorizes notas against an external fiscal gateway.
// It is only wired when FISCAL_API_URL is configured; otherwise the local
// simulator serves emissions.
type FiscalClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
}

// NewFiscalClient creates a new FiscalClient.
func NewFiscalClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *FiscalClient {
	return &FiscalClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
	}
}

// Name identifies the provider in logs and metrics.
func (c *FiscalClient) Name() string { return "gateway" }

type authorizeRequest struct {
	ValorServico     float64 `json:"valorServico"`
	DescricaoServico string  `json:"descricaoServico"`
	Regime           string  `json:"regime"`
	DataEmissao      string  `json:"dataEmissao"`
}

// Authorize asks the gateway for the official nota identifiers.
func (c *FiscalClient) Authorize(ctx context.Context, nota *domain.NotaFiscal) (*domain.FiscalCredentials, error) {
	ctx, span := tracer.Start(ctx, "FiscalClient.Authorize")
	defer span.End()
	span.SetAttributes(attribute.Int64("cobranca.id", nota.CobrancaID))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	var creds domain.FiscalCredentials

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(authorizeRequest{
				ValorServico:     nota.ValorServico,
				DescricaoServico: nota.DescricaoServico,
				Regime:           string(nota.Regime),
				DataEmissao:      nota.DataEmissao.Format("2006-01-02"),
			})
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/notas/autorizar", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("fiscal gateway returned status %d", resp.StatusCode)
				// 4xx means the authorizer rejected this nota; retrying the
				// same payload cannot change the answer.
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return resilience.Permanent(err)
				}
				return err
			}

			return json.NewDecoder(resp.Body).Decode(&creds)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &creds, nil
	})

	if err != nil {
		return nil, &domain.ErrServicoExterno{Service: "fiscal-gateway", Err: err}
	}

	return result.(*domain.FiscalCredentials), nil
}
