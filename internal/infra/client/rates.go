// Package client holds the HTTP clients for third-party APIs.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// RateClient fetches the ARS/USD quote from a dolarapi-compatible API.
type RateClient struct {
	httpClient *http.Client
	baseURL    string
	source     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewRateClient creates a client for the quote named source ("blue",
// "oficial", "bolsa"...).
func NewRateClient(httpClient *http.Client, baseURL, source string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *RateClient {
	return &RateClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		source:     source,
		cb:         cb,
		cfg:        cfg,
	}
}

// dolarQuote is the payload of GET /v1/dolares/{casa}.
type dolarQuote struct {
	Casa               string  `json:"casa"`
	Compra             float64 `json:"compra"`
	Venta              float64 `json:"venta"`
	FechaActualizacion string  `json:"fechaActualizacion"`
}

// FetchRate returns the current quote. The rate used for conversions is the
// sell side.
func (c *RateClient) FetchRate(ctx context.Context) (*domain.ExchangeRateQuote, error) {
	ctx, span := tracer.Start(ctx, "RateClient.FetchRate")
	defer span.End()
	span.SetAttributes(attribute.String("rate.source", c.source))

	var q dolarQuote
	err := resilience.Call(ctx, c.cb, c.cfg, "exchange-rate", func() error {
		url := fmt.Sprintf("%s/v1/dolares/%s", c.baseURL, c.source)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "exchange rate", ID: c.source})
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("rate API returned status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
			return resilience.Permanent(fmt.Errorf("decode quote: %w", err))
		}
		if q.Venta <= 0 {
			return resilience.Permanent(fmt.Errorf("quote %q has no sell price", c.source))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fetched := q.FechaActualizacion
	if fetched == "" {
		fetched = time.Now().UTC().Format(time.RFC3339)
	}
	return &domain.ExchangeRateQuote{
		Source:    c.source,
		Buy:       q.Compra,
		Sell:      q.Venta,
		Rate:      q.Venta,
		FetchedAt: fetched,
	}, nil
}
