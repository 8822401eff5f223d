package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/resilience"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE
// ============================================================

// doWrite sends a JSON body with method to path.
func (c *Client) doWrite(ctx context.Context, method, path string, data any, prefer string) error {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reader *bytes.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return resilience.Permanent(err)
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return resilience.Permanent(err)
	}
	c.setHeaders(req, prefer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: write request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}
	if err := c.checkStatus(method, path, resp.StatusCode, body); err != nil {
		return err
	}

	c.logger.Debug("supabase: write OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// write runs one mutation behind the breaker with retries.
func (c *Client) write(ctx context.Context, op, table, method, path string, data any, prefer string) error {
	ctx, span := tracer.Start(ctx, "Supabase."+op)
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	return resilience.Call(ctx, c.cb, c.cfg, "supabase/"+table, func() error {
		return c.doWrite(ctx, method, path, data, prefer)
	})
}

func (c *Client) doPost(ctx context.Context, op, table string, row any) error {
	return c.write(ctx, op, table, http.MethodPost, table, row, "return=minimal")
}

// doUpsert inserts row or merges it into the row with the same conflict key.
func (c *Client) doUpsert(ctx context.Context, op, table, onConflict string, row any) error {
	path := fmt.Sprintf("%s?on_conflict=%s", table, onConflict)
	return c.write(ctx, op, table, http.MethodPost, path, row, "resolution=merge-duplicates,return=minimal")
}

func (c *Client) doPatch(ctx context.Context, op, table, filter string, data map[string]any) error {
	return c.write(ctx, op, table, http.MethodPatch, table+"?"+filter, data, "return=minimal")
}

func (c *Client) doDelete(ctx context.Context, op, table, filter string) error {
	return c.write(ctx, op, table, http.MethodDelete, table+"?"+filter, nil, "")
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
