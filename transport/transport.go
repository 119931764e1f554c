// Package transport performs the actual network send of a
// (address, payload) pair. The dispatch core never looks past the
// Sender interface: TLS, connection reuse, and HTTP semantics all live
// here.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Sender delivers one payload to one collector address. A nil error
// means the collector accepted the event. Implementations must be safe
// for concurrent use; multiple workers send at once.
type Sender interface {
	Send(ctx context.Context, address, payload string) error
}

// HTTP is the default Sender. It POSTs the payload as JSON to the
// address and treats any 2xx status as delivered.
type HTTP struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures the HTTP sender.
type Option func(*HTTP)

// WithClient sets a custom http.Client (proxy, TLS config, transport).
func WithClient(c *http.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) { h.client.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *HTTP) { h.logger = l }
}

// NewHTTP creates an HTTP sender with a 30 second default timeout.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Send POSTs the payload to the address.
func (h *HTTP) Send(ctx context.Context, address, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, address, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("keen/transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("keen/transport: send: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.logger.Debug("collector rejected event",
			slog.String("address", address),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("keen/transport: collector returned status %d", resp.StatusCode)
	}

	return nil
}
