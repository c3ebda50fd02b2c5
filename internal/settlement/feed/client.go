package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var ErrUnexpectedStatus = errors.New("unexpected feed status")

// Client consulta o endpoint por esporte do fornecedor de resultados
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit limita as chamadas ao fornecedor (req/s)
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current retorna as partidas do dia (ao vivo, agendadas e encerradas recentemente)
func (c *Client) Current(ctx context.Context, sport string) (Response, error) {
	return c.get(ctx, "/"+url.PathEscape(sport)+"/home")
}

// History retorna as partidas de daysBack dias atrás (d-1 = ontem)
func (c *Client) History(ctx context.Context, sport string, daysBack int) (Response, error) {
	return c.get(ctx, fmt.Sprintf("/%s/d-%d", url.PathEscape(sport), daysBack))
}

func (c *Client) get(ctx context.Context, path string) (Response, error) {
	var out Response
	if err := c.limiter.Wait(ctx); err != nil {
		return out, fmt.Errorf("feed rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("feed get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return out, fmt.Errorf("%w: %s %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("feed decode %s: %w", path, err)
	}
	return out, nil
}
