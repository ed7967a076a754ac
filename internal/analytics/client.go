// Package analytics fetches weekly campaign rows from the GraphQL
// analytics API.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/radiusdt/growth-report/internal/config"
	"github.com/radiusdt/growth-report/internal/models"
	"github.com/radiusdt/growth-report/internal/project"
	"github.com/radiusdt/growth-report/internal/weeks"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// ErrGraphQL is returned when the response carries GraphQL errors.
	ErrGraphQL = errors.New("graphql error")

	errDecode = errors.New("decode response")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts report queries to the analytics API.
type Client struct {
	url        string
	token      string
	httpc      HTTPClient
	limiter    *rate.Limiter
	maxRetries int
	baseWait   time.Duration
	logger     *zap.Logger
}

// New builds a client from configuration. httpc may be nil.
func New(cfg config.AnalyticsConfig, httpc HTTPClient, logger *zap.Logger) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Client{
		url:        cfg.URL,
		token:      cfg.Token,
		httpc:      httpc,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		baseWait:   cfg.RetryBaseWait,
		logger:     logger,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		Report struct {
			Rows [][]models.Cell `json:"rows"`
		} `json:"report"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchRows returns the raw rows of the project for the weeks starting
// between from and to, inclusive. Rows are only returned once the whole
// response has been read and decoded.
func (c *Client) FetchRows(ctx context.Context, cfg project.Config, from, to time.Time) ([]models.RawRow, error) {
	if c.url == "" {
		return nil, errors.New("analytics url is not configured")
	}
	body, err := json.Marshal(gqlRequest{
		Query: BuildQuery(cfg),
		Variables: map[string]any{
			"project": cfg.Name,
			"from":    from.Format(weeks.DateLayout),
			"to":      to.Format(weeks.DateLayout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	var resp gqlResponse
	err = c.withRetry(ctx, func() error {
		return c.post(ctx, body, &resp)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}

	rows := make([]models.RawRow, len(resp.Data.Report.Rows))
	for i, r := range resp.Data.Report.Rows {
		rows[i] = models.RawRow(r)
	}
	c.logger.Debug("analytics rows fetched",
		zap.String("project", cfg.Name),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func (c *Client) post(ctx context.Context, body []byte, dst *gqlResponse) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	*dst = gqlResponse{}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// withRetry retries transport failures, 429 and 5xx with exponential
// backoff plus jitter. Other errors are returned at once.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		err = fn()
		if err == nil || !retryable(err) || i == c.maxRetries {
			break
		}
		wait := time.Duration(1<<i) * c.baseWait
		if c.baseWait > 0 {
			wait += time.Duration(rand.Int63n(int64(c.baseWait)/2 + 1))
		}
		c.logger.Warn("analytics request failed, retrying",
			zap.Int("attempt", i+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, errDecode)
}
