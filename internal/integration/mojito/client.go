package mojito

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

const (
	// OriginHeader marks requests that originate from this application.
	OriginHeader = "X-Origin"
	// IdempotencyHeader carries the client-generated key on ticket creation.
	IdempotencyHeader = "Idempotency-Key"

	maxErrorBody = 4096
)

// ErrTicketNotResolved is returned when a create call yields no id and no listed
// ticket carries the idempotency key.
var ErrTicketNotResolved = errors.New("mojito: created ticket id could not be resolved")

// StatusError is a non-2xx response from the Mojito360 API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mojito %s: unexpected status %d", e.Operation, e.StatusCode)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client talks to the Mojito360 REST API.
// A fresh client-credentials token is requested for every call.
type Client struct {
	cfg        config.MojitoConfig
	origin     string
	httpClient *http.Client
	tokens     *clientcredentials.Config
	logger     *zap.Logger
}

// NewClient builds a client. cfg should already have passed Validate.
func NewClient(cfg config.MojitoConfig, origin string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		origin:     origin,
		httpClient: &http.Client{Timeout: timeout},
		tokens: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		},
		logger: logger,
	}
}

// CreateTicket creates an external ticket and returns its id. key is sent as the
// idempotency key and used to find the ticket when the response omits the id.
func (c *Client) CreateTicket(ctx context.Context, key string, fields TicketFields) (ExternalID, error) {
	form := fields.values()
	form.Set("external_key", key)

	var created createResponse
	err := c.do(ctx, "create_ticket", http.MethodPost, "/tickets", form, map[string]string{IdempotencyHeader: key}, &created)
	if err != nil {
		return "", err
	}
	if id := created.externalID(); id.IsNumeric() {
		return id, nil
	}

	c.logger.Warn("mojito create returned no id, resolving by idempotency key", zap.String("key", key))
	return c.findByKey(ctx, key)
}

func (c *Client) findByKey(ctx context.Context, key string) (ExternalID, error) {
	var listed []ticketDocument
	path := "/tickets?" + url.Values{"external_key": {key}}.Encode()
	if err := c.do(ctx, "list_tickets", http.MethodGet, path, nil, nil, &listed); err != nil {
		return "", err
	}
	for _, doc := range listed {
		if doc.ExternalKey == key && doc.ID != "" {
			return doc.ID, nil
		}
	}
	return "", ErrTicketNotResolved
}

// UpdateTicket pushes field changes. Empty fields are not sent.
func (c *Client) UpdateTicket(ctx context.Context, id ExternalID, fields TicketFields) error {
	return c.do(ctx, "update_ticket", http.MethodPut, "/tickets/"+url.PathEscape(id.String()), fields.values(), nil, nil)
}

// AddMessage appends a message to the external ticket thread.
func (c *Client) AddMessage(ctx context.Context, id ExternalID, content, authorEmail string) error {
	form := url.Values{}
	form.Set("content", content)
	if authorEmail != "" {
		form.Set("user_email", authorEmail)
	}
	return c.do(ctx, "add_message", http.MethodPost, "/tickets/"+url.PathEscape(id.String())+"/messages", form, nil, nil)
}

// Ping checks that the API accepts our credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/tickets?limit=1", nil, nil, nil)
}

func (f TicketFields) values() url.Values {
	form := url.Values{}
	set := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			form.Set(key, value)
		}
	}
	set("subject", f.Subject)
	set("description", f.Description)
	set("category", f.Category)
	set("company", f.Company)
	set("user_email", f.UserEmail)
	set("status", f.Status)
	return form
}

// do runs one API call with bounded exponential retry on network errors, 429 and 5xx.
func (c *Client) do(ctx context.Context, operation, method, path string, form url.Values, headers map[string]string, out any) error {
	backoff := retry.WithMaxRetries(uint64(max(c.cfg.MaxRetries, 0)), retry.NewExponential(c.retryBase()))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, operation, method, path, form, headers, out)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			c.logger.Warn("mojito call failed, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) retryBase() time.Duration {
	if c.cfg.RetryBaseDelay <= 0 {
		return 250 * time.Millisecond
	}
	return c.cfg.RetryBaseDelay
}

func (c *Client) once(ctx context.Context, operation, method, path string, form url.Values, headers map[string]string, out any) error {
	token, err := c.tokens.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return fmt.Errorf("mojito token: %w", err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build mojito request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(OriginHeader, c.origin)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mojito %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode mojito %s response: %w", operation, err)
	}
	return nil
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.retryable()
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		if tokenErr.Response == nil {
			return true
		}
		code := tokenErr.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
