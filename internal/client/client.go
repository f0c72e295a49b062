package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// TokenSource supplies the bearer token attached to every outgoing call.
type TokenSource interface {
	Token() string
}

// Resource is a REST client for one backend collection. Every call hits the
// network: there is no retry, timeout policy or caching at this layer.
type Resource[T any] struct {
	name    string
	baseURL string
	tokens  TokenSource
	http    *http.Client
	logger  *logrus.Logger
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

func NewResource[T any](name, baseURL string, tokens TokenSource, opts ...Option) *Resource[T] {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
		o.logger.SetOutput(io.Discard)
	}

	return &Resource[T]{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    o.httpClient,
		logger:  o.logger,
	}
}

// Name returns the resource name used in error messages.
func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) GetAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.do(ctx, "fetch", http.MethodGet, "/getall", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Resource[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var item T
	if err := r.do(ctx, "fetch", http.MethodGet, "/get/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) GetByUser(ctx context.Context, userID string) ([]T, error) {
	var items []T
	if err := r.do(ctx, "fetch", http.MethodGet, "/getbyuser/"+url.PathEscape(userID), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create posts payload as JSON and returns the stored entity.
func (r *Resource[T]) Create(ctx context.Context, payload any) (*T, error) {
	var item T
	if err := r.do(ctx, "create", http.MethodPost, "/create", payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update sends a partial JSON body. Keys absent from patch are left untouched
// by the backend.
func (r *Resource[T]) Update(ctx context.Context, id string, patch any) (*T, error) {
	var item T
	if err := r.do(ctx, "update", http.MethodPut, "/update/"+url.PathEscape(id), patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.do(ctx, "delete", http.MethodDelete, "/delete/"+url.PathEscape(id), nil, nil)
}

func (r *Resource[T]) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", r.name, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return &APIError{Op: op, Resource: r.name, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.tokens != nil {
		if token := r.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Error("Backend request failed")
		return &APIError{Op: op, Resource: r.name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, Resource: r.name, Status: resp.StatusCode, Err: err}
	}

	r.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(op, r.name, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decode(data, out); err != nil {
		return &APIError{Op: op, Resource: r.name, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// decode accepts both a bare body and one wrapped in {"data": ...}.
func decode(data []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(data, out)
}
