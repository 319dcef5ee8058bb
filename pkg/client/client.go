// Package client talks to the workflow builder REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/machinehq/flowbuilder/pkg/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultBulkConcurrency = 4
)

var ErrMissingID = errors.New("id is required")

// APIError is a non-2xx response, decoded from an RFC 7807 problem document when possible.
type APIError struct {
	StatusCode int    `json:"status"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
	}

	if e.Title != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Title)
	}

	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsValidationError reports whether err is a 400 from the API.
func IsValidationError(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger
	concurrency int
}

type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBulkConcurrency bounds the parallel requests issued by bulk operations.
func WithBulkConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:      slog.Default(),
		concurrency: defaultBulkConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("module", "client")

	return c
}

func (c *Client) GetProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}

	return projects, nil
}

func (c *Client) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	if id == "" {
		return nil, ErrMissingID
	}

	var workflow models.Workflow
	if err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil, &workflow); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error) {
	var workflow models.Workflow
	if err := c.do(ctx, http.MethodPost, "/workflows", req, &workflow); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) UpdateWorkflow(ctx context.Context, id string, req models.UpdateWorkflowRequest) error {
	if id == "" {
		return ErrMissingID
	}

	return c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id), req, nil)
}

// AutoSaveWorkflowFlow replaces the graph and metadata of a workflow.
func (c *Client) AutoSaveWorkflowFlow(ctx context.Context, id string, req models.AutoSaveFlowRequest) error {
	if id == "" {
		return ErrMissingID
	}

	return c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id)+"/flow", req, nil)
}

func (c *Client) UpdateWorkflowStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	if id == "" {
		return ErrMissingID
	}

	return c.do(ctx, http.MethodPatch, "/workflows/"+url.PathEscape(id)+"/status",
		models.UpdateStatusRequest{Status: status}, nil)
}

// ExecuteWorkflow starts a run and returns the id of the thread created for it.
func (c *Client) ExecuteWorkflow(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrMissingID
	}

	var resp models.ExecuteWorkflowResponse
	if err := c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(id)+"/execute", nil, &resp); err != nil {
		return "", err
	}

	return resp.ThreadID, nil
}

func (c *Client) DeleteThread(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	return c.do(ctx, http.MethodDelete, "/threads/"+url.PathEscape(id), nil, nil)
}

// BulkDeleteResult reports each deletion separately. Successes are never rolled back.
type BulkDeleteResult struct {
	Succeeded []string
	Failed    []string
	Errors    map[string]error
}

// DeleteThreads deletes every thread, continuing past failures.
func (c *Client) DeleteThreads(ctx context.Context, ids []string) BulkDeleteResult {
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			errs[i] = c.DeleteThread(gctx, id)

			return nil
		})
	}

	_ = g.Wait()

	result := BulkDeleteResult{Errors: make(map[string]error)}

	for i, id := range ids {
		if errs[i] != nil {
			result.Failed = append(result.Failed, id)
			result.Errors[id] = errs[i]

			continue
		}

		result.Succeeded = append(result.Succeeded, id)
	}

	if len(result.Failed) > 0 {
		c.logger.WarnContext(ctx, "Some threads could not be deleted",
			"succeeded", len(result.Succeeded), "failed", len(result.Failed))
	}

	return result
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.DebugContext(ctx, "API request failed", "method", method, "path", path, "status", resp.StatusCode)

		return decodeProblem(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeProblem(status int, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Title == "" && apiErr.Detail == "") {
		apiErr = &APIError{Detail: strings.TrimSpace(string(body))}
	}

	apiErr.StatusCode = status

	return apiErr
}
