// Package remote is the typed HTTP client for the plan server, and the
// factory for the queue actions that replay plan mutations against it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/domain"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/queue"
)

var (
	// ErrPermanent marks responses that will not improve on retry (4xx).
	ErrPermanent = errors.New("permanent remote failure")
	// ErrNotFound is returned when the server has no plan under the id.
	ErrNotFound = errors.New("plan not found on server")
)

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

// Client talks to the plan server REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a Client. token may be empty for unauthenticated
// local-dev servers.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SavePlan upserts a plan on the server. The endpoint is idempotent, so a
// retried save after a partially-applied attempt converges.
func (c *Client) SavePlan(ctx context.Context, plan domain.WorkoutPlan) error {
	body, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("%w: encode plan: %v", ErrPermanent, err)
	}
	return c.do(ctx, http.MethodPut, "/v1/plans/"+url.PathEscape(plan.ID), body, nil)
}

// GetPlan fetches one plan by id.
func (c *Client) GetPlan(ctx context.Context, id string) (domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	err := c.do(ctx, http.MethodGet, "/v1/plans/"+url.PathEscape(id), nil, &plan)
	return plan, err
}

// ListPlans fetches every plan belonging to a user.
func (c *Client) ListPlans(ctx context.Context, userID string) ([]domain.WorkoutPlan, error) {
	var out struct {
		Plans []domain.WorkoutPlan `json:"plans"`
	}
	path := "/v1/plans?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

// DeletePlan removes a plan. A 404 counts as success so a replayed delete
// stays idempotent.
func (c *Client) DeletePlan(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/v1/plans/"+url.PathEscape(id), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// SaveAction returns a queue action that replays SavePlan for the given plan.
func (c *Client) SaveAction(plan domain.WorkoutPlan) queue.Action {
	return queue.ActionFunc(func(ctx context.Context) error {
		return c.SavePlan(ctx, plan)
	})
}

// DeleteAction returns a queue action that replays DeletePlan for the given id.
func (c *Client) DeleteAction(id string) queue.Action {
	return queue.ActionFunc(func(ctx context.Context) error {
		return c.DeletePlan(ctx, id)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrPermanent, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors are transient from the queue's point of view.
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrPermanent, resp.Status, bytes.TrimSpace(detail))
	default:
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
