package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/campuskit/checklists/internal/model"
)

// Client is a thin HTTP client for the checklist service REST API.
// It handles Bearer token authentication, JSON marshaling, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

var _ Service = (*Client)(nil)

// NewClient creates a new service client. The baseURL should be the
// root URL of the checklist service (e.g. https://api.example.com).
// The token is a per-user access token used for Bearer authentication.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
	}
}

// errorResponse is the service's error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden {
			return &AuthError{
				Message: fmt.Sprintf(
					"status %d on %s %s: check your access token",
					resp.StatusCode, method, path,
				),
			}
		}

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var svcErr errorResponse
			if json.Unmarshal(respBody, &svcErr) == nil &&
				(svcErr.Error != "" || svcErr.Message != "") {
				return fmt.Errorf(
					"service error (%d) on %s %s: %s %s",
					resp.StatusCode, method, path, svcErr.Error, svcErr.Message,
				)
			}
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody),
			)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w", method, path, err,
			)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// FetchUserChecklists returns every checklist owned by the user, each
// with its nested item list.
func (c *Client) FetchUserChecklists(
	ctx context.Context,
	userID string,
) ([]model.Checklist, error) {
	var out []model.Checklist
	path := "/v1/users/" + url.PathEscape(userID) + "/checklists?include=items"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching checklists for user %s: %w", userID, err)
	}
	return out, nil
}

// CreateChecklist creates a checklist and returns the server-assigned entity.
func (c *Client) CreateChecklist(
	ctx context.Context,
	userID string,
	draft ChecklistDraft,
) (*model.Checklist, error) {
	var out model.Checklist
	path := "/v1/users/" + url.PathEscape(userID) + "/checklists"
	if err := c.do(ctx, http.MethodPost, path, draft, &out); err != nil {
		return nil, fmt.Errorf("creating checklist: %w", err)
	}
	return &out, nil
}

// UpdateChecklist applies a partial-field patch to a checklist.
func (c *Client) UpdateChecklist(
	ctx context.Context,
	id string,
	patch model.ChecklistPatch,
) error {
	path := "/v1/checklists/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, patch, nil); err != nil {
		return fmt.Errorf("updating checklist %s: %w", id, err)
	}
	return nil
}

// DeleteChecklist removes a checklist. The service cascades the delete
// to every item.
func (c *Client) DeleteChecklist(ctx context.Context, id string) error {
	path := "/v1/checklists/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting checklist %s: %w", id, err)
	}
	return nil
}

// CreateItem creates an item and returns the server-assigned entity.
func (c *Client) CreateItem(
	ctx context.Context,
	userID string,
	draft ItemDraft,
) (*model.Item, error) {
	var out model.Item
	path := "/v1/users/" + url.PathEscape(userID) + "/items"
	if err := c.do(ctx, http.MethodPost, path, draft, &out); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}
	return &out, nil
}

// UpdateItem applies a partial-field patch to an item.
func (c *Client) UpdateItem(
	ctx context.Context,
	id string,
	patch model.ItemPatch,
) error {
	path := "/v1/items/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, patch, nil); err != nil {
		return fmt.Errorf("updating item %s: %w", id, err)
	}
	return nil
}

// DeleteItem removes a single item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	path := "/v1/items/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	return nil
}

// ToggleItem sets an item's completion flag.
func (c *Client) ToggleItem(ctx context.Context, id string, completed bool) error {
	path := "/v1/items/" + url.PathEscape(id) + "/toggle"
	body := map[string]bool{"is_completed": completed}
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("toggling item %s: %w", id, err)
	}
	return nil
}

// ReorderItems persists new sort positions for a batch of items.
func (c *Client) ReorderItems(ctx context.Context, entries []SortEntry) error {
	if len(entries) == 0 {
		return nil
	}
	body := map[string][]SortEntry{"items": entries}
	if err := c.do(ctx, http.MethodPost, "/v1/items/reorder", body, nil); err != nil {
		return fmt.Errorf("reordering %d items: %w", len(entries), err)
	}
	return nil
}

// FetchTemplates lists the shared checklist blueprints.
func (c *Client) FetchTemplates(ctx context.Context) ([]model.Template, error) {
	var out []model.Template
	if err := c.do(ctx, http.MethodGet, "/v1/templates?include=items", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching templates: %w", err)
	}
	return out, nil
}

// CopyTemplateToUser instantiates a template into a new checklist owned
// by the user, returning the created checklist with its items.
func (c *Client) CopyTemplateToUser(
	ctx context.Context,
	userID, templateID string,
) (*model.Checklist, error) {
	var out model.Checklist
	path := "/v1/templates/" + url.PathEscape(templateID) + "/copy"
	body := map[string]string{"user_id": userID}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, fmt.Errorf("copying template %s: %w", templateID, err)
	}
	return &out, nil
}
