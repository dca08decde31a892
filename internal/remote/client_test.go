package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campuskit/checklists/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", 5*time.Second)
}

func TestFetchUserChecklists(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path + "?" + r.URL.RawQuery

		json.NewEncoder(w).Encode([]model.Checklist{{
			ID:    "cl1",
			Title: "Visa Documents",
			Items: []model.Item{{ID: "i1", Title: "Passport copy"}},
		}})
	}))

	lists, err := c.FetchUserChecklists(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization = %q, want bearer token", gotAuth)
	}
	if gotPath != "/v1/users/u1/checklists?include=items" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if len(lists) != 1 || len(lists[0].Items) != 1 {
		t.Fatalf("unexpected payload: %+v", lists)
	}
}

func TestRateLimitRetryHonorsRetryAfter(t *testing.T) {
	var attempts int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]model.Checklist{})
	}))

	if _, err := c.FetchUserChecklists(context.Background(), "u1"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRateLimitExhaustsRetries(t *testing.T) {
	var attempts int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.FetchUserChecklists(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	// Initial attempt plus maxRetries.
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestUnauthorizedReturnsAuthError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.FetchUserChecklists(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsAuthError(err) {
		t.Errorf("expected an auth error, got %v", err)
	}
}

func TestNotFoundReturnsErrNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	err := c.DeleteItem(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
	if IsAuthError(err) {
		t.Error("not-found must not classify as an auth error")
	}
}

func TestServiceErrorEnvelopeIsSurfaced(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "validation_failed",
			"message": "title is required",
		})
	}))

	_, err := c.CreateChecklist(context.Background(), "u1", ChecklistDraft{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); !strings.Contains(got, "validation_failed") || !strings.Contains(got, "title is required") {
		t.Errorf("error should carry the service envelope, got %q", got)
	}
}

func TestUpdateItemSendsPatch(t *testing.T) {
	var body map[string]any
	var method string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))

	title := "Updated"
	patch := model.ItemPatch{Title: &title}
	if err := c.UpdateItem(context.Background(), "i1", patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", method)
	}
	if body["title"] != "Updated" {
		t.Errorf("patch body = %v, want title field only", body)
	}
	if _, ok := body["description"]; ok {
		t.Error("unset patch fields must be omitted from the body")
	}
}

func TestToggleItemPostsCompletionFlag(t *testing.T) {
	var body map[string]bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.ToggleItem(context.Background(), "i1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body["is_completed"] {
		t.Errorf("body = %v, want is_completed=true", body)
	}
}

func TestReorderItemsSkipsEmptyBatch(t *testing.T) {
	called := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	if err := c.ReorderItems(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("empty reorder must not issue a request")
	}
}

func TestCopyTemplateToUser(t *testing.T) {
	var gotPath string
	var body map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(model.Checklist{ID: "new-cl", Title: "From template"})
	}))

	created, err := c.CopyTemplateToUser(context.Background(), "u1", "tpl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v1/templates/tpl1/copy" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if body["user_id"] != "u1" {
		t.Errorf("body = %v, want user_id", body)
	}
	if created.ID != "new-cl" {
		t.Errorf("created id = %q", created.ID)
	}
}

func TestContextCancellationStopsRetry(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchUserChecklists(ctx, "u1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
