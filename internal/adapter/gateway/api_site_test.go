package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sketchbook/internal/domain"
)

type memVisitorStore struct {
	mu       sync.Mutex
	views    map[string]int64
	messages []domain.VisitorMessage
}

func newMemVisitorStore() *memVisitorStore {
	return &memVisitorStore{views: make(map[string]int64)}
}

func (s *memVisitorStore) IncrementViews(_ context.Context, page string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[page]++
	return s.views[page], nil
}

func (s *memVisitorStore) AddMessage(_ context.Context, msg domain.VisitorMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *memVisitorStore) ListMessages(_ context.Context, visitorID string) ([]domain.VisitorMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VisitorMessage
	for _, m := range s.messages {
		if m.VisitorID == visitorID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memVisitorStore) PruneMessages(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.VisitorMessage
	var pruned int64
	for _, m := range s.messages {
		if m.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return pruned, nil
}

func TestHealthHandler(t *testing.T) {
	deps := SiteDeps{Visitors: newMemVisitorStore()}
	handler := healthHandler(deps, time.Now())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestHealthHandlerRejectsPost(t *testing.T) {
	handler := healthHandler(SiteDeps{}, time.Now())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestViewsHandlerIncrements(t *testing.T) {
	store := newMemVisitorStore()
	handler := viewsHandler(SiteDeps{Visitors: store})

	for want := int64(1); want <= 3; want++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/views?page=about", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp ViewsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Count != want {
			t.Errorf("count = %d, want %d", resp.Count, want)
		}
		if resp.Page != "about" {
			t.Errorf("page = %q", resp.Page)
		}
	}
}

func TestViewsHandlerDefaultsToHomePage(t *testing.T) {
	store := newMemVisitorStore()
	handler := viewsHandler(SiteDeps{Visitors: store})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/views", nil))

	var resp ViewsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Page != "home" {
		t.Errorf("page = %q, want home", resp.Page)
	}
}

func TestViewsHandlerRejectsGet(t *testing.T) {
	handler := viewsHandler(SiteDeps{Visitors: newMemVisitorStore()})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/views", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMessagesHandlerPostAndList(t *testing.T) {
	store := newMemVisitorStore()
	handler := messagesHandler(SiteDeps{Visitors: store})

	body := `{"visitor_id":"v-1","body":"love the drawing cursor"}`
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var created domain.VisitorMessage
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Error("message ID is empty")
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/messages?visitor_id=v-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var resp map[string][]domain.VisitorMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["messages"]) != 1 {
		t.Errorf("messages = %d, want 1", len(resp["messages"]))
	}
}

func TestMessagesHandlerValidation(t *testing.T) {
	handler := messagesHandler(SiteDeps{Visitors: newMemVisitorStore()})

	cases := []string{
		`{"visitor_id":"","body":"hi"}`,
		`{"visitor_id":"v-1","body":""}`,
		`{"visitor_id":"v-1","body":"` + strings.Repeat("x", maxMessageBody+1) + `"}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %.30q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestMessagesHandlerListRequiresVisitorID(t *testing.T) {
	handler := messagesHandler(SiteDeps{Visitors: newMemVisitorStore()})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}
