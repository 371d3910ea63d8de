package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"sketchbook/internal/domain"
)

// SiteDeps holds what the public site endpoints need beyond the canvas.
type SiteDeps struct {
	Visitors domain.VisitorStore
	Sessions sessionCounter
}

type sessionCounter interface {
	Len() int
}

// HealthResponse is the JSON body returned by GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Sessions      int    `json:"sessions"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ViewsResponse reports the page view counter after an increment.
type ViewsResponse struct {
	Page  string `json:"page"`
	Count int64  `json:"count"`
}

// RegisterSiteHandlers registers the public HTTP endpoints: health,
// the view counter, and the visitor message box.
func RegisterSiteHandlers(s *Server, deps SiteDeps) {
	startTime := time.Now()

	s.RegisterHTTPRoute("/api/v1/health", healthHandler(deps, startTime))
	s.RegisterHTTPRoute("/api/v1/views", viewsHandler(deps))
	s.RegisterHTTPRoute("/api/v1/messages", messagesHandler(deps))
}

func healthHandler(deps SiteDeps, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		resp := HealthResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
		}
		if deps.Sessions != nil {
			resp.Sessions = deps.Sessions.Len()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// viewsHandler bumps and returns the counter for a page. POST only, so
// crawlers hitting the API with GET do not inflate the count.
func viewsHandler(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "home"
		}

		count, err := deps.Visitors.IncrementViews(r.Context(), page)
		if err != nil {
			http.Error(w, "failed to record view", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ViewsResponse{Page: page, Count: count})
	}
}

type postMessageRequest struct {
	VisitorID string `json:"visitor_id"`
	Body      string `json:"body"`
}

const maxMessageBody = 2000

func messagesHandler(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req postMessageRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			if req.VisitorID == "" || req.Body == "" || len(req.Body) > maxMessageBody {
				http.Error(w, "invalid message", http.StatusBadRequest)
				return
			}

			msg := domain.VisitorMessage{
				ID:        ulid.Make().String(),
				VisitorID: req.VisitorID,
				Body:      req.Body,
				CreatedAt: time.Now().UTC(),
			}
			if err := deps.Visitors.AddMessage(r.Context(), msg); err != nil {
				http.Error(w, "failed to store message", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(msg)

		case http.MethodGet:
			visitorID := r.URL.Query().Get("visitor_id")
			if visitorID == "" {
				http.Error(w, "visitor_id required", http.StatusBadRequest)
				return
			}

			msgs, err := deps.Visitors.ListMessages(r.Context(), visitorID)
			if err != nil {
				http.Error(w, "failed to list messages", http.StatusInternalServerError)
				return
			}
			if msgs == nil {
				msgs = []domain.VisitorMessage{}
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string][]domain.VisitorMessage{"messages": msgs})

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
