package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
	"SocialPoster/internal/usecase"
)

// Deps carries everything the HTTP surface needs. History may be nil when no
// database is configured.
type Deps struct {
	Pipeline   *usecase.Pipeline
	Quiz       func(language string) *usecase.QuizPipeline
	Producer   *usecase.Producer
	Publishers map[domain.Platform]ports.Publisher
	History    ports.OutcomeRepository
	Logger     *slog.Logger
}

// Server exposes the pipeline over HTTP: trigger a pass, inspect candidates,
// read the audit history.
type Server struct {
	deps   Deps
	router *mux.Router
	server *http.Server
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{deps: deps, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/fetch", s.handleFetch).Methods(http.MethodGet)
	s.router.HandleFunc("/api/post/{platform}", s.handlePost).Methods(http.MethodPost)
	s.router.HandleFunc("/api/quiz/{language}", s.handleQuiz).Methods(http.MethodPost)
	s.router.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // a full pipeline pass publishes serially with delays
	}
	s.deps.Logger.Info("http server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.deps.Pipeline.FetchOnly(r.Context())
	if err != nil {
		s.fail(w, http.StatusBadGateway, err)
		return
	}

	type candidateView struct {
		SourceID string `json:"sourceId"`
		Title    string `json:"title"`
		Feed     string `json:"feed"`
		Link     string `json:"link,omitempty"`
		Image    string `json:"image,omitempty"`
	}
	views := make([]candidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, candidateView{
			SourceID: c.SourceID,
			Title:    c.Title,
			Feed:     c.FeedName,
			Link:     c.ExternalLink,
			Image:    c.ImageHint,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"count":      len(views),
		"candidates": views,
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	publishers, ok := s.resolvePublishers(mux.Vars(r)["platform"])
	if !ok {
		s.fail(w, http.StatusNotFound, errors.New("unknown platform"))
		return
	}

	if r.URL.Query().Get("source") == "library" {
		s.handleLibraryPost(w, r, publishers)
		return
	}

	report, err := s.deps.Pipeline.Run(r.Context(), publishers)
	s.writeReport(w, report, err)
}

// handleLibraryPost republishes the oldest stored image instead of running
// the full fetch/select/render path.
func (s *Server) handleLibraryPost(w http.ResponseWriter, r *http.Request, publishers []ports.Publisher) {
	var body struct {
		Caption string `json:"caption"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Caption == "" {
		body.Caption = "From the archive."
	}

	artifact, err := s.deps.Producer.FromLibrary(r.Context(), body.Caption)
	if err != nil {
		s.fail(w, http.StatusBadGateway, err)
		return
	}

	report := s.deps.Pipeline.Publish(r.Context(), []domain.Artifact{artifact}, publishers)
	s.writeReport(w, report, nil)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	language := mux.Vars(r)["language"]
	publishers, _ := s.resolvePublishers("all")

	report, err := s.deps.Quiz(language).Run(r.Context(), language, publishers)
	s.writeReport(w, report, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.fail(w, http.StatusNotFound, errors.New("history is not configured"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	type recordView struct {
		Platform   string    `json:"platform"`
		Title      string    `json:"title"`
		Success    bool      `json:"success"`
		ExternalID string    `json:"externalId,omitempty"`
		Error      string    `json:"error,omitempty"`
		CreatedAt  time.Time `json:"createdAt"`
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			Platform:   string(rec.Platform),
			Title:      rec.Title,
			Success:    rec.Success,
			ExternalID: rec.ExternalID,
			Error:      rec.Error,
			CreatedAt:  rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "records": views})
}

func (s *Server) resolvePublishers(name string) ([]ports.Publisher, bool) {
	if name == "all" {
		out := make([]ports.Publisher, 0, len(s.deps.Publishers))
		for _, p := range []domain.Platform{domain.PlatformInstagram, domain.PlatformTwitter} {
			if pub, ok := s.deps.Publishers[p]; ok {
				out = append(out, pub)
			}
		}
		return out, len(out) > 0
	}
	pub, ok := s.deps.Publishers[domain.Platform(name)]
	if !ok {
		return nil, false
	}
	return []ports.Publisher{pub}, true
}

// writeReport maps pipeline outcomes to HTTP: full success is 200, a pass
// with any failed pair is 207, and the empty-input conditions come back as a
// success:false envelope rather than an opaque 5xx.
func (s *Server) writeReport(w http.ResponseWriter, report domain.Report, err error) {
	if err != nil {
		if errors.Is(err, usecase.ErrNoNewContent) || errors.Is(err, usecase.ErrNothingProduced) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
			return
		}
		s.fail(w, http.StatusBadGateway, err)
		return
	}

	status := http.StatusOK
	if !report.Success {
		status = http.StatusMultiStatus
	}

	type outcomeView struct {
		Platform   string `json:"platform"`
		Title      string `json:"title"`
		Success    bool   `json:"success"`
		ExternalID string `json:"externalId,omitempty"`
		Error      string `json:"error,omitempty"`
	}
	views := make([]outcomeView, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		views = append(views, outcomeView{
			Platform:   string(o.Platform),
			Title:      o.Title,
			Success:    o.Success,
			ExternalID: o.ExternalID,
			Error:      o.Error,
		})
	}

	writeJSON(w, status, map[string]any{"success": report.Success, "outcomes": views})
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.deps.Logger.Error("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
