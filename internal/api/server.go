// Package api exposes the download controller over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ytget/vod-downloader/internal/download"
	"github.com/ytget/vod-downloader/internal/model"
)

// Server timeouts
const (
	ReadTimeout     = 60 * time.Second
	WriteTimeout    = 60 * time.Second
	ShutdownTimeout = 30 * time.Second
)

type submitReq struct {
	URLs     []string `json:"urls"`
	Template string   `json:"template"`
}

type submitResp struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type taskResp struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	Destination string  `json:"destination,omitempty"`
	State       string  `json:"state"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason,omitempty"`
	Error       string  `json:"error,omitempty"`
	Progress    float64 `json:"progress"`
	Percent     int     `json:"percent"`
	Speed       string  `json:"speed,omitempty"`
	ETASec      int     `json:"eta_sec"`
	Runs        int     `json:"runs"`
	CreatedAt   int64   `json:"created_at_ms"`
}

type errorResp struct {
	Error string `json:"error"`
}

func newTaskResp(t model.Task) taskResp {
	return taskResp{
		ID:          t.ID,
		Source:      t.Source,
		Title:       t.GetDisplayTitle(),
		Destination: t.Destination,
		State:       t.State.String(),
		Status:      t.StatusText(),
		Reason:      string(t.Reason),
		Error:       t.LastError,
		Progress:    t.Progress,
		Percent:     t.Percent,
		Speed:       t.Speed,
		ETASec:      t.ETASec,
		Runs:        t.Runs,
		CreatedAt:   t.CreatedAt.UnixMilli(),
	}
}

// Server routes control requests to a download controller
type Server struct {
	ctl    download.Controller
	router *chi.Mux
}

// NewServer builds the router over ctl
func NewServer(ctl download.Controller) *Server {
	s := &Server{ctl: ctl, router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/summary", s.summary)
	s.router.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.submit)
		r.Post("/stop", s.stopAll)
		r.Get("/{id}", s.get)
		r.Post("/{id}/pause", s.control(s.ctl.Pause))
		r.Post("/{id}/resume", s.control(s.ctl.Resume))
		r.Post("/{id}/stop", s.control(s.ctl.Stop))
	})

	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("control API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("control API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, download.ErrEmptySource)
		return
	}

	tasks, err := s.ctl.SubmitMany(r.Context(), req.URLs, req.Template)
	if len(tasks) == 0 && err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err != nil {
		log.Warn().Err(err).Int("accepted", len(tasks)).Msg("partial submission")
	}

	resp := make([]submitResp, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, submitResp{ID: t.ID, State: t.State.String()})
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	tasks := s.ctl.List()
	resp := make([]taskResp, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, newTaskResp(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	t, ok := s.ctl.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, download.ErrTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newTaskResp(t))
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Summary())
}

func (s *Server) stopAll(w http.ResponseWriter, r *http.Request) {
	s.ctl.StopAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) control(op func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(chi.URLParam(r, "id")); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// statusFor maps controller errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, download.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, download.ErrInvalidTransition), errors.Is(err, download.ErrDuplicateTask):
		return http.StatusConflict
	case errors.Is(err, download.ErrPauseUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, download.ErrEmptySource):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResp{Error: err.Error()})
}

// requestLogger logs one line per request with zerolog
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
