// Package api exposes the HTTP interface for the chart service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/app"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/chart"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/links"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/metrics"
)

// Server wires HTTP handlers to the chart and link services.
type Server struct {
	router chi.Router
	charts app.ChartService
	links  app.LinkService
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(charts app.ChartService, linkSvc app.LinkService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		charts: charts,
		links:  linkSvc,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/charts/{date}", func(r chi.Router) {
			r.Get("/", s.getChart)
			r.Get("/links", s.getChartWithLinks)
		})
		r.Get("/links", s.getLink)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// No stateful dependencies to probe; upstream reachability is
	// checked per request.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	date, size, ok := s.chartParams(w, r)
	if !ok {
		return
	}
	snapshot, err := s.charts.GetChart(r.Context(), date, size)
	if err != nil {
		s.writeChartError(w, date, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// resolvedEntry joins a chart entry with its link by rank at render
// time; the two are never stored together.
type resolvedEntry struct {
	chart.Entry
	Link links.Link `json:"link"`
}

type resolvedChart struct {
	Date    string          `json:"date"`
	Entries []resolvedEntry `json:"entries"`
}

func (s *Server) getChartWithLinks(w http.ResponseWriter, r *http.Request) {
	date, size, ok := s.chartParams(w, r)
	if !ok {
		return
	}
	snapshot, err := s.charts.GetChart(r.Context(), date, size)
	if err != nil {
		s.writeChartError(w, date, err)
		return
	}

	resolved := resolvedChart{
		Date:    snapshot.Date.Format(chart.DateLayout),
		Entries: make([]resolvedEntry, 0, len(snapshot.Entries)),
	}
	for _, entry := range snapshot.Entries {
		resolved.Entries = append(resolved.Entries, resolvedEntry{
			Entry: entry,
			Link:  s.links.GetLink(r.Context(), entry.Title, entry.Artist),
		})
	}
	writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) getLink(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	artist := r.URL.Query().Get("artist")
	if title == "" || artist == "" {
		writeError(w, http.StatusBadRequest, "title and artist are required")
		return
	}
	writeJSON(w, http.StatusOK, s.links.GetLink(r.Context(), title, artist))
}

func (s *Server) chartParams(w http.ResponseWriter, r *http.Request) (time.Time, int, bool) {
	raw := chi.URLParam(r, "date")
	date, err := time.Parse(chart.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return time.Time{}, 0, false
	}

	size := 0
	if q := r.URL.Query().Get("size"); q != "" {
		size, err = strconv.Atoi(q)
		if err != nil || size <= 0 {
			writeError(w, http.StatusBadRequest, "size must be a positive integer")
			return time.Time{}, 0, false
		}
	}
	return date, size, true
}

func (s *Server) writeChartError(w http.ResponseWriter, date time.Time, err error) {
	s.logger.Warn("chart request failed",
		zap.String("date", date.Format(chart.DateLayout)),
		zap.Error(err),
	)
	if errors.Is(err, chart.ErrNoEntries) {
		writeError(w, http.StatusNotFound, "could not extract a chart for this date")
		return
	}
	writeError(w, http.StatusBadGateway, "could not load chart for this date")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
