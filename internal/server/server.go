package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"CoinForecast/internal/exporter"
	"CoinForecast/internal/model"
	"CoinForecast/internal/recorder"
)

// Runner produces and remembers pipeline runs.
type Runner interface {
	RunNow() (*model.RunResult, error)
	Latest() *model.RunResult
}

// Server exposes the latest forecast over HTTP.
type Server struct {
	Runner        Runner
	Recorder      recorder.Recorder
	OutputPath    string
	AllowedOrigin string
}

var endpoints = map[string]string{
	"health":      "GET /api/health",
	"predictions": "GET /api/predictions",
	"refresh":     "POST /api/predictions/refresh",
	"latestRun":   "GET /api/runs/latest",
	"file":        "GET /predictions.json",
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/api/health", s.health)
	r.Get("/api/predictions", s.predictions)
	r.Post("/api/predictions/refresh", s.refresh)
	r.Get("/api/runs/latest", s.latestRun)
	r.Get("/predictions.json", s.file)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success":            false,
			"message":            "route not found",
			"requestedPath":      r.URL.Path,
			"method":             r.Method,
			"availableEndpoints": endpoints,
			"timestamp":          time.Now().Format(time.RFC3339),
		})
	})
	return r
}

// NewHTTPServer wraps the router with the server timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        s.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AllowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.AllowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Crypto       string               `json:"crypto"`
	Currency     string               `json:"currency"`
	CurrentPrice float64              `json:"currentPrice"`
	PriceSource  model.PriceSource    `json:"priceSource"`
	LastUpdated  string               `json:"lastUpdated"`
	Predictions  exporter.Predictions `json:"predictions"`
}

func newEnvelope(res *model.RunResult) envelope {
	return envelope{
		Crypto:       res.Quote.CoinID,
		Currency:     res.Quote.Currency,
		CurrentPrice: res.Quote.Price,
		PriceSource:  res.Quote.Source,
		LastUpdated:  res.FinishedAt.Format(time.RFC3339),
		Predictions:  exporter.Predictions(res.Forecasts),
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":     "OK",
		"serverTime": time.Now().Format(time.RFC3339),
		"lastRun":    nil,
	}
	if res := s.Runner.Latest(); res != nil {
		body["lastRun"] = res.FinishedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) predictions(w http.ResponseWriter, _ *http.Request) {
	res := s.Runner.Latest()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "no forecast generated yet")
		return
	}
	writeJSON(w, http.StatusOK, newEnvelope(res))
}

func (s *Server) refresh(w http.ResponseWriter, _ *http.Request) {
	res, err := s.Runner.RunNow()
	if err != nil {
		log.Printf("[ERROR] refresh: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newEnvelope(res))
}

func (s *Server) latestRun(w http.ResponseWriter, _ *http.Request) {
	evt, err := s.Recorder.LatestRun()
	if errors.Is(err, recorder.ErrNoRuns) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.Printf("[ERROR] latest run: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	body := map[string]any{
		"id":          evt.ID,
		"timestamp":   evt.Timestamp.Format(time.RFC3339),
		"coin":        evt.CoinID,
		"currency":    evt.Currency,
		"price":       evt.Price,
		"priceSource": evt.PriceSource,
		"fetchError":  evt.FetchError,
		"outputPath":  evt.OutputPath,
		"history":     evt.History,
		"horizons":    evt.Horizons,
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) file(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.OutputPath); err != nil {
		writeError(w, http.StatusNotFound, "predictions file not written yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, s.OutputPath)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}
