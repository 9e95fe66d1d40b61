package report

import (
	"fmt"
	"net/http"

	"github.com/zllovesuki/subpulse/auth"
	resp "github.com/zllovesuki/subpulse/response"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Provider hands out the most recently computed report, or nil before the first run
type Provider interface {
	Latest() *Report
}

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Provider Provider
	Gatherer prometheus.Gatherer // Optional. Exposes /metrics when set
	Auth     *auth.Auth          // Optional. Requires a Bearer token on the report endpoints when set
	Logger   *zap.Logger
}

// Service is the read-only report API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the report API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Provider == nil {
		return nil, fmt.Errorf("nil Provider is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) latest(w http.ResponseWriter, r *http.Request) *Report {
	report := s.Provider.Latest()
	if report == nil {
		resp.WriteError(w, r, resp.ErrNoReport())
	}
	return report
}

func (s *Service) getTree(w http.ResponseWriter, r *http.Request) {
	report := s.latest(w, r)
	if report == nil {
		return
	}
	resp.WriteResponse(w, r, Tree(report))
}

func (s *Service) getReport(w http.ResponseWriter, r *http.Request) {
	report := s.latest(w, r)
	if report == nil {
		return
	}
	resp.WriteResponse(w, r, report)
}

func (s *Service) getEntry(w http.ResponseWriter, r *http.Request) {
	report := s.latest(w, r)
	if report == nil {
		return
	}
	label := chi.URLParam(r, "label")
	entry, ok := report.Entry(label)
	if !ok {
		s.Logger.Debug("Window not found in report",
			zap.String("RunID", report.RunID),
			zap.String("Label", label),
		)
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find window with specific label"))
		return
	}
	resp.WriteResponse(w, r, entry)
}

// Router returns a http.Handler for the report endpoints
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		if s.Auth != nil {
			r.Use(s.Auth.Middleware())
		}
		r.Get("/report", s.getTree)
		r.Get("/report/flat", s.getReport)
		r.Get("/report/entries/{label}", s.getEntry)
	})

	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
