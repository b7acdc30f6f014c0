package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tradefin-lab/rfpcore/pkg/usecase"
	"github.com/tradefin-lab/rfpcore/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

type Options func(*Server)

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/request-for-proposal", func(r chi.Router) {
		r.Post("/request", s.createRFPHandler)
		r.Post("/submit-quote", s.submitQuoteHandler)
		r.Post("/reject", s.rejectHandler)
		r.Post("/accept-quote", s.acceptQuoteHandler)
	})

	r.Route("/rd", func(r chi.Router) {
		r.Post("/", s.createRDHandler)
		r.Get("/{rdID}", s.getRDHandler)
		r.Get("/{rdID}/request-for-proposal", s.rfpSummaryHandler)
		r.Get("/{rdID}/request-for-proposal/{participantID}", s.participantSummaryHandler)
	})

	r.Route("/quote", func(r chi.Router) {
		r.Post("/", s.createQuoteHandler)
		r.Get("/{quoteID}", s.getQuoteHandler)
		r.Put("/{quoteID}", s.updateQuoteHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
