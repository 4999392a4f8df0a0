// Package api exposes the book back office over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter wires every route of h.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/images/{key}", h.Image)

	r.Route("/books", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/", h.ListBooks)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetBook)
			r.Put("/", h.UpdateBook)
			r.Delete("/", h.DeleteBook)
			r.Post("/reanalyze", h.Reanalyze)
			r.Get("/shipping", h.Shipping)

			r.Post("/booklooker", h.PublishBooklooker)
			r.Get("/booklooker/status", h.BooklookerStatus)
			r.Post("/ebay", h.PublishEbay)
			r.Get("/ebay/status", h.EbayStatus)
		})
	})

	r.Route("/marketplaces", func(r chi.Router) {
		r.Get("/booklooker/verify", h.VerifyBooklooker)
		r.Get("/ebay/verify", h.VerifyEbay)
	})

	return r
}

// accessLog writes one zerolog event per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("requestID", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
