package server

import "github.com/go-chi/chi/v5"

func (s *Server) routes(r chi.Router) {
	r.Get("/", s.handleHome)
	r.Get("/healthz", s.handleHealthz)
	r.Route("/api/query", func(r chi.Router) {
		r.Post("/execute", s.handleExecute)
	})
	r.Get("/updates", s.handleUpdates)
}
