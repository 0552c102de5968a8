package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anydocai/docpipe/internal/api/handlers"
	"github.com/anydocai/docpipe/internal/config"
	"github.com/anydocai/docpipe/internal/core/ingestion_engine"
	objectclient "github.com/anydocai/docpipe/internal/core/object-client"
	"github.com/anydocai/docpipe/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, svc *services.IngestService, obj *objectclient.S3Client, ing *ingestion_engine.DocumentIngestor) *Server {
	docHandler := handlers.NewDocumentHandler(svc, obj, ing, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", docHandler.Health)

	r.Route("/api", func(api chi.Router) {
		api.Post("/documents/process", docHandler.ProcessDocument)
		api.Post("/documents/upload", docHandler.UploadDocument)
		api.Post("/documents/enqueue", docHandler.EnqueueDocument)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
