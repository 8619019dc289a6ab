package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartats/internal/config"
	"smartats/internal/observability"
)

// Start starts the HTTP server with all configured components
func (s *Server) Start() error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	// Feed pipeline outcomes into the metrics
	if metrics := om.GetMetrics(); metrics != nil {
		s.AIService.Pipeline.SetUsageRecorder(metrics)
	}

	if err := s.startPromptWatcher(); err != nil {
		return err
	}
	defer s.stopPromptWatcher()

	httpServer, err := s.setupHTTPServer(om)
	if err != nil {
		return err
	}

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.Manager, error) {
	om, err := observability.NewManager(s.AppConfig.Observability, s.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// startPromptWatcher starts hot reload of the custom analysis prompt when
// a prompt file is configured
func (s *Server) startPromptWatcher() error {
	promptFile := s.AppConfig.AI.CustomPromptFile
	if promptFile == "" {
		return nil
	}

	watcher := config.NewPromptWatcher(promptFile, 0, s.Logger)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start prompt watcher: %w", err)
	}
	s.PromptWatcher = watcher

	s.Logger.Info("Prompt hot reload enabled", "file", promptFile)
	return nil
}

func (s *Server) stopPromptWatcher() {
	if s.PromptWatcher == nil {
		return
	}
	if err := s.PromptWatcher.Stop(); err != nil {
		s.Logger.LogError(err, "Failed to stop prompt watcher")
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.Manager) (*http.Server, error) {
	handler := om.HTTPMiddleware()(s.setupRoutes(om))
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}, nil
}

// configureTLS applies the TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	tlsConfig, err := s.TLSConfig.BuildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}

	switch s.TLSConfig.Mode {
	case "server":
		fmt.Printf("Starting server with HTTPS (server-only TLS) on https://%s\n", httpServer.Addr)
	case "mutual":
		fmt.Printf("Starting server with mTLS (mutual TLS) on https://%s\n", httpServer.Addr)
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		fmt.Printf("Starting server on http://%s\n", httpServer.Addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
	}

	httpServer.TLSConfig = tlsConfig
	return nil
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())

		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.cleanupRateLimiter()

	if s.Store.Enabled() {
		if err := s.Store.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close review store")
		}
	}

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
