// Package server wires the study engine runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/StanNowak/Surveys/internal/platform/config"
	"github.com/StanNowak/Surveys/internal/platform/timeouts"
	"github.com/StanNowak/Surveys/internal/services/study/api/rest"
	"github.com/StanNowak/Surveys/internal/services/study/auth"
	"github.com/StanNowak/Surveys/internal/services/study/balancer"
	"github.com/StanNowak/Surveys/internal/services/study/content"
	studysqlite "github.com/StanNowak/Surveys/internal/services/study/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type serverEnv struct {
	DBPath         string   `env:"SURVEYS_DB_PATH"`
	ContentDir     string   `env:"SURVEYS_CONTENT_DIR"`
	AllowedOrigins []string `env:"SURVEYS_ALLOWED_ORIGINS" envSeparator:","`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "study.db")
	}
	if strings.TrimSpace(cfg.ContentDir) == "" {
		cfg.ContentDir = "studies"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return cfg
}

// Server hosts the study engine HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *studysqlite.Store
}

// New creates a configured study engine server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured study engine server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := openStudyStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	library, err := content.NewLibrary(env.ContentDir)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("open content library: %w", err)
	}

	authConfig, err := auth.LoadConfigFromEnv(nil)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if !authConfig.Enabled() {
		log.Printf("token verification disabled; accepting any bearer token")
	}

	handler := rest.NewHandler(balancer.NewService(store), store, library, auth.NewVerifier(authConfig))
	mux := http.NewServeMux()
	handler.Routes(mux)

	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(rest.CORS(env.AllowedOrigins, mux), "studyengine"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a study engine server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("study engine listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown study engine: %v", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases study engine server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close study store: %v", err)
		}
	}
}

func openStudyStore(path string) (*studysqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := studysqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open study sqlite store: %w", err)
	}
	return store, nil
}
