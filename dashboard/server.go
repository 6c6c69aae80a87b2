// Package dashboard serves read-only JSON views of the running swap
// session: the current quote, fee estimates, submission state, and the
// journaled attempt history.
package dashboard

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/runevault/swapcore/internal"
	"github.com/runevault/swapcore/internal/services/submit"
)

const statusPollInterval = 3 * time.Second

type statusSource interface {
	Status() internal.Status
}

type attemptSource interface {
	Attempts() ([]submit.Attempt, error)
}

// Server exposes HTTP endpoints serving session status JSON and an SSE
// status stream.
type Server struct {
	Addr     string
	Session  statusSource
	Attempts attemptSource
}

// NewServer creates a new dashboard server instance. attempts may be nil
// when no journal is configured.
func NewServer(addr string, session statusSource, attempts attemptSource) *Server {
	return &Server{Addr: addr, Session: session, Attempts: attempts}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/status/stream", s.handleStatusStream)
	mux.HandleFunc("/attempts", s.handleAttempts)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	// HTTP server on port 80 for ACME challenges and HTTP->HTTPS redirects.
	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http (acme) server shutdown error: %v", err)
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("https server shutdown error: %v", err)
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http (acme) server error: %v", err)
		}
	}()

	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.Session == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "session not available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := json.NewEncoder(w).Encode(s.Session.Status()); err != nil {
		log.Printf("status encode err: %v", err)
	}
}

func (s *Server) handleAttempts(w http.ResponseWriter, _ *http.Request) {
	if s.Attempts == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "attempt journal not available")
		return
	}

	attempts, err := s.Attempts.Attempts()
	if err != nil {
		http.Error(w, "failed to load attempts", http.StatusInternalServerError)
		log.Printf("attempt replay err: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := json.NewEncoder(w).Encode(attempts); err != nil {
		log.Printf("attempts encode err: %v", err)
	}
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "session not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// send a comment heartbeat every 20s so proxies keep connection
	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(statusPollInterval)
	defer pollTicker.Stop()

	var lastPayload string
	sendStatus := func() error {
		payload, err := json.Marshal(s.Session.Status())
		if err != nil {
			return err
		}
		// only emit on change to keep the stream quiet between edits
		if string(payload) == lastPayload {
			return nil
		}
		lastPayload = string(payload)
		fmt.Fprintf(w, "event: status\n")
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return nil
	}

	if err := sendStatus(); err != nil {
		http.Error(w, "failed to load status", http.StatusInternalServerError)
		log.Printf("status stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendStatus(); err != nil {
				log.Printf("status stream poll err: %v", err)
			}
		}
	}
}
