// Package oauth hosts the loopback listener the Google OAuth redirect lands
// on. The browser handles the provider consent screen; this server only
// exists to catch the final redirect carrying the state/code pair.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// CallbackPath is the route registered with the provider as the redirect
// URI path.
const CallbackPath = "/auth/google/callback"

// Result carries the provider redirect parameters.
type Result struct {
	State string
	Code  string
}

// Server is a one-shot callback listener.
type Server struct {
	ln      net.Listener
	srv     *http.Server
	results chan Result
}

// Start begins listening on addr (host:port; port 0 picks a free one).
func Start(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	s := &Server{
		ln:      ln,
		results: make(chan Result, 1),
	}

	r := chi.NewRouter()
	r.Get(CallbackPath, s.handleCallback)

	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Listener failures surface as a Wait timeout; nothing else to do.
			_ = err
		}
	}()
	return s, nil
}

// Addr returns the bound address, useful when the port was chosen by the OS.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// RedirectURI returns the full redirect URI to hand to the provider.
func (s *Server) RedirectURI() string {
	return "http://" + s.Addr() + CallbackPath
}

// Wait blocks until the redirect arrives or the context ends.
func (s *Server) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-s.results:
		return res, nil
	}
}

// Close shuts the listener down.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Error(w, "missing state or code", http.StatusBadRequest)
		return
	}
	select {
	case s.results <- Result{State: state, Code: code}:
	default:
		// A second redirect after the first was consumed is ignored.
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><body>Signed in. You can close this window and return to the terminal.</body></html>"))
}
