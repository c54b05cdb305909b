// Package daemon serves the local control API over a unix socket. A lock
// file next to the socket keeps a second daemon from stealing it.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nv4818/webtrack/internal/api"
	"github.com/nv4818/webtrack/internal/config"
	"github.com/nv4818/webtrack/internal/core"
	"github.com/nv4818/webtrack/internal/model"
)

const (
	errInvalidRequest = "INVALID_REQUEST"
	errInternal       = "INTERNAL"
)

type Server struct {
	cfg         config.Config
	core        *core.Core
	httpSrv     *http.Server
	listener    net.Listener
	lockFile    *os.File
	mu          sync.Mutex
	shutdown    sync.Once
	shutdownErr error
}

func NewServer(cfg config.Config, c *core.Core) *Server {
	mux := http.NewServeMux()
	s := &Server{
		cfg:  cfg,
		core: c,
		httpSrv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	mux.HandleFunc("/v1/health", s.healthHandler)
	mux.HandleFunc("/v1/status", s.statusHandler)
	mux.HandleFunc("/v1/test-connection", s.testConnectionHandler)
	mux.HandleFunc("/v1/enabled", s.enabledHandler)
	mux.HandleFunc("/v1/events", s.eventsHandler)
	return s
}

// Start listens on the control socket and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.SocketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := s.acquireLock(); err != nil {
		return err
	}
	if st, err := os.Lstat(s.cfg.SocketPath); err == nil {
		if st.Mode()&os.ModeSocket == 0 {
			s.releaseLock() //nolint:errcheck
			return fmt.Errorf("socket path exists and is not unix socket: %s", s.cfg.SocketPath)
		}
		if err := os.Remove(s.cfg.SocketPath); err != nil {
			s.releaseLock() //nolint:errcheck
			return fmt.Errorf("remove stale socket: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		s.releaseLock() //nolint:errcheck
		return fmt.Errorf("stat socket path: %w", err)
	}
	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		s.releaseLock()
		return fmt.Errorf("listen uds: %w", err)
	}
	if err := os.Chmod(s.cfg.SocketPath, 0o600); err != nil {
		ln.Close() //nolint:errcheck
		s.releaseLock()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("serve uds: %w", err)
		}
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Do(func() {
		var errs []error
		if s.httpSrv != nil {
			if err := s.httpSrv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		s.mu.Lock()
		listener := s.listener
		s.listener = nil
		s.mu.Unlock()
		if listener != nil {
			if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		if s.cfg.SocketPath != "" {
			if err := os.Remove(s.cfg.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		if err := s.releaseLock(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			s.shutdownErr = fmt.Errorf("shutdown errors: %v", errs)
		}
	})
	return s.shutdownErr
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	resp := api.HealthResponse{
		SchemaVersion: "v1",
		GeneratedAt:   time.Now().UTC(),
		Status:        "ok",
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	snap, err := s.core.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errInternal, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusEnvelope{
		SchemaVersion: "v1",
		GeneratedAt:   time.Now().UTC(),
		Status:        snap,
	})
}

func (s *Server) testConnectionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	resp := api.TestConnectionResponse{
		SchemaVersion: "v1",
		GeneratedAt:   time.Now().UTC(),
		Reachable:     true,
	}
	if err := s.core.TestConnection(r.Context()); err != nil {
		resp.Reachable = false
		resp.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) enabledHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.methodNotAllowed(w, http.MethodPut)
		return
	}
	var req api.EnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidRequest, "invalid request body")
		return
	}
	if err := s.core.SetEnabled(r.Context(), req.Enabled); err != nil {
		s.writeError(w, http.StatusInternalServerError, errInternal, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EnabledResponse{
		SchemaVersion: "v1",
		GeneratedAt:   time.Now().UTC(),
		Enabled:       req.Enabled,
	})
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var req api.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidRequest, "invalid request body")
		return
	}
	ev, err := browserEvent(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	s.core.Handle(ev)
	s.writeJSON(w, http.StatusAccepted, api.EventResponse{
		SchemaVersion: "v1",
		GeneratedAt:   time.Now().UTC(),
		Accepted:      true,
	})
}

func browserEvent(req api.EventRequest) (model.BrowserEvent, error) {
	kind := model.EventKind(req.Kind)
	switch kind {
	case model.EventTabActivated, model.EventURLChanged, model.EventFocusChanged,
		model.EventIdleChanged, model.EventInput:
	default:
		return model.BrowserEvent{}, fmt.Errorf("unknown event kind %q", req.Kind)
	}
	return model.BrowserEvent{
		Kind:       kind,
		URL:        req.URL,
		FaviconURL: req.FaviconURL,
		Focused:    req.Focused,
		Idle:       model.CanonicalIdleState(req.Idle),
		Input: model.InputDelta{
			Keys:            req.Keys,
			Clicks:          req.Clicks,
			Scrolls:         req.Scrolls,
			MouseDistanceIn: req.MouseDistanceIn,
		},
	}, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	resp := api.ErrorResponse{
		SchemaVersion: "v1",
		GeneratedAt:   time.Now().UTC(),
		Error: api.APIError{
			Code:    code,
			Message: msg,
		},
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allow ...string) {
	if len(allow) > 0 {
		w.Header().Set("Allow", strings.Join(allow, ", "))
	}
	s.writeError(w, http.StatusMethodNotAllowed, errInvalidRequest, "method not allowed")
}

func (s *Server) acquireLock() error {
	lockPath := s.cfg.SocketPath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close() //nolint:errcheck
		return fmt.Errorf("daemon already running")
	}
	s.mu.Lock()
	s.lockFile = f
	s.mu.Unlock()
	return nil
}

func (s *Server) releaseLock() error {
	s.mu.Lock()
	f := s.lockFile
	s.lockFile = nil
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}
