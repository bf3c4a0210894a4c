package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ironsheep/exif-extractor-mcp/internal/config"
)

// SessionHeader carries the session id on the HTTP transport.
const SessionHeader = "Mcp-Session-Id"

// Session table bounds used when HTTPOptions leaves them zero.
const (
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultMaxSessions        = 1024
)

type sessionEntry struct {
	sess     config.Session
	lastSeen time.Time
}

// sessionStore maps session ids to their immutable config. Sessions idle for
// longer than idle are dropped, and creating one past max evicts the least
// recently used.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	idle     time.Duration
	max      int
	now      func() time.Time
}

func newSessionStore(idle time.Duration, maxSessions int) *sessionStore {
	if idle <= 0 {
		idle = DefaultSessionIdleTimeout
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &sessionStore{
		sessions: make(map[string]*sessionEntry),
		idle:     idle,
		max:      maxSessions,
		now:      time.Now,
	}
}

func (st *sessionStore) create(sess config.Session) string {
	id := uuid.NewString()

	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.pruneLocked(now)
	for len(st.sessions) >= st.max {
		st.evictOldestLocked()
	}
	st.sessions[id] = &sessionEntry{sess: sess, lastSeen: now}
	return id
}

// get returns the session and marks it as used.
func (st *sessionStore) get(id string) (config.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return config.Session{}, false
	}
	now := st.now()
	if now.Sub(e.lastSeen) > st.idle {
		delete(st.sessions, id)
		return config.Session{}, false
	}
	e.lastSeen = now
	return e.sess, true
}

func (st *sessionStore) delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pruneLocked(st.now())
	return len(st.sessions)
}

func (st *sessionStore) pruneLocked(now time.Time) {
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.idle {
			delete(st.sessions, id)
		}
	}
}

func (st *sessionStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range st.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	delete(st.sessions, oldestID)
}

// HTTPOptions configures HTTPHandler.
type HTTPOptions struct {
	// AccessLog receives Apache-style request lines. Nil disables them.
	AccessLog io.Writer

	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler

	// AllowedOrigins for CORS. Defaults to "*".
	AllowedOrigins []string

	// SessionIdleTimeout drops sessions unused for this long. Defaults to
	// DefaultSessionIdleTimeout.
	SessionIdleTimeout time.Duration

	// MaxSessions caps the session table. Defaults to DefaultMaxSessions.
	MaxSessions int
}

type httpTransport struct {
	srv      *Server
	sessions *sessionStore
}

// HTTPHandler returns the Streamable HTTP transport:
//
//	POST   /mcp                      JSON-RPC request or notification
//	DELETE /mcp                      end the session named by Mcp-Session-Id
//	GET    /healthz                  liveness
//	GET    /metrics                  Prometheus metrics (when configured)
//	GET    /.well-known/mcp-config   session config JSON Schema
//
// An initialize request creates a session from the query parameters (see
// config.FromQuery) and returns its id in the Mcp-Session-Id header. Every
// other request must carry that header.
func (s *Server) HTTPHandler(opts HTTPOptions) http.Handler {
	t := &httpTransport{srv: s, sessions: newSessionStore(opts.SessionIdleTimeout, opts.MaxSessions)}

	r := mux.NewRouter()
	r.HandleFunc("/mcp", t.handlePost).Methods(http.MethodPost)
	r.HandleFunc("/mcp", t.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/healthz", t.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/mcp-config", handleConfigSchema).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	var h http.Handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept", SessionHeader}),
		handlers.ExposedHeaders([]string{SessionHeader}),
	)(r)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(h)
	if opts.AccessLog != nil {
		h = handlers.LoggingHandler(opts.AccessLog, h)
	}
	return h
}

// ListenAndServeHTTP serves HTTPHandler on addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServeHTTP(ctx context.Context, addr string, opts HTTPOptions) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http transport listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http transport stopped")
	return nil
}

func (t *httpTransport) handlePost(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)

	sess := t.srv.defaults
	if id != "" {
		var ok bool
		if sess, ok = t.sessions.get(id); !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(maxMessageBytes(sess))))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req, errResp := t.srv.parseRequest(body)
	if errResp != nil {
		writeJSON(w, http.StatusBadRequest, errResp)
		return
	}

	if req.Method == "initialize" {
		newSess, err := config.FromQuery(r.URL.Query(), t.srv.defaults)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, t.srv.errorResponse(req.ID, codeInvalidParams, "Invalid session config", err.Error()))
			return
		}
		sess = newSess
		newID := t.sessions.create(sess)
		w.Header().Set(SessionHeader, newID)
		t.srv.logger.Info("session created",
			slog.String("session", newID),
			slog.Int("timeout", sess.Timeout),
			slog.Int64("max_file_size", sess.MaxFileSize),
			slog.Bool("include_technical", sess.IncludeTechnical),
			slog.Bool("include_location", sess.IncludeLocation))
	} else if id == "" {
		writeJSON(w, http.StatusBadRequest, t.srv.errorResponse(req.ID, codeInvalidRequest, "Invalid request", "missing "+SessionHeader+" header"))
		return
	}

	resp := t.srv.dispatch(r.Context(), sess, req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (t *httpTransport) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		http.Error(w, "missing "+SessionHeader+" header", http.StatusBadRequest)
		return
	}
	if !t.sessions.delete(id) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	t.srv.logger.Info("session closed", slog.String("session", id))
	w.WriteHeader(http.StatusNoContent)
}

func (t *httpTransport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": t.sessions.len(),
	})
}

func handleConfigSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, config.SessionSchema())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("http handler panic", slog.String("panic", fmt.Sprint(v...)))
}
