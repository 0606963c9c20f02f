package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/assogest/assogest/internal/httputil"
	"github.com/assogest/assogest/internal/logging"
	"github.com/assogest/assogest/internal/middleware"
)

// auditEntry is one recorded mutating request.
type auditEntry struct {
	Time       time.Time `json:"time"`
	User       string    `json:"user,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	TraceID    string    `json:"trace_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// auditLog keeps the most recent entries in memory for /controle/audit and
// forwards each one to the configured sink.
type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	max     int
	sink    auditSink
}

type auditSink interface {
	Write(entry auditEntry) error
}

func newAuditLog(max int, sink auditSink) *auditLog {
	if max <= 0 {
		max = 256
	}
	return &auditLog{max: max, sink: sink}
}

func (l *auditLog) add(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		// Best effort: a failing sink must not fail the request.
		_ = l.sink.Write(entry)
	}
}

func (l *auditLog) list() []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *auditLog) listLimit(limit int) []auditEntry {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	all := l.list()
	if len(all) <= limit {
		return all
	}
	return all[len(all)-limit:]
}

// newAuditSinks assembles the persistent sinks from the handler config:
// a JSONL file, the audit_log table, both, or none.
func newAuditSinks(cfg Config, log *logging.Logger) auditSink {
	var sinks []auditSink
	if cfg.AuditFile != "" {
		fs, err := newFileAuditSink(cfg.AuditFile)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.AuditFile).Msg("audit file sink disabled")
		} else if fs != nil {
			sinks = append(sinks, fs)
		}
	}
	if cfg.AuditDB != nil {
		sinks = append(sinks, &sqlAuditSink{db: cfg.AuditDB})
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return multiSink(sinks)
	}
}

// multiSink fans an entry out to every sink, returning the first error.
type multiSink []auditSink

func (m multiSink) Write(entry auditEntry) error {
	var first error
	for _, s := range m {
		if err := s.Write(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fileAuditSink appends entries as JSONL.
type fileAuditSink struct {
	mu   sync.Mutex
	file *os.File
}

func newFileAuditSink(path string) (*fileAuditSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &fileAuditSink{file: f}, nil
}

func (s *fileAuditSink) Write(entry auditEntry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// sqlAuditSink persists entries into the audit_log table. The client
// address and user agent travel in the detail column.
type sqlAuditSink struct {
	db *sql.DB
}

func (s *sqlAuditSink) Write(entry auditEntry) error {
	detail, err := json.Marshal(map[string]string{
		"remote_addr": entry.RemoteAddr,
		"user_agent":  entry.UserAgent,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (at, user_email, method, path, status, trace_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.Time, entry.User, entry.Method, entry.Path, entry.Status, entry.TraceID, string(detail))
	return err
}

// auditMiddleware records every mutating request into the trail. It runs
// inside the authenticator so the principal, when there is one, is already
// in the request context.
func auditMiddleware(trail *auditLog) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			entry := auditEntry{
				Time:       time.Now().UTC(),
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     rec.status,
				TraceID:    logging.TraceID(r.Context()),
				RemoteAddr: httputil.ClientIP(r),
				UserAgent:  r.UserAgent(),
			}
			if p, ok := middleware.PrincipalFrom(r.Context()); ok {
				entry.User = p.User.Email
			}
			trail.add(entry)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
