package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/caffeineduck/runpad/config"
	"github.com/caffeineduck/runpad/console"
	"github.com/caffeineduck/runpad/logger"
	"github.com/caffeineduck/runpad/metrics"
	"github.com/caffeineduck/runpad/runner"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server with console sessions",
	Long: `Start an HTTP server that keeps one console log per session.

Endpoints:
  POST   /sessions               Create session, returns {"session_id":"..."}
  POST   /sessions/{id}/run      Run {"language","source","wait"}
  GET    /sessions/{id}/log      Console log as JSON
  DELETE /sessions/{id}/log      Clear the console log
  GET    /sessions/{id}/log.txt  Console log as text
  DELETE /sessions/{id}          Close session
  GET    /languages              Available languages
  GET    /health                 Health check
  GET    /metrics                Prometheus metrics`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: server.port from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fatalf("%v", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			logger.NewFromConfig,
			metrics.New,
			provideEnvironment,
			newSessionManager,
			newHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	app.Run()
}

func provideEnvironment(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*environment, error) {
	env, err := newEnvironment(cfg, log, true)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return env.Close()
		},
	})
	return env, nil
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, env *environment, sessions *sessionManager, m *metrics.Metrics, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newServeMux(env, sessions, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("runpad server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

type sessionManager struct {
	sessions map[string]*serverSession
	mu       sync.Mutex
	ttl      time.Duration
	env      *environment
	metrics  *metrics.Metrics
	log      *zap.Logger
	stop     chan struct{}
}

type serverSession struct {
	log      *console.Log
	disp     *runner.Dispatcher
	lastUsed time.Time
}

func newSessionManager(lc fx.Lifecycle, env *environment, m *metrics.Metrics) *sessionManager {
	sm := newSessionStore(env, m)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sm.cleanup(time.Minute)
			return nil
		},
		OnStop: func(context.Context) error {
			sm.closeAll()
			return nil
		},
	})
	return sm
}

func newSessionStore(env *environment, m *metrics.Metrics) *sessionManager {
	return &sessionManager{
		sessions: make(map[string]*serverSession),
		ttl:      env.cfg.Server.SessionTTL,
		env:      env,
		metrics:  m,
		log:      env.log.Named("sessions"),
		stop:     make(chan struct{}),
	}
}

func (sm *sessionManager) create() string {
	id := uuid.NewString()
	log := console.NewLog()
	ss := &serverSession{
		log: log,
		disp: sm.env.dispatcher(log,
			runner.WithLogger(sm.env.log.Named("dispatcher").With(zap.String("session_id", id))),
			runner.WithObserver(sm.metrics),
		),
		lastUsed: time.Now(),
	}

	sm.mu.Lock()
	sm.sessions[id] = ss
	sm.metrics.ActiveSessions.Set(float64(len(sm.sessions)))
	sm.mu.Unlock()

	sm.log.Debug("session created", zap.String("session_id", id))
	return id
}

func (sm *sessionManager) get(id string) (*serverSession, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ss, ok := sm.sessions[id]
	if ok {
		ss.lastUsed = time.Now()
	}
	return ss, ok
}

func (sm *sessionManager) close(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
		sm.metrics.ActiveSessions.Set(float64(len(sm.sessions)))
	}
	return ok
}

func (sm *sessionManager) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			sm.reap(now)
		case <-sm.stop:
			return
		}
	}
}

// reap closes sessions idle for longer than the TTL and returns how many
// were closed. Sessions with a pending run are kept.
func (sm *sessionManager) reap(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	n := 0
	for id, ss := range sm.sessions {
		if now.Sub(ss.lastUsed) > sm.ttl && !ss.disp.Busy() {
			delete(sm.sessions, id)
			sm.log.Debug("session expired", zap.String("session_id", id))
			n++
		}
	}
	sm.metrics.ActiveSessions.Set(float64(len(sm.sessions)))
	return n
}

func (sm *sessionManager) closeAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	select {
	case <-sm.stop:
	default:
		close(sm.stop)
	}
	clear(sm.sessions)
	sm.metrics.ActiveSessions.Set(0)
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type runRequest struct {
	Language string `json:"language"`
	Source   string `json:"source"`
	Wait     bool   `json:"wait,omitempty"`
}

type runResponse struct {
	RunID      string `json:"run_id"`
	Pending    bool   `json:"pending"`
	DurationMs int64  `json:"duration_ms"` // zero while pending
}

type logResponse struct {
	Entries []console.Entry `json:"entries"`
}

type languagesResponse struct {
	Languages []string `json:"languages"`
}

func newServeMux(env *environment, sessions *sessionManager, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sessions.create()})
	})

	mux.HandleFunc("POST /sessions/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		ss, ok := sessions.get(r.PathValue("id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Language == "" {
			http.Error(w, "language required", http.StatusBadRequest)
			return
		}

		// Runs outlive the request unless the caller waits for them.
		run, err := ss.disp.Run(context.WithoutCancel(r.Context()), req.Language, req.Source)
		if errors.Is(err, runner.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if req.Wait {
			if err := waitRun(r.Context(), run); err != nil {
				http.Error(w, err.Error(), http.StatusRequestTimeout)
				return
			}
		}

		resp := runResponse{RunID: run.ID, Pending: run.Pending()}
		status := http.StatusAccepted
		if !resp.Pending {
			status = http.StatusOK
			resp.DurationMs = run.Duration().Milliseconds()
		}
		writeJSON(w, status, resp)
	})

	mux.HandleFunc("GET /sessions/{id}/log", func(w http.ResponseWriter, r *http.Request) {
		ss, ok := sessions.get(r.PathValue("id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, logResponse{Entries: ss.log.Snapshot()})
	})

	mux.HandleFunc("DELETE /sessions/{id}/log", func(w http.ResponseWriter, r *http.Request) {
		ss, ok := sessions.get(r.PathValue("id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		ss.log.Clear()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /sessions/{id}/log.txt", func(w http.ResponseWriter, r *http.Request) {
		ss, ok := sessions.get(r.PathValue("id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="console.txt"`)
		ss.log.WriteTo(w)
	})

	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !sessions.close(r.PathValue("id")) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, languagesResponse{Languages: env.registry.Languages()})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("GET /metrics", m.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
