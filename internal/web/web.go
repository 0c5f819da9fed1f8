package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"

	"github.com/rmksrv/mkxray-web/internal/activity"
	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

//go:embed static templates
var content embed.FS

const contentSecurityPolicy = "default-src 'none'; script-src 'self'; style-src 'self'; img-src 'self'; connect-src 'self'; form-action 'self'; base-uri 'none'; frame-ancestors 'none'"

// Config holds web UI settings passed to New.
type Config struct {
	Listen         string
	Username       string // HTTP Basic Auth username (empty = no auth).
	Password       string // HTTP Basic Auth password (empty = no auth).
	MaxConns       int    // Concurrent connection cap; 0 disables it.
	ActivityBuffer int    // Recent generations kept for the activity page.
}

// FormDefaults are the values the form starts with. They can be swapped at
// runtime by SetDefaults.
type FormDefaults struct {
	Dest       string
	Arch       string
	EscapeDest bool
}

// Server serves the install command page.
type Server struct {
	listen     string
	maxConns   int
	recorder   *activity.Recorder
	nc         *nats.Conn
	sub        *nats.Subscription
	httpServer *http.Server
	logger     zerolog.Logger
	templates  *template.Template
	eventBus   *EventBus
	username   string
	password   string

	mu       sync.RWMutex // guards defaults and sub
	defaults FormDefaults
}

// New creates a web UI server. nc may be nil, in which case the activity
// page only shows an empty feed.
func New(cfg Config, defaults FormDefaults, rec *activity.Recorder, nc *nats.Conn, logger zerolog.Logger) *Server {
	if cfg.ActivityBuffer <= 0 {
		cfg.ActivityBuffer = 50
	}
	s := &Server{
		listen:   cfg.Listen,
		maxConns: cfg.MaxConns,
		recorder: rec,
		nc:       nc,
		logger:   logger.With().Str("component", "web").Logger(),
		eventBus: NewEventBus(cfg.ActivityBuffer),
		username: cfg.Username,
		password: cfg.Password,
		defaults: normalizeDefaults(defaults),
	}

	funcMap := template.FuncMap{
		"join": strings.Join,
	}
	tmplFS, _ := fs.Sub(content, "templates")
	s.templates = template.Must(
		template.New("").Funcs(funcMap).ParseFS(tmplFS, "*.html", "partials/*.html"),
	)

	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleSubmit)
	mux.HandleFunc("POST /partials/command", s.handlePartialCommand)
	mux.HandleFunc("GET /activity", s.handleActivity)
	mux.HandleFunc("GET /activity/stream", s.handleEventStream)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Handler:           s.securityMiddleware(s.csrfMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain, for httptest.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Defaults returns the current form defaults.
func (s *Server) Defaults() FormDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// SetDefaults replaces the form defaults used by subsequent requests.
func (s *Server) SetDefaults(d FormDefaults) {
	d = normalizeDefaults(d)
	s.mu.Lock()
	s.defaults = d
	s.mu.Unlock()
	s.logger.Info().Str("dest", d.Dest).Str("arch", d.Arch).Bool("escape_dest", d.EscapeDest).Msg("form defaults updated")
}

func normalizeDefaults(d FormDefaults) FormDefaults {
	if d.Arch == "" {
		d.Arch = installcmd.DefaultArch.String()
	}
	return d
}

// securityMiddleware adds security headers and optional HTTP Basic Auth to all responses.
func (s *Server) securityMiddleware(next http.Handler) http.Handler {
	authEnabled := s.username != "" && s.password != ""
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy)

		if authEnabled {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="mkxray"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Start subscribes to activity events and listens on TCP. Blocks until
// Shutdown or error.
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Listen subscribes to activity events and opens the TCP listener, capped
// at MaxConns concurrent connections.
func (s *Server) Listen() (net.Listener, error) {
	if s.nc != nil {
		sub, err := s.nc.Subscribe(protocol.SubjectAllEvents, func(msg *nats.Msg) {
			s.eventBus.Publish(msg.Data)
		})
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
	}

	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return nil, err
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.logger.Info().Str("listen", ln.Addr().String()).Int("max_conns", s.maxConns).Msg("web UI listening")
	return ln, nil
}

// Serve handles web requests on ln. Blocks until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
