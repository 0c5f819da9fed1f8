package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/internal/activity"
	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

// maxBodyBytes bounds install-command request bodies.
const maxBodyBytes = 64 << 10

// Server serves the control API over a Unix socket.
type Server struct {
	socketPath string
	recorder   *activity.Recorder
	startedAt  time.Time
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates an API server.
func New(socketPath string, rec *activity.Recorder, startedAt time.Time, logger zerolog.Logger) *Server {
	s := &Server{
		socketPath: socketPath,
		recorder:   rec,
		startedAt:  startedAt,
		logger:     logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/archs", s.handleArchs)
	mux.HandleFunc("POST /api/v1/install-command", s.handleInstallCommand)

	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Handler exposes the routes for in-memory testing.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start listens on the Unix socket. Blocks until Shutdown.
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Listen creates the Unix socket, readable only by the owner.
func (s *Server) Listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return nil, err
	}
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return nil, err
	}
	s.logger.Info().Str("socket", s.socketPath).Msg("API server listening")
	return ln, nil
}

// Serve handles API requests on ln. Blocks until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.recorder.Stats()
	writeJSON(w, http.StatusOK, protocol.StatusResponse{
		Status:            "ok",
		Uptime:            time.Since(s.startedAt).Truncate(time.Second).String(),
		NATSRunning:       s.recorder.Connected(),
		StartedAt:         s.startedAt,
		CommandsGenerated: st.Total,
		ByArch:            st.ByArch,
	})
}

func (s *Server) handleArchs(w http.ResponseWriter, r *http.Request) {
	resp := protocol.ArchsResponse{Default: installcmd.DefaultArch.String()}
	for _, a := range installcmd.Archs() {
		resp.Archs = append(resp.Archs, a.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInstallCommand(w http.ResponseWriter, r *http.Request) {
	var req protocol.InstallCommandRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	source := req.Source
	if source == "" {
		source = protocol.SourceAPI
	}
	if !protocol.KnownSource(source) {
		http.Error(w, "unknown source: "+source, http.StatusBadRequest)
		return
	}

	res, err := installcmd.Describe(req.Dest, req.Arch, installcmd.Options{EscapeDest: req.EscapeDest})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if !res.ArchSupported {
		s.logger.Warn().Str("arch", res.Arch).Msg("install command requested for unknown arch")
	}

	s.recorder.Record(source, res.Dest, res.Arch, res.Command)
	writeJSON(w, http.StatusOK, ToResponse(res))
}

// ToResponse converts a builder result into its wire form.
func ToResponse(res installcmd.Result) protocol.InstallCommandResponse {
	return protocol.InstallCommandResponse{
		Command:       res.Command,
		Arch:          res.Arch,
		DownloadURL:   res.DownloadURL,
		ArchSupported: res.ArchSupported,
		UnsafeDest:    res.UnsafeDest,
		Warning:       strings.Join(res.Warnings, "; "),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
