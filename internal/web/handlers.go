package web

import (
	"net/http"
	"slices"

	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

// PageData is the top-level template data for the install page.
type PageData struct {
	Command   CommandData
	Form      FormData
	CSRFToken string
}

// CommandData is the re-rendered region: the command and anything to flag about it.
type CommandData struct {
	Command  string
	Warnings []string
}

// FormData echoes the form state back into the page.
type FormData struct {
	Dest  string
	Arch  string
	Archs []string
}

// ActivityData is the template data for the activity page.
type ActivityData struct {
	Rows []ActivityRow
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	d := s.Defaults()
	// First render shows the command without a target, like a fresh form.
	cmd, ok := s.generate(w, "", d.Arch, d.EscapeDest, false)
	if !ok {
		return
	}
	s.render(w, "layout", PageData{
		Command:   cmd,
		Form:      s.formData(d.Dest, d.Arch),
		CSRFToken: csrfToken(r),
	})
}

// handleSubmit is the no-script path: the whole page comes back.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	dest, arch := s.formValues(r)
	cmd, ok := s.generate(w, dest, arch, s.Defaults().EscapeDest, true)
	if !ok {
		return
	}
	s.render(w, "layout", PageData{
		Command:   cmd,
		Form:      s.formData(dest, arch),
		CSRFToken: csrfToken(r),
	})
}

// handlePartialCommand re-renders only the command region.
func (s *Server) handlePartialCommand(w http.ResponseWriter, r *http.Request) {
	dest, arch := s.formValues(r)
	cmd, ok := s.generate(w, dest, arch, s.Defaults().EscapeDest, true)
	if !ok {
		return
	}
	s.render(w, "command", cmd)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	raw := s.eventBus.Recent()
	rows := make([]ActivityRow, 0, len(raw))
	for _, data := range slices.Backward(raw) {
		if row, ok := decodeActivity(data); ok {
			rows = append(rows, row)
		}
	}
	s.render(w, "activity", ActivityData{Rows: rows})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// formValues reads the submitted fields. A missing arch falls back to the
// current default; any other value is kept as submitted.
func (s *Server) formValues(r *http.Request) (dest, arch string) {
	dest = r.PostFormValue("dest")
	arch = r.PostFormValue("arch")
	if arch == "" {
		arch = s.Defaults().Arch
	}
	return dest, arch
}

func (s *Server) formData(dest, arch string) FormData {
	fd := FormData{Dest: dest, Arch: arch}
	for _, a := range installcmd.Archs() {
		fd.Archs = append(fd.Archs, a.String())
	}
	return fd
}

// generate builds the command and, for user submissions, records it.
func (s *Server) generate(w http.ResponseWriter, dest, arch string, escape, record bool) (CommandData, bool) {
	res, err := installcmd.Describe(dest, arch, installcmd.Options{EscapeDest: escape})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return CommandData{}, false
	}
	if record {
		s.recorder.Record(protocol.SourceWeb, res.Dest, res.Arch, res.Command)
	}
	return CommandData{Command: res.Command, Warnings: res.Warnings}, true
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("render")
	}
}
