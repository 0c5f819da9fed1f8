package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/internal/activity"
	"github.com/rmksrv/mkxray-web/internal/api"
	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/internal/secrets"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// startAPI serves the control API on a temp socket and returns its path.
func startAPI(t *testing.T) (string, *activity.Recorder) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "api.sock")
	rec := activity.New(nil, zerolog.Nop())
	srv := api.New(sock, rec, time.Now(), zerolog.Nop())
	ln, err := srv.Listen()
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return sock, rec
}

func TestCommandLocal(t *testing.T) {
	out, _, err := run(t, "command", "--local")
	if err != nil {
		t.Fatal(err)
	}
	want := "sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-amd64.tar.gz | tar xz && ./mkxray'\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestCommandLocalWithDest(t *testing.T) {
	out, _, err := run(t, "command", "--local", "--dest", "www.samsung.com:443", "--arch", "arm64")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != installcmd.Build("www.samsung.com:443", "arm64") {
		t.Errorf("output = %q", got)
	}
}

func TestCommandLocalWarnings(t *testing.T) {
	out, errOut, err := run(t, "command", "--local", "--dest", "it's-mine")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(errOut, "warning: ") {
		t.Errorf("expected warning on stderr, got %q", errOut)
	}
	if got := strings.TrimSpace(out); got != installcmd.Build("it's-mine", "amd64") {
		t.Errorf("stdout = %q, warnings must not alter the command", got)
	}

	out, errOut, err = run(t, "command", "--local", "--dest", "it's-mine", "--escape-dest")
	if err != nil {
		t.Fatal(err)
	}
	if errOut != "" {
		t.Errorf("escaped dest should not warn, got %q", errOut)
	}
	if err := installcmd.Verify(strings.TrimSpace(out), "it's-mine"); err != nil {
		t.Errorf("escaped command: %v", err)
	}
}

func TestCommandViaDaemon(t *testing.T) {
	sock, rec := startAPI(t)

	out, _, err := run(t, "--socket", sock, "command", "--dest", "www.samsung.com:443", "--arch", "arm64")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != installcmd.Build("www.samsung.com:443", "arm64") {
		t.Errorf("output = %q", got)
	}
	if st := rec.Stats(); st.Total != 1 {
		t.Errorf("daemon recorded %d generations, want 1", st.Total)
	}
}

func TestCommandDaemonUnreachable(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := run(t, "--socket", sock, "command")
	if err == nil || !strings.Contains(err.Error(), "cannot connect") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	out, _, err := run(t, "inspect", installcmd.Build("www.samsung.com:443", "amd64"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Addr:   www.samsung.com:443\n") {
		t.Errorf("output = %q", out)
	}

	out, _, err = run(t, "inspect", installcmd.Build("", "amd64"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Addr:   (none)") {
		t.Errorf("output = %q", out)
	}
}

func TestInspectUnsafe(t *testing.T) {
	_, _, err := run(t, "inspect", installcmd.Build("it's-mine", "amd64"))
	if !errors.Is(err, installcmd.ErrUnsafeDest) {
		t.Fatalf("expected ErrUnsafeDest, got %v", err)
	}
}

func TestArchsAndStatus(t *testing.T) {
	sock, rec := startAPI(t)
	rec.Record("web", "", "arm64", installcmd.Build("", "arm64"))

	out, _, err := run(t, "--socket", sock, "archs")
	if err != nil {
		t.Fatal(err)
	}
	if out != "amd64 (default)\narm64\n" {
		t.Errorf("archs output = %q", out)
	}

	out, _, err = run(t, "--socket", sock, "status")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Status:       ok", "Commands:     1", "arm64"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "age.key")
	t.Setenv(secrets.EnvAgeKey, "")
	t.Setenv(secrets.EnvAgeKeyFile, keyPath)

	if _, _, err := run(t, "secrets", "keygen", "-o", keyPath); err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if _, _, err := run(t, "secrets", "keygen", "-o", keyPath); err == nil {
		t.Error("keygen should refuse to overwrite an existing key")
	}

	enc, _, err := run(t, "secrets", "encrypt", "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	enc = strings.TrimSpace(enc)
	if !secrets.IsEncrypted(enc) {
		t.Fatalf("encrypt output = %q", enc)
	}

	plain, _, err := run(t, "secrets", "decrypt", enc)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if strings.TrimSpace(plain) != "hunter2" {
		t.Errorf("decrypt = %q", plain)
	}
}
