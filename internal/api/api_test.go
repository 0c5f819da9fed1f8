package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmksrv/mkxray-web/internal/activity"
	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(filepath.Join(t.TempDir(), "api.sock"), activity.New(nil, zerolog.Nop()), time.Now(), zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postCommand(t *testing.T, url, body string) (*http.Response, protocol.InstallCommandResponse) {
	t.Helper()
	resp, err := http.Post(url+"/api/v1/install-command", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out protocol.InstallCommandResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
	}
	return resp, out
}

func TestInstallCommand(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := postCommand(t, ts.URL, `{"dest":"www.samsung.com:443","arch":"arm64"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := "sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-arm64.tar.gz | tar xz && ./mkxray -addr www.samsung.com:443'"
	if out.Command != want {
		t.Errorf("command = %q, want %q", out.Command, want)
	}
	if !out.ArchSupported || out.UnsafeDest || out.Warning != "" {
		t.Errorf("unexpected flags: %+v", out)
	}
	if out.DownloadURL != "https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-arm64.tar.gz" {
		t.Errorf("download_url = %q", out.DownloadURL)
	}
}

func TestInstallCommand_Defaults(t *testing.T) {
	_, ts := newTestServer(t)

	_, out := postCommand(t, ts.URL, `{}`)
	want := "sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-amd64.tar.gz | tar xz && ./mkxray'"
	if out.Command != want {
		t.Errorf("command = %q, want %q", out.Command, want)
	}
	if out.Arch != "amd64" {
		t.Errorf("arch = %q", out.Arch)
	}
}

func TestInstallCommand_UnknownArchPassesThrough(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := postCommand(t, ts.URL, `{"arch":"riscv64"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.ArchSupported {
		t.Error("riscv64 reported as supported")
	}
	if !strings.Contains(out.Command, "mkxray-linux-riscv64.tar.gz") {
		t.Errorf("arch not substituted: %q", out.Command)
	}
	if out.Warning == "" {
		t.Error("expected a warning")
	}
}

func TestInstallCommand_UnsafeDest(t *testing.T) {
	_, ts := newTestServer(t)

	_, out := postCommand(t, ts.URL, `{"dest":"it's-mine"}`)
	if !out.UnsafeDest {
		t.Error("expected unsafe_dest")
	}
	if !strings.HasSuffix(out.Command, "-addr it's-mine'") {
		t.Errorf("dest must stay literal: %q", out.Command)
	}

	_, out = postCommand(t, ts.URL, `{"dest":"it's-mine","escape_dest":true}`)
	if out.UnsafeDest {
		t.Errorf("escaped command flagged: %q", out.Command)
	}
}

func TestInstallCommand_BadBody(t *testing.T) {
	_, ts := newTestServer(t)

	for _, body := range []string{`not json`, `{"dest":1}`, `{"bogus":true}`} {
		resp, _ := postCommand(t, ts.URL, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestStatusCountsGenerations(t *testing.T) {
	_, ts := newTestServer(t)

	postCommand(t, ts.URL, `{"arch":"amd64"}`)
	postCommand(t, ts.URL, `{"arch":"arm64"}`)
	postCommand(t, ts.URL, `{"arch":"arm64","dest":"a:1"}`)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st protocol.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Status != "ok" {
		t.Errorf("status = %q", st.Status)
	}
	if st.CommandsGenerated != 3 {
		t.Errorf("commands_generated = %d, want 3", st.CommandsGenerated)
	}
	if st.ByArch["arm64"] != 2 || st.ByArch["amd64"] != 1 {
		t.Errorf("by_arch = %v", st.ByArch)
	}
	if st.NATSRunning {
		t.Error("nats_running should be false without a connection")
	}
}

func TestArchs(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/archs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out protocol.ArchsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Archs) != 2 || out.Archs[0] != "amd64" || out.Archs[1] != "arm64" || out.Default != "amd64" {
		t.Errorf("archs = %+v", out)
	}
}

func TestUnixSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "sock", "api.sock")
	srv := New(socketPath, activity.New(nil, zerolog.Nop()), time.Now(), zerolog.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
		},
	}}

	var (
		resp *http.Response
		err  error
	)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err = client.Get("http://mkxray-web/api/v1/status"); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("API did not come up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}
}

func TestInstallCommand_Source(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := postCommand(t, ts.URL, `{"dest":"a","source":"mcp"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mcp source: status = %d", resp.StatusCode)
	}

	resp, _ = postCommand(t, ts.URL, `{"dest":"a","source":"cron"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown source: status = %d, want 400", resp.StatusCode)
	}
}
