package installcmd

import (
	"errors"
	"strings"
	"testing"
)

const (
	wantAMD64 = "sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-amd64.tar.gz | tar xz && ./mkxray'"
	wantARM64 = "sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-arm64.tar.gz | tar xz && ./mkxray -addr www.samsung.com:443'"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		dest string
		arch string
		want string
	}{
		{"no dest", "", "amd64", wantAMD64},
		{"dest and arm64", "www.samsung.com:443", "arm64", wantARM64},
		{
			"unknown arch passes through",
			"",
			"riscv64",
			"sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-riscv64.tar.gz | tar xz && ./mkxray'",
		},
		{
			"empty arch",
			"",
			"",
			"sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-.tar.gz | tar xz && ./mkxray'",
		},
		{
			"quote kept raw",
			"it's-mine",
			"amd64",
			"sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-amd64.tar.gz | tar xz && ./mkxray -addr it's-mine'",
		},
		{
			"unicode",
			"пример.рф:443",
			"amd64",
			"sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-amd64.tar.gz | tar xz && ./mkxray -addr пример.рф:443'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.dest, tt.arch); got != tt.want {
				t.Errorf("Build(%q, %q) =\n  %q\nwant\n  %q", tt.dest, tt.arch, got, tt.want)
			}
		})
	}
}

func TestBuild_WithDestFormula(t *testing.T) {
	for _, arch := range []string{"amd64", "arm64"} {
		for _, dest := range []string{"example.com:443", "1.2.3.4:8443", "x"} {
			want := "sudo bash -c 'curl -s -L https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-" +
				arch + ".tar.gz | tar xz && ./mkxray -addr " + dest + "'"
			if got := Build(dest, arch); got != want {
				t.Errorf("Build(%q, %q) = %q, want %q", dest, arch, got, want)
			}
		}
	}
}

func TestBuild_NoAddrWithoutDest(t *testing.T) {
	for _, arch := range []string{"amd64", "arm64", "mips"} {
		got := Build("", arch)
		if strings.Contains(got, "-addr") {
			t.Errorf("Build(\"\", %q) contains -addr: %q", arch, got)
		}
		if !strings.HasSuffix(got, "./mkxray'") {
			t.Errorf("Build(\"\", %q) = %q, want suffix ./mkxray'", arch, got)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build("www.samsung.com:443", "arm64")
	b := Build("www.samsung.com:443", "arm64")
	if a != b {
		t.Errorf("Build not deterministic: %q vs %q", a, b)
	}
}

func TestBuildWith_DefaultMatchesBuild(t *testing.T) {
	for _, dest := range []string{"", "www.samsung.com:443", "it's-mine", "a b"} {
		got, err := BuildWith(dest, "amd64", Options{})
		if err != nil {
			t.Fatalf("BuildWith(%q): %v", dest, err)
		}
		if want := Build(dest, "amd64"); got != want {
			t.Errorf("BuildWith(%q) = %q, want %q", dest, got, want)
		}
	}
}

func TestBuildWith_EscapeDest(t *testing.T) {
	dests := []string{
		"www.samsung.com:443",
		"it's-mine",
		"a b",
		"$(reboot)",
		"x'; rm -rf /; echo '",
		`back\slash "dq"`,
		"tab\there",
		`a\b`,
		"*",
		"{a,b}",
		"~root",
	}
	for _, dest := range dests {
		t.Run(dest, func(t *testing.T) {
			cmd, err := BuildWith(dest, "arm64", Options{EscapeDest: true})
			if err != nil {
				t.Fatalf("BuildWith: %v", err)
			}
			if !strings.HasPrefix(cmd, "sudo bash -c '") {
				t.Errorf("missing outer wrapper: %q", cmd)
			}
			if err := Verify(cmd, dest); err != nil {
				t.Errorf("Verify(%q): %v", cmd, err)
			}
		})
	}
}

func TestBuildWith_EscapeSafeDestUnchanged(t *testing.T) {
	got, err := BuildWith("www.samsung.com:443", "arm64", Options{EscapeDest: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != wantARM64 {
		t.Errorf("got %q, want %q", got, wantARM64)
	}
}

func TestBuildWith_NullByte(t *testing.T) {
	if _, err := BuildWith("a\x00b", "amd64", Options{EscapeDest: true}); err == nil {
		t.Fatal("expected error for NUL byte")
	}
}

func TestNeedsQuoting(t *testing.T) {
	tests := []struct {
		dest string
		want bool
	}{
		{"", false},
		{"www.samsung.com:443", false},
		{"10.0.0.1:443", false},
		{"it's-mine", true},
		{"a b", true},
		{"$HOME", true},
		{"x;y", true},
		{`a\b`, true},
		{"*", true},
		{"{a,b}", true},
	}
	for _, tt := range tests {
		if got := NeedsQuoting(tt.dest); got != tt.want {
			t.Errorf("NeedsQuoting(%q) = %v, want %v", tt.dest, got, tt.want)
		}
	}
}

func TestDownloadURL(t *testing.T) {
	want := "https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-arm64.tar.gz"
	if got := DownloadURL("arm64"); got != want {
		t.Errorf("DownloadURL = %q, want %q", got, want)
	}
	if !strings.Contains(Build("", "arm64"), DownloadURL("arm64")) {
		t.Error("Build output does not contain DownloadURL")
	}
}

func TestArchs(t *testing.T) {
	got := Archs()
	if len(got) != 2 || got[0] != ArchAMD64 || got[1] != ArchARM64 {
		t.Fatalf("Archs() = %v", got)
	}
	got[0] = "mutated"
	if Archs()[0] != ArchAMD64 {
		t.Error("Archs() exposes internal slice")
	}
	if DefaultArch != ArchAMD64 {
		t.Errorf("DefaultArch = %q", DefaultArch)
	}
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in     string
		want   Arch
		wantOK bool
	}{
		{"", ArchAMD64, true},
		{"amd64", ArchAMD64, true},
		{"arm64", ArchARM64, true},
		{"riscv64", Arch("riscv64"), false},
		{"AMD64", Arch("AMD64"), false},
	}
	for _, tt := range tests {
		got, ok := ParseArch(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseArch(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInspect_UnsafeQuote(t *testing.T) {
	_, err := Inspect(Build("it's-mine", "amd64"))
	if !errors.Is(err, ErrUnsafeDest) {
		t.Fatalf("Inspect err = %v, want ErrUnsafeDest", err)
	}
}

func TestDescribe(t *testing.T) {
	res, err := Describe("www.samsung.com:443", "arm64", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Command != wantARM64 {
		t.Errorf("Command = %q", res.Command)
	}
	if !res.ArchSupported || res.UnsafeDest || len(res.Warnings) != 0 {
		t.Errorf("unexpected flags: %+v", res)
	}

	res, err = Describe("", "", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Arch != "amd64" || res.Command != wantAMD64 {
		t.Errorf("empty arch: got arch %q command %q", res.Arch, res.Command)
	}
}

func TestDescribe_Warnings(t *testing.T) {
	res, err := Describe("it's-mine", "s390x", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.ArchSupported {
		t.Error("s390x reported as supported")
	}
	if !res.UnsafeDest {
		t.Error("quote in dest not flagged")
	}
	if len(res.Warnings) != 2 {
		t.Errorf("Warnings = %q, want 2", res.Warnings)
	}
	if res.Command != Build("it's-mine", "s390x") {
		t.Errorf("command altered without EscapeDest: %q", res.Command)
	}

	res, err = Describe("it's-mine", "amd64", Options{EscapeDest: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.UnsafeDest || len(res.Warnings) != 0 {
		t.Errorf("escaped command still flagged: %+v", res)
	}
}

func TestDescribe_ShellExpandedDest(t *testing.T) {
	for _, dest := range []string{`a\b`, "*", "{a,b}"} {
		res, err := Describe(dest, "amd64", Options{})
		if err != nil {
			t.Fatal(err)
		}
		if !res.UnsafeDest {
			t.Errorf("Describe(%q) not flagged", dest)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "enable address escaping") {
			t.Errorf("Describe(%q) warnings = %q, want the escaping hint", dest, res.Warnings)
		}

		res, err = Describe(dest, "amd64", Options{EscapeDest: true})
		if err != nil {
			t.Fatal(err)
		}
		if res.UnsafeDest || len(res.Warnings) != 0 {
			t.Errorf("Describe(%q) escaped still flagged: %+v", dest, res)
		}
	}
}
