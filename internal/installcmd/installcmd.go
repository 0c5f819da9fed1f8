// Package installcmd builds the shell command that downloads and runs mkxray.
//
// Build is a pure function of the destination address and the target
// architecture. Its output is copied by users into a root shell, so the
// format is fixed and reproduced byte for byte.
package installcmd

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const (
	// ReleaseURLTemplate is the download location of a release archive; %s is the arch.
	ReleaseURLTemplate = "https://github.com/rmksrv/mkxray/releases/latest/download/mkxray-linux-%s.tar.gz"

	innerTemplate = "curl -s -L " + ReleaseURLTemplate + " | tar xz && ./mkxray"
	outerTemplate = "sudo bash -c '%s'"

	addrFlag = "-addr"
)

// Options tweak BuildWith. The zero value reproduces Build.
type Options struct {
	// EscapeDest quotes dest for bash before it is embedded. Off by default:
	// the raw form is what existing users copy.
	EscapeDest bool
}

// Build returns the install command for dest and arch.
//
// An empty dest omits the -addr flag. Neither argument is validated or
// escaped; arch lands verbatim in the download URL and dest verbatim inside
// the single-quoted bash -c argument.
func Build(dest, arch string) string {
	inner := fmt.Sprintf(innerTemplate, arch)
	if dest != "" {
		inner += " " + addrFlag + " " + dest
	}
	return fmt.Sprintf(outerTemplate, inner)
}

// BuildWith is Build with options applied. It only fails when EscapeDest is
// set and dest cannot be represented in a bash word (NUL bytes).
func BuildWith(dest, arch string, opts Options) (string, error) {
	if !opts.EscapeDest || dest == "" {
		return Build(dest, arch), nil
	}
	quoted, err := syntax.Quote(dest, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote dest: %w", err)
	}
	inner := fmt.Sprintf(innerTemplate, arch) + " " + addrFlag + " " + quoted
	// Close, escape and reopen the outer single quotes around embedded ones.
	return fmt.Sprintf(outerTemplate, strings.ReplaceAll(inner, "'", `'\''`)), nil
}

// DownloadURL returns the release archive URL for arch.
func DownloadURL(arch string) string {
	return fmt.Sprintf(ReleaseURLTemplate, arch)
}

// NeedsQuoting reports whether dest would be altered or split by the shell
// when embedded raw by Build.
func NeedsQuoting(dest string) bool {
	if dest == "" {
		return false
	}
	quoted, err := syntax.Quote(dest, syntax.LangBash)
	return err != nil || quoted != dest
}
