package installcmd

import "fmt"

// Result is a generated command plus what is known about it.
type Result struct {
	Command       string
	Dest          string
	Arch          string
	DownloadURL   string
	ArchSupported bool
	UnsafeDest    bool
	Warnings      []string
}

// Describe generates the command for dest and arch and checks it. An empty
// arch selects DefaultArch; any other value is used verbatim. Problems are
// reported in Warnings, the command is returned regardless.
func Describe(dest, arch string, opts Options) (Result, error) {
	a, ok := ParseArch(arch)
	cmd, err := BuildWith(dest, string(a), opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Command:       cmd,
		Dest:          dest,
		Arch:          string(a),
		DownloadURL:   DownloadURL(string(a)),
		ArchSupported: ok,
	}
	if !ok {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("no mkxray release is published for arch %q; the download will fail", a))
	}
	if dest != "" && Verify(cmd, dest) != nil {
		res.UnsafeDest = true
		msg := "the address contains characters that break the shell quoting; mkxray will not receive it unchanged"
		if !opts.EscapeDest && NeedsQuoting(dest) {
			msg += " (enable address escaping to quote it)"
		}
		res.Warnings = append(res.Warnings, msg)
	}
	return res, nil
}
