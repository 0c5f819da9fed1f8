package installcmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

var (
	// ErrNotInstallCommand is returned when the input is not a sudo bash -c command.
	ErrNotInstallCommand = errors.New("not an mkxray install command")

	// ErrUnsafeDest is returned when the address does not reach mkxray as a
	// single literal argument: a single quote or backslash breaks the quoting,
	// and unquoted globs or braces are expanded by bash.
	ErrUnsafeDest = errors.New("address breaks the install command quoting")
)

const binary = "./mkxray"

// Report is what a shell would hand to mkxray after parsing a command.
type Report struct {
	Script string   // argument given to bash -c
	Args   []string // mkxray arguments, without the binary name
}

// Dest returns the -addr value mkxray would receive.
func (r Report) Dest() (string, bool) {
	i := slices.Index(r.Args, addrFlag)
	if i < 0 || i+1 >= len(r.Args) {
		return "", false
	}
	return r.Args[i+1], true
}

// Inspect parses command the way bash would and reports the arguments the
// mkxray binary ends up with. Parse failures and anything that is not a
// single sudo bash -c invocation of mkxray wrap ErrUnsafeDest.
func Inspect(command string) (Report, error) {
	f, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnsafeDest, err)
	}
	if len(f.Stmts) == 0 {
		return Report{}, ErrNotInstallCommand
	}
	call, ok := f.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) < 3 || !hasPrefix(call.Args, "sudo", "bash", "-c") {
		return Report{}, ErrNotInstallCommand
	}
	if len(f.Stmts) > 1 || len(call.Args) != 4 || len(f.Stmts[0].Redirs) > 0 || f.Stmts[0].Background {
		return Report{}, fmt.Errorf("%w: extra shell words after bash -c argument", ErrUnsafeDest)
	}

	script, err := literal(call.Args[3])
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnsafeDest, err)
	}
	inner, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		return Report{}, fmt.Errorf("%w: inner script: %v", ErrUnsafeDest, err)
	}

	var (
		mk      *syntax.CallExpr
		callErr error
	)
	syntax.Walk(inner, func(node syntax.Node) bool {
		if mk != nil || callErr != nil {
			return false
		}
		c, ok := node.(*syntax.CallExpr)
		if !ok || len(c.Args) == 0 {
			return true
		}
		name, err := literal(c.Args[0])
		if err != nil {
			callErr = err
			return false
		}
		if name == binary {
			mk = c
			return false
		}
		return true
	})
	if callErr != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnsafeDest, callErr)
	}
	if mk == nil {
		return Report{}, ErrNotInstallCommand
	}

	rep := Report{Script: script, Args: make([]string, 0, len(mk.Args)-1)}
	for _, w := range mk.Args[1:] {
		arg, err := literal(w)
		if err != nil {
			return Report{}, fmt.Errorf("%w: %v", ErrUnsafeDest, err)
		}
		rep.Args = append(rep.Args, arg)
	}
	return rep, nil
}

// Verify checks that command hands dest to mkxray unchanged. An empty dest
// expects no mkxray arguments at all.
func Verify(command, dest string) error {
	rep, err := Inspect(command)
	if err != nil {
		return err
	}
	want := []string{}
	if dest != "" {
		want = []string{addrFlag, dest}
	}
	if !slices.Equal(rep.Args, want) {
		return fmt.Errorf("%w: mkxray would receive %q", ErrUnsafeDest, rep.Args)
	}
	return nil
}

func hasPrefix(words []*syntax.Word, prefix ...string) bool {
	for i, p := range prefix {
		if words[i].Lit() != p {
			return false
		}
	}
	return true
}

// literal performs the quote removal bash applies to a plain argument word.
// Words that bash would still change (parameter or command expansion, globs,
// brace or tilde expansion) are rejected.
func literal(w *syntax.Word) (string, error) {
	var chars []wordChar
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			chars = appendUnquoted(chars, p.Value)
		case *syntax.SglQuoted:
			s := p.Value
			if p.Dollar {
				// ANSI-C escapes such as \t.
				var err error
				s, err = expand.Literal(&expand.Config{}, &syntax.Word{Parts: []syntax.WordPart{p}})
				if err != nil {
					return "", err
				}
			}
			chars = appendQuoted(chars, s)
		case *syntax.DblQuoted:
			for _, dp := range p.Parts {
				lit, ok := dp.(*syntax.Lit)
				if !ok {
					return "", errors.New("expansion inside double quotes")
				}
				chars = appendQuoted(chars, unescapeDouble(lit.Value))
			}
		default:
			return "", fmt.Errorf("word part %T is expanded by the shell", part)
		}
	}
	if err := checkExpansions(chars); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range chars {
		sb.WriteRune(c.r)
	}
	return sb.String(), nil
}

// wordChar is one character of a word after quote removal. Quoted characters
// are never special to the shell.
type wordChar struct {
	r      rune
	quoted bool
}

func appendQuoted(chars []wordChar, s string) []wordChar {
	for _, r := range s {
		chars = append(chars, wordChar{r: r, quoted: true})
	}
	return chars
}

// appendUnquoted drops backslashes outside quotes; an escaped newline is a
// line continuation and disappears entirely.
func appendUnquoted(chars []wordChar, s string) []wordChar {
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] == '\\' && i+1 < len(rs) {
			i++
			if rs[i] != '\n' {
				chars = append(chars, wordChar{r: rs[i], quoted: true})
			}
			continue
		}
		chars = append(chars, wordChar{r: rs[i]})
	}
	return chars
}

// unescapeDouble applies the backslash rules of double-quoted text.
func unescapeDouble(s string) string {
	var sb strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] == '\\' && i+1 < len(rs) && strings.ContainsRune("$`\"\\\n", rs[i+1]) {
			i++
			if rs[i] != '\n' {
				sb.WriteRune(rs[i])
			}
			continue
		}
		sb.WriteRune(rs[i])
	}
	return sb.String()
}

func checkExpansions(chars []wordChar) error {
	if len(chars) > 0 && !chars[0].quoted && chars[0].r == '~' {
		return errors.New("unquoted tilde expansion")
	}
	for i, c := range chars {
		if c.quoted {
			continue
		}
		switch c.r {
		case '*', '?', '[':
			return fmt.Errorf("unquoted glob character %q", c.r)
		case '{':
			if bracePattern(chars[i+1:]) {
				return errors.New("unquoted brace expansion")
			}
		}
	}
	return nil
}

// bracePattern reports whether the text after an unquoted "{" forms
// {a,b} or {x..y} before the next unquoted "}".
func bracePattern(rest []wordChar) bool {
	for i, c := range rest {
		if c.quoted {
			continue
		}
		switch {
		case c.r == '}':
			return false
		case c.r == ',':
			return hasClose(rest[i+1:])
		case c.r == '.' && i+1 < len(rest) && !rest[i+1].quoted && rest[i+1].r == '.':
			return hasClose(rest[i+2:])
		}
	}
	return false
}

func hasClose(rest []wordChar) bool {
	for _, c := range rest {
		if !c.quoted && c.r == '}' {
			return true
		}
	}
	return false
}
