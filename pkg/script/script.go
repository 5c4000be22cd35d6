package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/cernvm/litescript/pkg/archive"
	"github.com/cernvm/litescript/pkg/compiler"
)

const (
	// FunctionName is the name of the generated shell function.
	FunctionName = "MACRO_PREPARE_FS"

	// LoopVar is the loop variable of [compiler.OpMkdirEach] statements.
	LoopVar = "XDIR"
)

var (
	// ErrInvalidParameter is returned for parameter names that are not shell
	// identifiers.
	ErrInvalidParameter = errors.New("invalid parameter name")
	// ErrUnknownOp is returned for statements the emitter cannot render.
	ErrUnknownOp = errors.New("unknown statement op")

	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

const header = `#
# Procedurally generated function for setting up the CernVM
# filesystem before final chroot.
#
`

// Archive identifies the content archive extracted by the script.
type Archive struct {
	// Name is the archive file name, relative to the script directory.
	Name        string
	Compression archive.Compression
}

// Render writes the script for p to w.
func Render(w io.Writer, p *compiler.Program, a Archive) error {
	var buf bytes.Buffer

	buf.WriteString(header)

	err := writeParameters(&buf, p.Parameters)
	if err != nil {
		return err
	}

	fmt.Fprintf(&buf, "function %s {\n", FunctionName)
	buf.WriteString("\tlocal GUEST_DIR=$1\n")
	buf.WriteString("\tlocal SCRIPT_DIR=$( cd \"$( dirname \"${BASH_SOURCE[0]}\" )\" && pwd )\n")
	buf.WriteString("\t\n")

	err = writeStatements(&buf, p.Pre)
	if err != nil {
		return fmt.Errorf("pre phase: %w", err)
	}

	fmt.Fprintf(&buf, "\ttar -C ${GUEST_DIR} -%sxf ${SCRIPT_DIR}/%s\n", a.Compression.Flag(), a.Name)

	err = writeStatements(&buf, p.Post)
	if err != nil {
		return fmt.Errorf("post phase: %w", err)
	}

	buf.WriteString("}\n")

	_, err = buf.WriteTo(w)
	if err != nil {
		return fmt.Errorf("write script: %w", err)
	}

	return nil
}

// Bytes renders the script for p.
func Bytes(p *compiler.Program, a Archive) ([]byte, error) {
	var buf bytes.Buffer

	err := Render(&buf, p, a)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Lines returns the shell lines for one statement, without indentation.
func Lines(s compiler.Statement) ([]string, error) {
	switch s.Op {
	case compiler.OpReadOnly:
		return []string{"MACRO_RO " + s.Path}, nil
	case compiler.OpWritable:
		return []string{"MACRO_RW " + s.Path}, nil
	case compiler.OpMkdir:
		return []string{"MACRO_MKDIR " + s.Path}, nil
	case compiler.OpMkdirEach:
		return []string{
			fmt.Sprintf("for %s in %s; do", LoopVar, strings.Join(s.Items, " ")),
			fmt.Sprintf("\tMACRO_MKDIR %s/${%s}", s.Path, LoopVar),
			"done",
		}, nil
	case compiler.OpTouch:
		return []string{"touch ${GUEST_DIR}/" + s.Path}, nil
	case compiler.OpChmod:
		return []string{fmt.Sprintf("chmod %s ${GUEST_DIR}/%s", s.Mode, s.Path)}, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownOp, s.Op)
}

func writeStatements(buf *bytes.Buffer, stmts []compiler.Statement) error {
	for _, s := range stmts {
		lines, err := Lines(s)
		if err != nil {
			return err
		}

		for _, l := range lines {
			buf.WriteString("\t" + l + "\n")
		}
	}

	return nil
}

func writeParameters(buf *bytes.Buffer, params map[string]string) error {
	if len(params) == 0 {
		return nil
	}

	for _, k := range slices.Sorted(maps.Keys(params)) {
		if !identRe.MatchString(k) {
			return fmt.Errorf("%w %q", ErrInvalidParameter, k)
		}

		fmt.Fprintf(buf, "%s=%s\n", k, Quote(params[k]))
	}

	buf.WriteString("\n")

	return nil
}

// Quote returns s as a single-quoted shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
