package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
)

var usageErrorPrefixes = []string{
	"flag needs an argument:",
	"unknown flag:",
	"unknown shorthand flag:",
	"unknown command",
	"invalid argument",
	"accepts ",
	"requires at least ",
}

// ErrorHandler renders command errors for [fang.WithErrorHandler]. The
// first line of the error is styled; any following lines, such as the diff
// of `compile --check`, are printed verbatim.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	msg, detail, _ := strings.Cut(err.Error(), "\n")

	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(msg)))
	mustN(fmt.Fprintln(w))

	if detail != "" {
		mustN(fmt.Fprintln(w, strings.TrimRight(detail, "\n")))
		mustN(fmt.Fprintln(w))
	}

	if !isUsageError(err) {
		return
	}

	mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
		lipgloss.Left,
		styles.ErrorText.UnsetWidth().Render("Try"),
		styles.Program.Flag.Render("--help"),
		styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
	)))
	mustN(fmt.Fprintln(w))
}

// isUsageError matches cobra's argument and flag errors by message, since
// cobra does not export them as types.
func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range usageErrorPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}
