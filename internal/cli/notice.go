package cli

import (
	"errors"
	"fmt"
	"io"

	"parking_terminal/internal/desk"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func notifySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+message))
}

func notifyError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("✘ "+friendlyError(err)))
}

func notifyWarning(w io.Writer, message string) {
	fmt.Fprintln(w, warningStyle.Render("! "+message))
}

// notifyOutcome reports an action that produced a receipt. A print failure
// is a warning: the action itself already succeeded.
func notifyOutcome(w io.Writer, message string, outcome desk.Outcome) {
	notifySuccess(w, message)
	if warning := desk.PrintWarning(outcome); warning != "" {
		notifyWarning(w, warning)
	}
}

func friendlyError(err error) string {
	var usage usageError
	var unknown unknownCommandError
	var invalid invalidArgError
	switch {
	case errors.As(err, &usage), errors.As(err, &unknown), errors.As(err, &invalid):
		return err.Error()
	case errors.Is(err, errUnbalancedQuote):
		return "Comando inválido: " + err.Error()
	default:
		return desk.Describe(err)
	}
}
