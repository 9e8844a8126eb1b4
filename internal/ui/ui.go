package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB")).Bold(true)
)

// Out receives everything the ui package prints. The deploy command points
// it at a writer that also feeds the run's log file.
var Out io.Writer = os.Stdout

// Err receives error blocks.
var Err io.Writer = os.Stderr

// FormatError returns a styled multi-line error message.
func FormatError(title, detail, suggestion string) string {
	out := errorStyle.Render("Error: "+title) + "\n"
	if detail != "" {
		out += "  " + detail + "\n"
	}
	if suggestion != "" {
		out += "  " + hintStyle.Render("Hint: "+suggestion) + "\n"
	}
	return out
}

// PrintError writes a FormatError block to Err.
func PrintError(title, detail, suggestion string) {
	fmt.Fprint(Err, FormatError(title, detail, suggestion))
}

// StepStarted prints the header of a pipeline step.
func StepStarted(name string) {
	fmt.Fprintf(Out, "\n%s %s\n", stepStyle.Render("==>"), boldStyle.Render(name))
}

// StepDone prints a styled status when a step finishes.
func StepDone(name, detail string) {
	msg := successStyle.Render("  OK ") + " " + name
	if detail != "" {
		msg += " " + dimStyle.Render(detail)
	}
	fmt.Fprintln(Out, msg)
}

// StepSkipped prints a styled status when a step does not apply.
func StepSkipped(name, reason string) {
	msg := name + " (skipped)"
	if reason != "" {
		msg = name + " (skipped: " + reason + ")"
	}
	fmt.Fprintf(Out, "  %s %s\n", dimStyle.Render("--"), dimStyle.Render(msg))
}

// StepFailed prints a red status for a failed step.
func StepFailed(name string, err error) {
	fmt.Fprintf(Out, "  %s %s: %v\n", errorStyle.Render("ERR"), name, err)
}

// Command echoes a remote command before it runs.
func Command(name, command string) {
	fmt.Fprintf(Out, "  %s %s\n", dimStyle.Render("$"), dimStyle.Render(name+": "+command))
}

// Success prints a green success message.
func Success(msg string) {
	fmt.Fprintln(Out, successStyle.Render(msg))
}

// Warn prints a yellow warning message.
func Warn(msg string) {
	fmt.Fprintln(Out, warnStyle.Render("Warning: "+msg))
}

// Info prints a dim informational message.
func Info(msg string) {
	fmt.Fprintln(Out, dimStyle.Render("  "+msg))
}

// Println prints a plain line.
func Println(a ...any) {
	fmt.Fprintln(Out, a...)
}

// Bold renders text in bold.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// Hint renders text in dim italic.
func Hint(s string) string {
	return hintStyle.Render(s)
}

// ValidationOK prints a green check for a valid field.
func ValidationOK(field, detail string) {
	fmt.Fprintf(Out, "  %s %s: %s\n", successStyle.Render("OK "), field, detail)
}

// ValidationErr prints a red error for an invalid field.
func ValidationErr(field, message, suggestion string) {
	fmt.Fprintf(Out, "  %s %s: %s\n", errorStyle.Render("ERR"), field, message)
	if suggestion != "" {
		fmt.Fprintf(Out, "      %s\n", hintStyle.Render("Hint: "+suggestion))
	}
}
