// Package ui renders progress messages for the command line.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Separator is printed between workflow stages
const Separator = "------------------"

// Logger receives progress messages from the publishing workflow
type Logger interface {
	// Message logs a plain progress line
	Message(format string, args ...interface{})

	// Important logs the start of a stage
	Important(format string, args ...interface{})

	// Success logs a successful outcome
	Success(format string, args ...interface{})

	// Error logs a failure
	Error(format string, args ...interface{})

	// Verbose logs detail that is only shown with --verbose
	Verbose(format string, args ...interface{})
}

// Nop discards every message (useful for tests)
type Nop struct{}

func (Nop) Message(string, ...interface{}) {}
func (Nop) Important(string, ...interface{}) {}
func (Nop) Success(string, ...interface{}) {}
func (Nop) Error(string, ...interface{}) {}
func (Nop) Verbose(string, ...interface{}) {}

// Console writes prefixed, optionally coloured lines to a writer
type Console struct {
	out     io.Writer
	verbose bool
	color   bool

	mu sync.Mutex

	important lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	dim       lipgloss.Style
}

// NewConsole creates a console logger
func NewConsole(out io.Writer, verbose, color bool) *Console {
	return &Console{
		out:       out,
		verbose:   verbose,
		color:     color,
		important: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		success:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		failure:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		dim:       lipgloss.NewStyle().Faint(true),
	}
}

// ColorEnabled reports whether f is a terminal that can render colours
func ColorEnabled(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) write(style *lipgloss.Style, prefix, format string, args ...interface{}) {
	line := prefix + fmt.Sprintf(format, args...)
	if c.color && style != nil {
		line = style.Render(line)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func (c *Console) Message(format string, args ...interface{}) {
	c.write(nil, "[INFO] ", format, args...)
}

func (c *Console) Important(format string, args ...interface{}) {
	c.write(&c.important, "[INFO] ", format, args...)
}

func (c *Console) Success(format string, args ...interface{}) {
	c.write(&c.success, "[ OK ] ", format, args...)
}

func (c *Console) Error(format string, args ...interface{}) {
	c.write(&c.failure, "[ERROR] ", format, args...)
}

func (c *Console) Verbose(format string, args ...interface{}) {
	if !c.verbose {
		return
	}
	c.write(&c.dim, "[DEBUG] ", format, args...)
}
