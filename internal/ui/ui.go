// Package ui formats command output for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

const (
	SymbolSuccess = "✔"
	SymbolError   = "✖"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
)

// Output wraps an io.Writer with UI utilities.
type Output struct {
	w       io.Writer
	noColor bool
	quiet   bool
}

// NewOutput creates an Output. Colors are off unless w is a terminal.
func NewOutput(w io.Writer) *Output {
	return &Output{w: w, noColor: !IsTerminal(w)}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (o *Output) SetNoColor(noColor bool) {
	o.noColor = noColor
}

// SetQuiet suppresses everything but errors.
func (o *Output) SetQuiet(quiet bool) {
	o.quiet = quiet
}

func (o *Output) Writer() io.Writer {
	return o.w
}

func (o *Output) color(code, text string) string {
	if o.noColor {
		return text
	}
	return code + text + Reset
}

func (o *Output) Success(format string, args ...any) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.color(Green, SymbolSuccess), fmt.Sprintf(format, args...))
}

func (o *Output) Error(format string, args ...any) {
	fmt.Fprintf(o.w, "%s %s\n", o.color(Red, SymbolError), fmt.Sprintf(format, args...))
}

// ErrorWithHint prints an error followed by an indented hint line.
func (o *Output) ErrorWithHint(err, hint string) {
	fmt.Fprintf(o.w, "%s %s\n", o.color(Red, SymbolError), err)
	fmt.Fprintf(o.w, "  %s %s\n", o.color(Gray, "Hint:"), hint)
}

func (o *Output) Warning(format string, args ...any) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.color(Yellow, SymbolWarning), fmt.Sprintf(format, args...))
}

func (o *Output) Info(format string, args ...any) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, "%s %s\n", o.color(Blue, SymbolInfo), fmt.Sprintf(format, args...))
}

func (o *Output) Print(format string, args ...any) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, format+"\n", args...)
}

// Field prints an indented "label: value" line.
func (o *Output) Field(label, value string) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, "  %s %s\n", o.color(Gray, label+":"), value)
}

// Table prints rows under bold headers with padded columns.
func (o *Output) Table(headers []string, rows [][]string) {
	if o.quiet {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) string {
		var b strings.Builder
		for i, cell := range cells {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		return strings.TrimSpace(b.String())
	}

	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}

	fmt.Fprintln(o.w, o.color(Bold, line(headers)))
	fmt.Fprintln(o.w, o.color(Gray, line(seps)))
	for _, row := range rows {
		fmt.Fprintln(o.w, line(row))
	}
}

// ColorSwatch prints a block of the color followed by its hex code.
func (o *Output) ColorSwatch(hex string, share float64) {
	if o.quiet {
		return
	}
	if o.noColor {
		fmt.Fprintf(o.w, "%s %5.1f%%\n", hex, share*100)
		return
	}

	var r, g, b int
	_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	block := fmt.Sprintf("\033[48;2;%d;%d;%dm  %s", r, g, b, Reset)
	fmt.Fprintf(o.w, "%s %s %5.1f%%\n", block, hex, share*100)
}

// Spinner animates a message while a slow request runs.
type Spinner struct {
	out      *Output
	message  string
	frames   []string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSpinner(out *Output, message string) *Spinner {
	return &Spinner{
		out:      out,
		message:  message,
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins animating. It does nothing when output is quiet or not a terminal.
func (s *Spinner) Start() {
	if s.out.quiet || s.out.noColor {
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.out.w, "\r%s %s", s.out.color(Cyan, s.frames[i%len(s.frames)]), s.message)
			select {
			case <-s.stop:
				fmt.Fprintf(s.out.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}
