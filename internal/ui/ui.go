// Package ui is the terminal presentation layer: leveled colored output
// plus table and JSON renderers for jobs and queries. Color respects
// NO_COLOR and degrades to plain text on dumb terminals.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jobscout/jobscout/internal/model"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

const linkColor = "#87CEEB"

type UI struct {
	Out          io.Writer
	Err          io.Writer
	ColorEnabled bool

	out    *termenv.Output
	errOut *termenv.Output
}

func New(out, errW io.Writer, mode ColorMode) *UI {
	output := termenv.NewOutput(out)
	errOutput := termenv.NewOutput(errW)
	return &UI{
		Out:          out,
		Err:          errW,
		ColorEnabled: colorEnabled(output, mode),
		out:          output,
		errOut:       errOutput,
	}
}

func colorEnabled(output *termenv.Output, mode ColorMode) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return output.ColorProfile() != termenv.Ascii
	}
}

func NormalizeColorMode(value string) ColorMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ColorAlways):
		return ColorAlways
	case string(ColorNever):
		return ColorNever
	default:
		return ColorAuto
	}
}

func (u *UI) printColored(w io.Writer, out *termenv.Output, color, format string, args []any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	if u.ColorEnabled {
		msg = out.String(msg).Foreground(out.Color(color)).String()
	}
	fmt.Fprintln(w, msg)
}

func (u *UI) Errorf(format string, args ...any) {
	u.printColored(u.Err, u.errOut, "1", format, args)
}

func (u *UI) Warnf(format string, args ...any) {
	u.printColored(u.Err, u.errOut, "3", format, args)
}

func (u *UI) Infof(format string, args ...any) {
	u.printColored(u.Out, u.out, "4", format, args)
}

func (u *UI) Successf(format string, args ...any) {
	u.printColored(u.Out, u.out, "2", format, args)
}

// Printf writes without any styling, for output that may be piped.
func (u *UI) Printf(format string, args ...any) {
	fmt.Fprintf(u.Out, format, args...)
}

func (u *UI) LinkText(text string) string {
	if !u.ColorEnabled {
		return text
	}
	return u.out.String(text).Foreground(u.out.Color(linkColor)).String()
}

// statusColors follows traffic-light reading order: new work blue, active
// work yellow, done green, parked gray.
var statusColors = map[model.Status]string{
	model.StatusPending:    "4",
	model.StatusInProgress: "3",
	model.StatusApplied:    "2",
	model.StatusDiscarded:  "8",
}

// StatusText renders a job status, colored when the terminal allows.
func (u *UI) StatusText(s model.Status) string {
	if !u.ColorEnabled {
		return string(s)
	}
	color, ok := statusColors[s]
	if !ok {
		return string(s)
	}
	return u.out.String(string(s)).Foreground(u.out.Color(color)).String()
}
