package reporter

import (
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/ppiankov/sqlscorer/internal/analyzer"
)

var severityAttrs = map[analyzer.Severity][]color.Attribute{
	analyzer.SeverityHigh:   {color.FgRed, color.Bold},
	analyzer.SeverityMedium: {color.FgYellow, color.Bold},
	analyzer.SeverityLow:    {color.FgCyan},
	analyzer.SeverityInfo:   {color.FgWhite},
}

// palette colors text only when the destination is a terminal.
type palette struct {
	enabled bool
}

func newPalette(w io.Writer) palette {
	return paletteFor(isTTY(w))
}

// paletteFor honors color.NoColor, which fatih/color derives from NO_COLOR
// and TERM=dumb.
func paletteFor(tty bool) palette {
	return palette{enabled: tty && !color.NoColor}
}

func (p palette) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if p.enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (p palette) severity(s analyzer.Severity, text string) string {
	attrs, ok := severityAttrs[s]
	if !ok {
		attrs = []color.Attribute{color.Reset}
	}
	return p.paint(text, attrs...)
}

// isTTY returns true if the writer is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
