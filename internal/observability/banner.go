package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorYellow   = "\033[33m"
	colorRed      = "\033[91m"
	colorBold     = "\033[1m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

// ------------------------------------------------------------
// Utility
// ------------------------------------------------------------

func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isTerminal reports whether w is an interactive terminal. Colour escapes are
// only written when it is, so redirected output stays plain.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// ------------------------------------------------------------
// Banner
// ------------------------------------------------------------

const banner = `
    ___                          ____
   / _ \ ___ ___  ___ ___ _ ___ / __/____ ___   ___  ___
  / // // __/ -_)/ _ '/  ' \___\ \ / __// _ \ / _ \/ -_)
 /____//_/  \__/ \_,_/_/_/_/  /___/ \__/ \___// .__/\__/
                                             /_/
          >> UI SMOKE WALKTHROUGH <<
`

// PrintBanner writes the start-up banner centred to the terminal width.
func PrintBanner(w io.Writer) {
	width := termWidth(w)
	color := isTerminal(w)

	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len([]rune(l))) / 2
		if padding < 0 {
			padding = 0
		}
		if color {
			fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
		} else {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
		}
	}
}
