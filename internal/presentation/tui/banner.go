package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   __                                             _ `, "#34d399"},
	{`  / _| ___  _ __ _ __ ___   __ _ _   _  __ _ _ __ __| |`, "#2dd4bf"},
	{` | |_ / _ \| '__| '_ ' _ \ / _' | | | |/ _' | '__/ _' |`, "#22d3ee"},
	{` |  _| (_) | |  | | | | | | (_| | |_| | (_| | | | (_| |`, "#38bdf8"},
	{` |_|  \___/|_|  |_| |_| |_|\__, |\__,_|\__,_|_|  \__,_|`, "#60a5fa"},
	{`                           |___/                       `, "#818cf8"},
}

// PrintBanner writes the formguard banner to w, colored when the terminal
// supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w)
}
