package logging

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35
	colorCyan    = 36

	colorBold = 1
)

func colorize(s any, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:                 out,
		TimeFormat:          "2006-01-02 15:04:05",
		FormatLevel:         formatLevel,
		FormatErrFieldName:  func(i any) string { return fmt.Sprintf("%s=", i) },
		FormatErrFieldValue: func(i any) string { return fmt.Sprintf("%s", i) },
	}
}

func formatLevel(i any) string {
	ll, _ := i.(string)
	switch ll {
	case "trace":
		return colorize("TRC", colorCyan)
	case "debug":
		return colorize("DBG", colorMagenta)
	case "info":
		return colorize("INF", colorGreen)
	case "warn":
		return colorize("WRN", colorYellow)
	case "error":
		return colorize("ERR", colorRed)
	case "fatal":
		return colorize(colorize("FTL", colorRed), colorBold)
	default:
		return colorize("???", colorBold)
	}
}
