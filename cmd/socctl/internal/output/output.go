// Package output provides colored terminal output helpers for socctl.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31;1m"
	ansiGreen  = "\033[32;1m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// NoColor disables ANSI escapes, for piped output or dumb terminals.
var NoColor = false

func colorize(code, s string) string {
	if NoColor {
		return s
	}
	return code + s + ansiReset
}

func Success(format string, a ...interface{}) {
	fmt.Println(colorize(ansiGreen, "✓ "+fmt.Sprintf(format, a...)))
}

func Error(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, colorize(ansiRed, "✗ "+fmt.Sprintf(format, a...)))
}

func Info(format string, a ...interface{}) {
	fmt.Println(colorize(ansiCyan, fmt.Sprintf(format, a...)))
}

func Warn(format string, a ...interface{}) {
	fmt.Println(colorize(ansiYellow, "⚠ "+fmt.Sprintf(format, a...)))
}

// JSON writes v to stdout as indented JSON.
func JSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows under a header with columns padded to fit.
type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{headers: headers}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header strings.Builder
	for i, h := range t.headers {
		header.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	fmt.Println(colorize(ansiBold, header.String()))

	for i := range t.headers {
		fmt.Print(strings.Repeat("-", widths[i]) + "  ")
	}
	fmt.Println()

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Printf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Println()
	}
}
