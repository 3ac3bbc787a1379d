package freq

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	barWidth = 30
	barChar  = "#"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FA3A5"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// TopLetters returns the n most frequent letters, ties broken alphabetically.
func TopLetters(t Table, n int) []string {
	if n <= 0 {
		return nil
	}
	type item struct {
		ch    string
		count int
	}
	items := make([]item, 0, len(t))
	for pos, c := range t {
		if c == 0 {
			continue
		}
		items = append(items, item{ch: string(rune('a' + pos)), count: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count == items[j].count {
			return items[i].ch < items[j].ch
		}
		return items[i].count > items[j].count
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].ch)
	}
	return out
}

// Render prints one row per letter with its count, share and a bar scaled to the
// most frequent letter.
func Render(w io.Writer, title string, t Table, useColor bool) error {
	style := func(s lipgloss.Style, v string) string {
		if !useColor {
			return v
		}
		return s.Render(v)
	}

	total := t.Total()
	if _, err := fmt.Fprintln(w, style(headerStyle, title)); err != nil {
		return err
	}
	if total == 0 {
		_, err := fmt.Fprintln(w, style(mutedStyle, "No letters counted."))
		return err
	}

	maxCount := 0
	for _, c := range t {
		if c > maxCount {
			maxCount = c
		}
	}

	headers := []string{"Letter", "Count", "Share", ""}
	rows := make([][]string, 0, len(t))
	for pos, c := range t {
		share := float64(c) / float64(total)
		rows = append(rows, []string{
			string(rune('a' + pos)),
			fmt.Sprintf("%d", c),
			fmt.Sprintf("%.2f%%", share*100),
			bar(c, maxCount),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true}
	lines := formatTable(headers, rows, rightAlign)
	for i, line := range lines {
		if i == 0 {
			line = style(headerStyle, line)
		} else if useColor {
			line = colorBar(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Total: %d\n", total); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Top: %s\n", strings.Join(TopLetters(t, 5), " ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func bar(count, maxCount int) string {
	if maxCount <= 0 || count <= 0 {
		return ""
	}
	n := int(math.Round(float64(count) / float64(maxCount) * barWidth))
	if n < 1 {
		n = 1
	}
	return strings.Repeat(barChar, n)
}

func colorBar(line string) string {
	idx := strings.Index(line, barChar)
	if idx < 0 {
		return line
	}
	return line[:idx] + barStyle.Render(line[idx:])
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount && i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	if rightAlign {
		return runewidth.FillLeft(value, width)
	}
	return runewidth.FillRight(value, width)
}
