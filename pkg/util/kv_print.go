package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	ColorCritical = lipgloss.Color("#cc0000")
	ColorWarning  = lipgloss.Color("#e69138")
	ColorOk       = lipgloss.Color("#04B575")
	ColorUnknown  = lipgloss.Color("#68228B")
)

var keyStyle = lipgloss.NewStyle().Bold(true)

func OkStyle([]any) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorOk)
}

// KeyValuePair is one line of a PrintKeyValues table. Value is rendered
// with Format; Style picks the colour from the same values.
type KeyValuePair struct {
	Key    string
	Format string
	Value  []any
	Style  func([]any) lipgloss.Style
}

// PrintKeyValues renders pairs as an aligned two-column table.
func PrintKeyValues(pairs []KeyValuePair) string {
	width := 0
	for _, kv := range pairs {
		width = max(width, lipgloss.Width(kv.Key))
	}

	lines := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		value := fmt.Sprintf(kv.Format, kv.Value...)
		if kv.Style != nil {
			value = kv.Style(kv.Value).Render(value)
		}
		key := keyStyle.Width(width + 2).Render(kv.Key + ":")
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, key, value))
	}

	return strings.Join(lines, "\n")
}
