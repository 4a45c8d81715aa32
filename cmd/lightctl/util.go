package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/util"
)

func brightnessCapLabel(automatic bool, level uint8) string {
	if automatic {
		return fmt.Sprintf("%d (Knob)", level)
	}
	return fmt.Sprintf("%d (Override)", level)
}

func modeLabel(mode string, running bool) string {
	if running {
		return mode
	}
	return mode + " (stopped)"
}

func capOverrideStyle(automatic bool) lipgloss.Style {
	if automatic {
		return lipgloss.NewStyle().Foreground(util.ColorOk)
	}

	return lipgloss.NewStyle().Foreground(util.ColorWarning)
}

func runningStyle(running bool) lipgloss.Style {
	if running {
		return lipgloss.NewStyle().Foreground(util.ColorOk)
	}

	return lipgloss.NewStyle().Foreground(util.ColorUnknown)
}

func timersStyle(active int) lipgloss.Style {
	if active > 0 {
		return lipgloss.NewStyle().Foreground(util.ColorWarning)
	}

	return lipgloss.NewStyle().Foreground(util.ColorOk)
}

// swatch renders a single pixel as a coloured block. White is dropped.
func swatch(c led.Color) string {
	rgb := led.RGB(c.Red, c.Green, c.Blue)
	return lipgloss.NewStyle().Background(lipgloss.Color(rgb.String())).Render("  ")
}
