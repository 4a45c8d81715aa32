package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/moodlight-community/moodlight-agent/pkg/util"
	"github.com/spf13/cobra"
)

func init() {
	cmdGet.AddCommand(cmdGetStatus)
	cmdGet.AddCommand(cmdGetAlarms)
	cmdDescribe.AddCommand(cmdDescribeStrip)
}

var (
	cmdGetStatus = &cobra.Command{
		Use:     "status",
		Short:   "Get in-depth information about the current state of the light",
		Example: "lightctl get status",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd)
			if err != nil {
				return err
			}

			fmt.Println(util.PrintKeyValues(buildStatusKeyValues(status)))
			return nil
		},
	}

	cmdGetAlarms = &cobra.Command{
		Use:     "alarms",
		Aliases: []string{"alarm", "wake"},
		Short:   "List the configured wake alarms",
		Example: "lightctl get alarms",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd)
			if err != nil {
				return err
			}

			if len(status.Alarms) == 0 {
				fmt.Println("No alarms set")
				return nil
			}
			for _, alarm := range status.Alarms {
				fmt.Println(alarm)
			}
			return nil
		},
	}

	cmdDescribeStrip = &cobra.Command{
		Use:     "strip",
		Aliases: []string{"pixels", "frame"},
		Short:   "Show the colour of every pixel on the strip",
		Example: "lightctl describe strip",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd)
			if err != nil {
				return err
			}

			values := make([]util.KeyValuePair, len(status.Frame))
			for idx, color := range status.Frame {
				values[idx] = util.KeyValuePair{
					Key:    fmt.Sprintf("#%d", idx),
					Format: "%s %s",
					Value:  []any{swatch(color), color},
				}
			}

			fmt.Println(util.PrintKeyValues(values))
			return nil
		},
	}
)

func buildStatusKeyValues(status lightapiv1.Status) []util.KeyValuePair {
	var preview strings.Builder
	for _, color := range status.Frame {
		preview.WriteString(swatch(color))
	}

	return []util.KeyValuePair{
		{
			Key:    "Mode",
			Format: "%s",
			Value:  []any{modeLabel(status.Mode, status.Running)},
			Style: func([]any) lipgloss.Style {
				return runningStyle(status.Running)
			},
		},
		{
			Key:    "Brightness Cap",
			Format: "%s",
			Value:  []any{brightnessCapLabel(status.CapAutomatic, status.BrightnessCap)},
			Style: func([]any) lipgloss.Style {
				return capOverrideStyle(status.CapAutomatic)
			},
		},
		{
			Key:    "Knob",
			Format: "%d%%",
			Value:  []any{status.KnobPercent},
			Style:  util.OkStyle,
		},
		{
			Key:    "Sleep Timers",
			Format: "%d",
			Value:  []any{status.TimersActive},
			Style: func([]any) lipgloss.Style {
				return timersStyle(status.TimersActive)
			},
		},
		{
			Key:    "Alarms",
			Format: "%d",
			Value:  []any{len(status.Alarms)},
			Style:  util.OkStyle,
		},
		{
			Key:    "Driver",
			Format: "%s",
			Value:  []any{status.Driver},
		},
		{
			Key:    "Strip",
			Format: "%d LEDs (%s)",
			Value:  []any{status.Count, status.Order},
		},
		{
			Key:    "Frame",
			Format: "%s",
			Value:  []any{preview.String()},
		},
	}
}
