package main

import (
	"fmt"
	"strconv"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func init() {
	cmdSet.AddCommand(cmdSetBrightness)
	cmdGet.AddCommand(cmdGetBrightness)
	cmdRemove.AddCommand(cmdRmBrightness)
}

var (
	brightnessAliases = []string{"cap", "brightness-cap"}

	cmdSetBrightness = &cobra.Command{
		Use:     "brightness <0-255>",
		Aliases: brightnessAliases,
		Short:   "Override the brightness cap set by the knob",
		Example: "lightctl set brightness 64",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			level, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("brightness must be a number between 0 and 255: %w", err)
			}

			_, err = client.SetBrightnessCap(ctx, wrapperspb.UInt32(uint32(level)))
			return err
		},
	}

	cmdRmBrightness = &cobra.Command{
		Use:     "brightness",
		Aliases: brightnessAliases,
		Short:   "Hand the brightness cap back to the knob",
		Example: "lightctl remove brightness",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			_, err := client.SetBrightnessCap(ctx, wrapperspb.UInt32(lightapiv1.BrightnessCapAutomatic))
			return err
		},
	}

	cmdGetBrightness = &cobra.Command{
		Use:     "brightness",
		Aliases: brightnessAliases,
		Short:   "Get the brightness cap",
		Example: "lightctl get brightness",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd)
			if err != nil {
				return err
			}

			if status.CapAutomatic {
				fmt.Printf("%d (knob at %d%%)\n", status.BrightnessCap, status.KnobPercent)
			} else {
				fmt.Printf("%d (Override)\n", status.BrightnessCap)
			}
			return nil
		},
	}
)
