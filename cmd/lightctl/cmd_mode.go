package main

import (
	"fmt"
	"time"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/scene"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/emptypb"
)

var (
	modeColor      string
	modeDuration   time.Duration
	modePeriod     time.Duration
	modeGradient   bool
	modeSaturation int
	modeValue      int

	fadeColor    string
	fadeDuration time.Duration
)

func init() {
	cmdSetMode.Flags().StringVarP(&modeColor, "color", "c", "#ffffff", "Colour as #rrggbb or #rrggbbww.")
	cmdSetMode.Flags().DurationVarP(&modeDuration, "duration", "d", time.Second, "Fade duration for the fade and off modes.")
	cmdSetMode.Flags().DurationVar(&modePeriod, "period", 10*time.Second, "Hue cycle period for rainbow-smooth.")
	cmdSetMode.Flags().BoolVar(&modeGradient, "gradient", false, "Spread the hue along the strip for rainbow-smooth.")
	cmdSetMode.Flags().IntVar(&modeSaturation, "saturation", 255, "Saturation for rainbow-smooth (0-255).")
	cmdSetMode.Flags().IntVar(&modeValue, "value", 255, "Value for rainbow-smooth (0-255).")

	cmdSetFade.Flags().StringVarP(&fadeColor, "color", "c", "#000000", "Target colour as #rrggbb or #rrggbbww.")
	cmdSetFade.Flags().DurationVarP(&fadeDuration, "duration", "d", time.Second, "Fade duration.")

	cmdSetRainbow.Flags().DurationVar(&modePeriod, "period", 10*time.Second, "Hue cycle period.")
	cmdSetRainbow.Flags().BoolVar(&modeGradient, "gradient", false, "Spread the hue along the strip.")
	cmdSetRainbow.Flags().IntVar(&modeSaturation, "saturation", 255, "Saturation (0-255).")
	cmdSetRainbow.Flags().IntVar(&modeValue, "value", 255, "Value (0-255).")

	cmdSet.AddCommand(cmdSetMode)
	cmdSet.AddCommand(cmdSetFade)
	cmdSet.AddCommand(cmdSetRainbow)
	cmdGet.AddCommand(cmdGetMode)
	cmdRemove.AddCommand(cmdRmMode)
}

var (
	modeAliases = []string{"scene", "animation"}

	cmdSetMode = &cobra.Command{
		Use:     "mode <static|breath|pulse|rainbow|rainbow-smooth|fade|blink|burst|off>",
		Aliases: modeAliases,
		Short:   "Start an animation on the light",
		Example: "lightctl set mode breath --color '#ff8800'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			color, err := led.ParseColor(modeColor)
			if err != nil {
				return err
			}

			req, err := lightapiv1.SceneToStruct(scene.Scene{
				Name:       args[0],
				Mode:       scene.Mode(args[0]),
				Color:      color,
				Duration:   scene.Duration(modeDuration),
				Period:     scene.Duration(modePeriod),
				Gradient:   modeGradient,
				Saturation: modeSaturation,
				Value:      modeValue,
			})
			if err != nil {
				return err
			}

			_, err = client.SetMode(ctx, req)
			return err
		},
	}

	cmdSetFade = &cobra.Command{
		Use:     "fade",
		Short:   "Fade the whole strip to a colour",
		Example: "lightctl set fade --color '#ffb46b' --duration 5s",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			color, err := led.ParseColor(fadeColor)
			if err != nil {
				return err
			}

			_, err = client.FadeTo(ctx, lightapiv1.FadeRequest{Color: color, Duration: fadeDuration}.Struct())
			return err
		},
	}

	cmdSetRainbow = &cobra.Command{
		Use:     "rainbow",
		Short:   "Cycle the strip smoothly through the hue wheel",
		Example: "lightctl set rainbow --period 30s --gradient",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			if modeSaturation < 0 || modeSaturation > 255 || modeValue < 0 || modeValue > 255 {
				return fmt.Errorf("saturation and value must be between 0 and 255")
			}

			_, err := client.RainbowSmooth(ctx, lightapiv1.RainbowRequest{
				Period:     modePeriod,
				Gradient:   modeGradient,
				Saturation: uint8(modeSaturation),
				Value:      uint8(modeValue),
			}.Struct())
			return err
		},
	}

	cmdGetMode = &cobra.Command{
		Use:     "mode",
		Aliases: modeAliases,
		Short:   "Get the running animation",
		Example: "lightctl get mode",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd)
			if err != nil {
				return err
			}

			fmt.Println(status.Mode)
			return nil
		},
	}

	cmdRmMode = &cobra.Command{
		Use:     "mode",
		Aliases: modeAliases,
		Short:   "Stop the running animation and leave the strip as it is",
		Example: "lightctl remove mode",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			_, err := client.Stop(ctx, &emptypb.Empty{})
			return err
		},
	}
)

func fetchStatus(cmd *cobra.Command) (lightapiv1.Status, error) {
	ctx := cmd.Context()
	client := clientFromContext(ctx)

	res, err := client.GetStatus(ctx, &emptypb.Empty{})
	if err != nil {
		return lightapiv1.Status{}, err
	}
	return lightapiv1.StatusFromStruct(res)
}
