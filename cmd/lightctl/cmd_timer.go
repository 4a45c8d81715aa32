package main

import (
	"fmt"
	"strconv"
	"time"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var timerFade time.Duration

func init() {
	cmdSetTimer.Flags().DurationVarP(&timerFade, "fade", "f", 30*time.Second, "How long the light takes to fade out once the timer expires.")

	cmdSet.AddCommand(cmdSetTimer)
	cmdRemove.AddCommand(cmdRmTimer)
}

var (
	timerAliases = []string{"sleep", "sleep-timer"}

	cmdSetTimer = &cobra.Command{
		Use:     "timer <duration>",
		Aliases: timerAliases,
		Short:   "Fade the light out after a delay",
		Example: "lightctl set timer 20m --fade 1m",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			after, err := time.ParseDuration(args[0])
			if err != nil {
				return err
			}

			res, err := client.StartTimer(ctx, lightapiv1.TimerRequest{Duration: after, Fade: timerFade}.Struct())
			if err != nil {
				return err
			}

			fmt.Printf("Timer %d expires in %s\n", res.GetValue(), after)
			return nil
		},
	}

	cmdRmTimer = &cobra.Command{
		Use:     "timer <id>",
		Aliases: timerAliases,
		Short:   "Cancel a sleep timer",
		Example: "lightctl remove timer 0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return err
			}

			res, err := client.CancelTimer(ctx, wrapperspb.Int32(int32(id)))
			if err != nil {
				return err
			}

			if !res.GetValue() {
				fmt.Printf("Timer %d was not running\n", id)
			}
			return nil
		},
	}
)
