package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	alarmWeekday string
	alarmAt      string
)

func init() {
	cmdSetAlarm.Flags().StringVarP(&alarmWeekday, "weekday", "w", "monday", "Day of the week, by name or 0 (Sunday) to 6.")
	cmdSetAlarm.Flags().StringVar(&alarmAt, "at", "07:00", "Time of day as hh:mm or hh:mm:ss.")

	cmdSet.AddCommand(cmdSetAlarm)
	cmdRemove.AddCommand(cmdRmAlarm)
}

var (
	cmdSetAlarm = &cobra.Command{
		Use:     "alarm <id>",
		Aliases: []string{"wake"},
		Short:   "Install or replace a wake alarm",
		Example: "lightctl set alarm weekday-wake --weekday friday --at 06:45",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			at, err := parseAlarmTime(alarmWeekday, alarmAt)
			if err != nil {
				return err
			}

			_, err = client.SetAlarm(ctx, lightapiv1.AlarmRequest{ID: args[0], Time: at}.Struct())
			return err
		},
	}

	cmdRmAlarm = &cobra.Command{
		Use:     "alarm <id>",
		Aliases: []string{"wake"},
		Short:   "Delete a wake alarm",
		Example: "lightctl remove alarm weekday-wake",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			res, err := client.RemoveAlarm(ctx, wrapperspb.String(args[0]))
			if err != nil {
				return err
			}

			if !res.GetValue() {
				fmt.Printf("Alarm %s does not exist\n", args[0])
			}
			return nil
		},
	}
)

func parseAlarmTime(weekday, clock string) (alarm.Time, error) {
	var at alarm.Time

	day, err := parseWeekday(weekday)
	if err != nil {
		return at, err
	}
	at.Weekday = day

	var tod time.Time
	if tod, err = time.Parse("15:04:05", clock); err != nil {
		if tod, err = time.Parse("15:04", clock); err != nil {
			return at, fmt.Errorf("invalid time of day %q, expected hh:mm or hh:mm:ss", clock)
		}
	}
	at.Hour, at.Minute, at.Second = tod.Clock()
	return at, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return time.Weekday(n), nil
	}

	s = strings.ToLower(s)
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
