package lightapiv1

import (
	"fmt"
	"time"

	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/hal/led"
	"github.com/moodlight-community/moodlight-agent/pkg/scene"
	"google.golang.org/protobuf/types/known/structpb"
)

// BrightnessCapAutomatic, sent to SetBrightnessCap, hands the cap back to
// the knob.
const BrightnessCapAutomatic uint32 = 256

// FadeRequest is the FadeTo payload.
type FadeRequest struct {
	Color    led.Color
	Duration time.Duration
}

// RainbowRequest is the RainbowSmooth payload.
type RainbowRequest struct {
	Period     time.Duration
	Gradient   bool
	Saturation uint8
	Value      uint8
}

// TimerRequest is the StartTimer payload: after Duration the light fades
// out over Fade.
type TimerRequest struct {
	Duration time.Duration
	Fade     time.Duration
}

// AlarmRequest is the SetAlarm payload.
type AlarmRequest struct {
	ID   string
	Time alarm.Time
}

// Status is the GetStatus payload.
type Status struct {
	Mode          string
	Running       bool
	BrightnessCap uint8
	CapAutomatic  bool
	Driver        string
	Count         int
	Order         string
	Frame         []led.Color
	KnobPercent   uint8
	TimersActive  int
	Alarms        []string
}

func SceneToStruct(s scene.Scene) (*structpb.Struct, error) {
	fields := map[string]any{
		"mode":  string(s.Mode),
		"color": s.Color.String(),
	}
	if s.Name != "" {
		fields["name"] = s.Name
	}
	if s.Duration != 0 {
		fields["duration"] = time.Duration(s.Duration).String()
	}
	if s.Mode == scene.ModeRainbowSmooth {
		fields["period"] = time.Duration(s.Period).String()
		fields["gradient"] = s.Gradient
		fields["saturation"] = s.Saturation
		fields["value"] = s.Value
	}
	return structpb.NewStruct(fields)
}

func SceneFromStruct(s *structpb.Struct) (scene.Scene, error) {
	var out scene.Scene
	var err error

	f := fields{s}
	out.Name = f.stringField("name")
	out.Mode = scene.Mode(f.stringField("mode"))
	if out.Color, err = f.colorField("color"); err != nil {
		return out, err
	}
	duration, err := f.durationField("duration")
	if err != nil {
		return out, err
	}
	out.Duration = scene.Duration(duration)
	period, err := f.durationField("period")
	if err != nil {
		return out, err
	}
	out.Period = scene.Duration(period)
	out.Gradient = f.boolField("gradient")
	out.Saturation = int(f.numberField("saturation"))
	out.Value = int(f.numberField("value"))

	return out, out.Validate()
}

func (r FadeRequest) Struct() *structpb.Struct {
	return mustStruct(map[string]any{
		"color":    r.Color.String(),
		"duration": r.Duration.String(),
	})
}

func FadeRequestFromStruct(s *structpb.Struct) (FadeRequest, error) {
	var out FadeRequest
	var err error

	f := fields{s}
	if out.Color, err = f.colorField("color"); err != nil {
		return out, err
	}
	out.Duration, err = f.durationField("duration")
	return out, err
}

func (r RainbowRequest) Struct() *structpb.Struct {
	return mustStruct(map[string]any{
		"period":     r.Period.String(),
		"gradient":   r.Gradient,
		"saturation": int(r.Saturation),
		"value":      int(r.Value),
	})
}

func RainbowRequestFromStruct(s *structpb.Struct) (RainbowRequest, error) {
	var out RainbowRequest
	var err error

	f := fields{s}
	if out.Period, err = f.durationField("period"); err != nil {
		return out, err
	}
	if out.Period <= 0 {
		return out, fmt.Errorf("period must be positive")
	}
	out.Gradient = f.boolField("gradient")
	if out.Saturation, err = f.uint8Field("saturation"); err != nil {
		return out, err
	}
	out.Value, err = f.uint8Field("value")
	return out, err
}

func (r TimerRequest) Struct() *structpb.Struct {
	return mustStruct(map[string]any{
		"duration": r.Duration.String(),
		"fade":     r.Fade.String(),
	})
}

func TimerRequestFromStruct(s *structpb.Struct) (TimerRequest, error) {
	var out TimerRequest
	var err error

	f := fields{s}
	if out.Duration, err = f.durationField("duration"); err != nil {
		return out, err
	}
	if out.Duration < 0 {
		return out, fmt.Errorf("duration must not be negative")
	}
	out.Fade, err = f.durationField("fade")
	return out, err
}

func (r AlarmRequest) Struct() *structpb.Struct {
	return mustStruct(map[string]any{
		"id":      r.ID,
		"weekday": int(r.Time.Weekday),
		"hour":    r.Time.Hour,
		"minute":  r.Time.Minute,
		"second":  r.Time.Second,
	})
}

func AlarmRequestFromStruct(s *structpb.Struct) (AlarmRequest, error) {
	f := fields{s}
	out := AlarmRequest{
		ID: f.stringField("id"),
		Time: alarm.Time{
			Weekday: time.Weekday(f.numberField("weekday")),
			Hour:    int(f.numberField("hour")),
			Minute:  int(f.numberField("minute")),
			Second:  int(f.numberField("second")),
		},
	}
	if out.ID == "" {
		return out, fmt.Errorf("alarm id must not be empty")
	}
	return out, out.Time.Validate()
}

func (st Status) Struct() *structpb.Struct {
	frame := make([]any, len(st.Frame))
	for i, c := range st.Frame {
		frame[i] = c.String()
	}
	alarms := make([]any, len(st.Alarms))
	for i, a := range st.Alarms {
		alarms[i] = a
	}

	return mustStruct(map[string]any{
		"mode":           st.Mode,
		"running":        st.Running,
		"brightness_cap": int(st.BrightnessCap),
		"cap_automatic":  st.CapAutomatic,
		"driver":         st.Driver,
		"count":          st.Count,
		"order":          st.Order,
		"frame":          frame,
		"knob_percent":   int(st.KnobPercent),
		"timers_active":  st.TimersActive,
		"alarms":         alarms,
	})
}

func StatusFromStruct(s *structpb.Struct) (Status, error) {
	f := fields{s}
	st := Status{
		Mode:          f.stringField("mode"),
		Running:       f.boolField("running"),
		BrightnessCap: uint8(f.numberField("brightness_cap")),
		CapAutomatic:  f.boolField("cap_automatic"),
		Driver:        f.stringField("driver"),
		Count:         int(f.numberField("count")),
		Order:         f.stringField("order"),
		KnobPercent:   uint8(f.numberField("knob_percent")),
		TimersActive:  int(f.numberField("timers_active")),
	}

	for _, v := range f.listField("frame") {
		c, err := led.ParseColor(v.GetStringValue())
		if err != nil {
			return st, err
		}
		st.Frame = append(st.Frame, c)
	}
	for _, v := range f.listField("alarms") {
		st.Alarms = append(st.Alarms, v.GetStringValue())
	}
	return st, nil
}

// mustStruct only sees strings, bools, numbers and lists of those, which
// structpb always accepts.
func mustStruct(m map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(m)
	if err != nil {
		panic(err)
	}
	return s
}

type fields struct {
	s *structpb.Struct
}

func (f fields) value(key string) *structpb.Value {
	return f.s.GetFields()[key]
}

func (f fields) stringField(key string) string {
	return f.value(key).GetStringValue()
}

func (f fields) boolField(key string) bool {
	return f.value(key).GetBoolValue()
}

func (f fields) numberField(key string) float64 {
	return f.value(key).GetNumberValue()
}

func (f fields) listField(key string) []*structpb.Value {
	return f.value(key).GetListValue().GetValues()
}

func (f fields) uint8Field(key string) (uint8, error) {
	n := f.numberField(key)
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%s %v out of range 0-255", key, n)
	}
	return uint8(n), nil
}

func (f fields) colorField(key string) (led.Color, error) {
	s := f.stringField(key)
	if s == "" {
		return led.Color{}, nil
	}
	return led.ParseColor(s)
}

func (f fields) durationField(key string) (time.Duration, error) {
	s := f.stringField(key)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
