package agent

import (
	"fmt"
	"strings"

	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/clock"
	"github.com/moodlight-community/moodlight-agent/pkg/hal"
	"github.com/moodlight-community/moodlight-agent/pkg/pot"
	"github.com/moodlight-community/moodlight-agent/pkg/store"
	"github.com/sierrasoftworks/humane-errors-go"
)

type ListenMode string

const (
	ModeTcp  ListenMode = "tcp"
	ModeUnix ListenMode = "unix"
)

func ListenModeFromString(s string) (ListenMode, humane.Error) {
	switch mode := ListenMode(strings.ToLower(s)); mode {
	case ModeTcp, ModeUnix:
		return mode, nil
	default:
		return "", humane.New(fmt.Sprintf("invalid listen mode %q", s),
			"set listen.grpc_listen_mode to tcp or unix",
		)
	}
}

type GrpcApiServiceOption func(*LightGrpcService)

func WithMoodlightAgent(agent MoodlightAgent) GrpcApiServiceOption {
	return func(service *LightGrpcService) {
		service.agent = agent
	}
}

func WithListenAddr(server string) GrpcApiServiceOption {
	return func(service *LightGrpcService) {
		service.listenAddr = server
	}
}

func WithListenMode(mode ListenMode) GrpcApiServiceOption {
	return func(service *LightGrpcService) {
		service.listenMode = mode
	}
}

// AgentOption replaces a peripheral NewMoodlightAgent would otherwise build
// from the configuration.
type AgentOption func(*moodlightAgent)

func WithTransmitter(tx hal.Transmitter) AgentOption {
	return func(a *moodlightAgent) {
		a.tx = tx
	}
}

func WithADC(adc pot.ADC) AgentOption {
	return func(a *moodlightAgent) {
		a.adc = adc
	}
}

func WithStore(s store.BlobStore) AgentOption {
	return func(a *moodlightAgent) {
		a.store = s
	}
}

func WithClock(c clock.Clock) AgentOption {
	return func(a *moodlightAgent) {
		a.clock = c
	}
}

func WithTimeSource(src alarm.TimeSource) AgentOption {
	return func(a *moodlightAgent) {
		a.timeSource = src
	}
}
