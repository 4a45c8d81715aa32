package agent

import (
	"context"
	"errors"
	"net"
	"os"

	grpczap "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
	"github.com/moodlight-community/moodlight-agent/pkg/alarm"
	"github.com/moodlight-community/moodlight-agent/pkg/log"
	"github.com/moodlight-community/moodlight-agent/pkg/timer"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// LightGrpcService serves moodlight.v1.LightService on top of a MoodlightAgent.
type LightGrpcService struct {
	agent      MoodlightAgent
	server     *grpc.Server
	listenAddr string
	listenMode ListenMode
}

var _ lightapiv1.LightServiceServer = (*LightGrpcService)(nil)

// NewGrpcApiServer creates a new gRPC service
func NewGrpcApiServer(ctx context.Context, options ...GrpcApiServiceOption) *LightGrpcService {
	service := &LightGrpcService{listenMode: ModeUnix}

	for _, option := range options {
		option(service)
	}

	// Add Logging Middleware
	logger := log.InterceptorLogger(log.FromContext(ctx).Logger)
	service.server = grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpczap.UnaryServerInterceptor(logger)),
		grpc.ChainStreamInterceptor(grpczap.StreamServerInterceptor(logger)),
	)
	lightapiv1.RegisterLightServiceServer(service.server, service)

	return service
}

// Serve listens on the configured address and blocks until the server stops.
func (s *LightGrpcService) Serve(ctx context.Context) humane.Error {
	if len(s.listenAddr) == 0 {
		return humane.New("no listen address provided",
			"ensure you are passing a valid listen config to the grpc server",
		)
	}

	if s.listenMode == ModeUnix {
		// a socket left behind by an unclean shutdown blocks the listener
		if err := os.Remove(s.listenAddr); err != nil && !errors.Is(err, os.ErrNotExist) {
			return humane.Wrap(err, "failed to remove stale grpc socket",
				"ensure the agent may write to the directory of listen.grpc",
			)
		}
	}

	grpcListen, err := net.Listen(string(s.listenMode), s.listenAddr)
	if err != nil {
		return humane.Wrap(err, "failed to create grpc listener",
			"ensure the gRPC server you are trying to serve to is not already running and the address is not bound by another process",
		)
	}

	log.FromContext(ctx).Info("Starting grpc server",
		zap.String("address", s.listenAddr),
		zap.String("mode", string(s.listenMode)),
	)
	return s.ServeListener(grpcListen)
}

// ServeListener serves on an existing listener.
func (s *LightGrpcService) ServeListener(lis net.Listener) humane.Error {
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return humane.Wrap(err, "failed to start grpc server",
			"ensure the gRPC server you are trying to serve to is not already running and the address is not bound by another process",
		)
	}
	return nil
}

func (s *LightGrpcService) GracefulStop() {
	s.server.GracefulStop()
}

// SetMode switches the strip to the animation described by the request
func (s *LightGrpcService) SetMode(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sc, err := lightapiv1.SceneFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid mode: %s", err)
	}
	if err := s.agent.SetScene(ctx, sc); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid mode: %s", err)
	}
	return &emptypb.Empty{}, nil
}

// Stop halts the animation loop
func (s *LightGrpcService) Stop(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.agent.Stop(ctx)
	return &emptypb.Empty{}, nil
}

// FadeTo fades from the current frame to the requested colour
func (s *LightGrpcService) FadeTo(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fade, err := lightapiv1.FadeRequestFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid fade: %s", err)
	}
	s.agent.FadeTo(ctx, fade.Color, fade.Duration)
	return &emptypb.Empty{}, nil
}

// RainbowSmooth starts the hue cycle
func (s *LightGrpcService) RainbowSmooth(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	rainbow, err := lightapiv1.RainbowRequestFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid rainbow: %s", err)
	}
	s.agent.RainbowSmooth(ctx, rainbow)
	return &emptypb.Empty{}, nil
}

// SetBrightnessCap pins the brightness cap, or hands it back to the knob
func (s *LightGrpcService) SetBrightnessCap(ctx context.Context, req *wrapperspb.UInt32Value) (*emptypb.Empty, error) {
	switch level := req.GetValue(); {
	case level == lightapiv1.BrightnessCapAutomatic:
		s.agent.ResetBrightnessCap(ctx)
	case level <= 255:
		s.agent.SetBrightnessCap(ctx, uint8(level))
	default:
		return nil, status.Errorf(codes.InvalidArgument, "brightness cap %d out of range 0-255", level)
	}
	return &emptypb.Empty{}, nil
}

// GetStatus aggregates the status of the light
func (s *LightGrpcService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.agent.Status(ctx).Struct(), nil
}

// StartTimer arms a sleep timer
func (s *LightGrpcService) StartTimer(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int32Value, error) {
	tr, err := lightapiv1.TimerRequestFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid timer: %s", err)
	}

	id, err := s.agent.StartSleepTimer(ctx, tr.Duration, tr.Fade)
	if errors.Is(err, timer.ErrPoolExhausted) {
		return nil, status.Errorf(codes.ResourceExhausted, "all %d timers are in use", timer.Capacity)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Int32(int32(id)), nil
}

// CancelTimer cancels a sleep timer, reporting whether it was still pending
func (s *LightGrpcService) CancelTimer(ctx context.Context, req *wrapperspb.Int32Value) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.agent.CancelSleepTimer(ctx, int(req.GetValue()))), nil
}

// SetAlarm installs or replaces a wake alarm
func (s *LightGrpcService) SetAlarm(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	ar, err := lightapiv1.AlarmRequestFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid alarm: %s", err)
	}

	err = s.agent.SetAlarm(ctx, ar.ID, ar.Time)
	if errors.Is(err, alarm.ErrTableFull) {
		return nil, status.Errorf(codes.ResourceExhausted, "all %d alarm slots are in use", alarm.Capacity)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &emptypb.Empty{}, nil
}

// RemoveAlarm deletes a wake alarm, reporting whether it existed
func (s *LightGrpcService) RemoveAlarm(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.agent.RemoveAlarm(ctx, req.GetValue())), nil
}
