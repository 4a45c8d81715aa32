// Package lightapiv1 declares the moodlight.v1.LightService gRPC service.
// Requests and responses are protobuf well-known types; messages.go maps
// them to Go structs.
package lightapiv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "moodlight.v1.LightService"

const (
	LightService_SetMode_FullMethodName          = "/" + ServiceName + "/SetMode"
	LightService_Stop_FullMethodName             = "/" + ServiceName + "/Stop"
	LightService_FadeTo_FullMethodName           = "/" + ServiceName + "/FadeTo"
	LightService_RainbowSmooth_FullMethodName    = "/" + ServiceName + "/RainbowSmooth"
	LightService_SetBrightnessCap_FullMethodName = "/" + ServiceName + "/SetBrightnessCap"
	LightService_GetStatus_FullMethodName        = "/" + ServiceName + "/GetStatus"
	LightService_StartTimer_FullMethodName       = "/" + ServiceName + "/StartTimer"
	LightService_CancelTimer_FullMethodName      = "/" + ServiceName + "/CancelTimer"
	LightService_SetAlarm_FullMethodName         = "/" + ServiceName + "/SetAlarm"
	LightService_RemoveAlarm_FullMethodName      = "/" + ServiceName + "/RemoveAlarm"
)

// LightServiceServer is the server API for LightService.
type LightServiceServer interface {
	// SetMode switches to the animation described by a scene struct
	SetMode(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// Stop halts the animation loop; the strip keeps its last frame
	Stop(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	// FadeTo fades from the current frame to a colour
	FadeTo(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// RainbowSmooth starts the HSV hue cycle
	RainbowSmooth(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// SetBrightnessCap pins the brightness cap, BrightnessCapAutomatic returns control to the knob
	SetBrightnessCap(context.Context, *wrapperspb.UInt32Value) (*emptypb.Empty, error)
	// GetStatus reports the engine and peripheral state
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// StartTimer arms a sleep timer and returns its slot id
	StartTimer(context.Context, *structpb.Struct) (*wrapperspb.Int32Value, error)
	// CancelTimer cancels a sleep timer
	CancelTimer(context.Context, *wrapperspb.Int32Value) (*wrapperspb.BoolValue, error)
	// SetAlarm installs or replaces a wake alarm and persists it
	SetAlarm(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	// RemoveAlarm deletes a wake alarm, reporting whether it existed
	RemoveAlarm(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// LightServiceClient is the client API for LightService.
type LightServiceClient interface {
	SetMode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	FadeTo(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	RainbowSmooth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SetBrightnessCap(ctx context.Context, in *wrapperspb.UInt32Value, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	StartTimer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error)
	CancelTimer(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	SetAlarm(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	RemoveAlarm(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type lightServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLightServiceClient(cc grpc.ClientConnInterface) LightServiceClient {
	return &lightServiceClient{cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lightServiceClient) SetMode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[structpb.Struct, emptypb.Empty](ctx, c.cc, LightService_SetMode_FullMethodName, in, opts)
}

func (c *lightServiceClient) Stop(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty, emptypb.Empty](ctx, c.cc, LightService_Stop_FullMethodName, in, opts)
}

func (c *lightServiceClient) FadeTo(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[structpb.Struct, emptypb.Empty](ctx, c.cc, LightService_FadeTo_FullMethodName, in, opts)
}

func (c *lightServiceClient) RainbowSmooth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[structpb.Struct, emptypb.Empty](ctx, c.cc, LightService_RainbowSmooth_FullMethodName, in, opts)
}

func (c *lightServiceClient) SetBrightnessCap(ctx context.Context, in *wrapperspb.UInt32Value, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[wrapperspb.UInt32Value, emptypb.Empty](ctx, c.cc, LightService_SetBrightnessCap_FullMethodName, in, opts)
}

func (c *lightServiceClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[emptypb.Empty, structpb.Struct](ctx, c.cc, LightService_GetStatus_FullMethodName, in, opts)
}

func (c *lightServiceClient) StartTimer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error) {
	return invoke[structpb.Struct, wrapperspb.Int32Value](ctx, c.cc, LightService_StartTimer_FullMethodName, in, opts)
}

func (c *lightServiceClient) CancelTimer(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.Int32Value, wrapperspb.BoolValue](ctx, c.cc, LightService_CancelTimer_FullMethodName, in, opts)
}

func (c *lightServiceClient) SetAlarm(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[structpb.Struct, emptypb.Empty](ctx, c.cc, LightService_SetAlarm_FullMethodName, in, opts)
}

func (c *lightServiceClient) RemoveAlarm(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.StringValue, wrapperspb.BoolValue](ctx, c.cc, LightService_RemoveAlarm_FullMethodName, in, opts)
}

func RegisterLightServiceServer(s grpc.ServiceRegistrar, srv LightServiceServer) {
	s.RegisterService(&LightService_ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(LightServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LightServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LightServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LightService_ServiceDesc is the grpc.ServiceDesc for LightService.
var LightService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LightServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SetMode",
			Handler:    unaryHandler(LightService_SetMode_FullMethodName, LightServiceServer.SetMode),
		},
		{
			MethodName: "Stop",
			Handler:    unaryHandler(LightService_Stop_FullMethodName, LightServiceServer.Stop),
		},
		{
			MethodName: "FadeTo",
			Handler:    unaryHandler(LightService_FadeTo_FullMethodName, LightServiceServer.FadeTo),
		},
		{
			MethodName: "RainbowSmooth",
			Handler:    unaryHandler(LightService_RainbowSmooth_FullMethodName, LightServiceServer.RainbowSmooth),
		},
		{
			MethodName: "SetBrightnessCap",
			Handler:    unaryHandler(LightService_SetBrightnessCap_FullMethodName, LightServiceServer.SetBrightnessCap),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler(LightService_GetStatus_FullMethodName, LightServiceServer.GetStatus),
		},
		{
			MethodName: "StartTimer",
			Handler:    unaryHandler(LightService_StartTimer_FullMethodName, LightServiceServer.StartTimer),
		},
		{
			MethodName: "CancelTimer",
			Handler:    unaryHandler(LightService_CancelTimer_FullMethodName, LightServiceServer.CancelTimer),
		},
		{
			MethodName: "SetAlarm",
			Handler:    unaryHandler(LightService_SetAlarm_FullMethodName, LightServiceServer.SetAlarm),
		},
		{
			MethodName: "RemoveAlarm",
			Handler:    unaryHandler(LightService_RemoveAlarm_FullMethodName, LightServiceServer.RemoveAlarm),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moodlight/v1/light.proto",
}
