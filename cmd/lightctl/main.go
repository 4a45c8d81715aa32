package main

import (
	"context"
	"log"

	lightapiv1 "github.com/moodlight-community/moodlight-agent/api/lightapi/v1"
)

type grpcClientContextKey int

const (
	defaultGrpcClientContextKey grpcClientContextKey = 0
)

var (
	Version string
	Commit  string
	Date    string
)

func clientIntoContext(ctx context.Context, client lightapiv1.LightServiceClient) context.Context {
	return context.WithValue(ctx, defaultGrpcClientContextKey, client)
}

func clientFromContext(ctx context.Context) lightapiv1.LightServiceClient {
	client, ok := ctx.Value(defaultGrpcClientContextKey).(lightapiv1.LightServiceClient)
	if !ok {
		panic("grpc client not found in context")
	}
	return client
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
