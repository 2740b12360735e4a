package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method name of the remote classification RPC.
const (
	ServiceName    = "crickmate.intent.v1.IntentService"
	classifyMethod = "/" + ServiceName + "/Classify"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GRPCConfig holds configuration for the remote classifier client.
type GRPCConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGRPCConfig returns default configuration for addr.
func DefaultGRPCConfig(addr string) GRPCConfig {
	return GRPCConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   10 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GRPC is a Classifier backed by a remote IntentService.
type GRPC struct {
	conn    *grpc.ClientConn
	addr    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGRPC connects to a remote classifier and waits until it is ready.
func NewGRPC(cfg GRPCConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GRPC, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: no classifier address", ErrUnavailable)
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	// Build client connection (no network I/O yet).
	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to classifier at %s: %w", cfg.Address, err)
	}

	// Force a connection attempt during startup so we fail fast on bad endpoints.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("%w: classifier at %s not ready: %v", ErrUnavailable, cfg.Address, err)
	}

	logger.Info("Connected to intent classifier", "address", cfg.Address)
	return &GRPC{conn: conn, addr: cfg.Address, timeout: cfg.RequestTimeout, logger: logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Classify implements Classifier.
func (c *GRPC) Classify(ctx context.Context, text string) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("build classify request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, classifyMethod, req, resp); err != nil {
		return Result{}, fmt.Errorf("classify rpc to %s: %w", c.addr, err)
	}

	fields := resp.GetFields()
	res := Result{
		Intent:  ParseIntent(fields["intent"].GetStringValue()),
		Subject: fields["subject"].GetStringValue(),
	}
	if res.Subject == "" {
		res.Subject = text
	}
	return res, nil
}

// Close closes the gRPC connection.
func (c *GRPC) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// classifierServer is the handler type registered with a grpc.Server.
type classifierServer interface {
	Classifier
}

// serviceDesc describes IntentService for servers built on top of any
// Classifier. Messages are structpb.Struct on both sides.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*classifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Classify",
			Handler:    classifyHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "crickmate/intent/v1/intent.proto",
}

func classifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := &structpb.Struct{}
	if err := dec(in); err != nil {
		return nil, err
	}
	handle := func(ctx context.Context, req any) (any, error) {
		text := req.(*structpb.Struct).GetFields()["text"].GetStringValue()
		res, err := srv.(classifierServer).Classify(ctx, text)
		if err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{
			"intent":  string(res.Intent),
			"subject": res.Subject,
		})
	}
	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: classifyMethod}
	return interceptor(ctx, in, info, handle)
}

// RegisterServer exposes c as IntentService on s.
func RegisterServer(s *grpc.Server, c Classifier) {
	s.RegisterService(&serviceDesc, c)
}
