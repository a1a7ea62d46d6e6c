package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/metrics"
	"github.com/cuemby/bffhd/pkg/session"
)

const sessionTokenMetadataKey = "bffh-session-token"

type sessionContextKey struct{}

// methodsWithoutSession are the RPCs callable before a session token
// exists (spec.md §4.10's gate mediates everything else).
var methodsWithoutSession = map[string]bool{
	"ListMechanisms": true,
	"Authenticate":   true,
}

// SessionInterceptor resolves the caller's bffh-session-token metadata
// into a *session.Session and attaches it to the request context, so
// handlers read the session via SessionFromContext instead of each
// threading a token through by hand (adapted from the teacher's
// method-name extraction in ReadOnlyInterceptor).
func SessionInterceptor(sessions *SessionRegistry) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if methodsWithoutSession[methodName(info.FullMethod)] {
			return handler(ctx, req)
		}

		sess, err := sessionFromMetadata(ctx, sessions)
		if err != nil {
			return nil, err
		}
		return handler(context.WithValue(ctx, sessionContextKey{}, sess), req)
	}
}

// MetricsInterceptor times every unary RPC and records its outcome,
// following the same method-name-from-FullMethod classification as
// SessionInterceptor (spec.md §6).
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		method := methodName(info.FullMethod)
		timer := metrics.NewTimer()

		resp, err := handler(ctx, req)

		timer.ObserveDurationVec(metrics.APIRequestDuration, method)
		metrics.APIRequestsTotal.WithLabelValues(method, rpcOutcome(err)).Inc()
		return resp, err
	}
}

func rpcOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	if st, ok := status.FromError(err); ok {
		return st.Code().String()
	}
	return string(bffherr.ToRPCStatus(err))
}

// StreamSessionInterceptor is SessionInterceptor's streaming-RPC
// counterpart, used for Subscribe.
func StreamSessionInterceptor(sessions *SessionRegistry) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if methodsWithoutSession[methodName(info.FullMethod)] {
			return handler(srv, ss)
		}

		sess, err := sessionFromMetadata(ss.Context(), sessions)
		if err != nil {
			return err
		}
		return handler(srv, &sessionServerStream{ServerStream: ss, sess: sess})
	}
}

type sessionServerStream struct {
	grpc.ServerStream
	sess *session.Session
}

func (s *sessionServerStream) Context() context.Context {
	return context.WithValue(s.ServerStream.Context(), sessionContextKey{}, s.sess)
}

func sessionFromMetadata(ctx context.Context, sessions *SessionRegistry) (*session.Session, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing session token")
	}
	tokens := md.Get(sessionTokenMetadataKey)
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session token")
	}
	sess, ok := sessions.Get(tokens[0])
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unknown or expired session token")
	}
	return sess, nil
}

// SessionFromContext retrieves the Session a SessionInterceptor attached.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess, ok
}

func methodName(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	return parts[len(parts)-1]
}
