package api

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rs/zerolog"

	"github.com/cuemby/bffhd/pkg/auth"
	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/log"
	"github.com/cuemby/bffhd/pkg/resource"
	"github.com/cuemby/bffhd/pkg/session"
	"github.com/cuemby/bffhd/pkg/userstore"
)

// serviceName is the hand-assigned RPC service name (spec.md §6), used
// in place of a .proto-derived package.Service string.
const serviceName = "bffh.api.ResourceBroker"

// Server implements the gRPC transport boundary. It holds no mutable
// state of its own beyond the session token registry — every method
// forwards to pkg/session, pkg/auth or pkg/resource.
type Server struct {
	registry   *resource.Registry
	users      *userstore.Store
	mechanisms *auth.Registry
	sessions   *SessionRegistry
	grpcServer *grpc.Server
	log        zerolog.Logger
}

// NewServer builds a Server over the already-wired core components. The
// returned Server has no grpc.Server yet; call Listen to bind a TLS
// listener before Serve.
func NewServer(registry *resource.Registry, users *userstore.Store, mechanisms *auth.Registry) *Server {
	return &Server{
		registry:   registry,
		users:      users,
		mechanisms: mechanisms,
		sessions:   NewSessionRegistry(),
		log:        log.Component("api"),
	}
}

// ListMechanisms is list_mechanisms() → ["PLAIN", "FABFIRE", …].
func (s *Server) ListMechanisms(ctx context.Context, req *ListMechanismsRequest) (*ListMechanismsResponse, error) {
	return &ListMechanismsResponse{Mechanisms: s.mechanisms.Names()}, nil
}

// Authenticate drives one Authentication Session (spec.md §4.8) over a
// bidirectional stream: the first message selects the mechanism, every
// message afterward carries Session.Step's next input, and the stream
// ends once Step returns Done or Failed. On Done the response carries a
// session token minted for subsequent unary/streaming RPCs.
func (s *Server) Authenticate(stream grpc.ServerStream) error {
	var first AuthStepRequest
	if err := stream.RecvMsg(&first); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	authSession, err := s.mechanisms.Start(first.Mechanism)
	if err != nil {
		return toGRPCError(err)
	}

	req := first
	for {
		result := authSession.Step(req.Incoming)

		resp := &AuthStepResponse{
			State:    authStateString(result.State),
			Outgoing: result.Outgoing,
		}
		if result.State == auth.StateFailed && result.Err != nil {
			resp.Reason = result.Err.Error()
		}
		if result.State == auth.StateDone {
			sess, err := session.NewFromUser(result.UserID, s.users, s.registry)
			if err != nil {
				return toGRPCError(err)
			}
			token, err := s.sessions.Put(sess)
			if err != nil {
				return status.Error(codes.Internal, "failed to mint session token")
			}
			resp.Token = token
		}

		if err := stream.SendMsg(resp); err != nil {
			return err
		}
		if result.State != auth.StateRunning {
			return nil
		}

		req = AuthStepRequest{}
		if err := stream.RecvMsg(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Propose is propose(resource_id, desired_state): requires write.
func (s *Server) Propose(ctx context.Context, req *ProposeRequest) (*ProposeResponse, error) {
	sess, res, err := s.sessionAndResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	event := resource.Event{Kind: resource.EventKind(req.Kind)}
	if err := sess.ProposeUpdate(ctx, res, event); err != nil {
		return nil, toGRPCError(err)
	}
	return &ProposeResponse{}, nil
}

// ForceSet is force_set(resource_id, status, actor_user): requires
// manage (spec.md §6).
func (s *Server) ForceSet(ctx context.Context, req *ForceSetRequest) (*ForceSetResponse, error) {
	sess, res, err := s.sessionAndResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !sess.May(res, session.CapabilityManage) {
		return nil, toGRPCError(bffherr.ErrDenied)
	}
	if err := res.Engine.ForceSet(ctx, resource.EventKind(req.Kind), sess.UserID()); err != nil {
		return nil, toGRPCError(err)
	}
	return &ForceSetResponse{}, nil
}

// GiveBack is give_back(resource_id, user): StandardLogic itself
// enforces that the caller is the current holder.
func (s *Server) GiveBack(ctx context.Context, req *GiveBackRequest) (*GiveBackResponse, error) {
	sess, res, err := s.sessionAndResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := res.Engine.GiveBack(ctx, sess.UserID()); err != nil {
		return nil, toGRPCError(err)
	}
	return &GiveBackResponse{}, nil
}

// GetCurrent is get_current(resource_id) → state: requires read.
func (s *Server) GetCurrent(ctx context.Context, req *GetCurrentRequest) (*GetCurrentResponse, error) {
	sess, res, err := s.sessionAndResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !sess.May(res, session.CapabilityRead) {
		return nil, toGRPCError(bffherr.ErrDenied)
	}
	current := res.Engine.GetCurrent()
	return &GetCurrentResponse{Kind: string(current.Kind), Holder: string(current.Holder)}, nil
}

// Subscribe is subscribe(resource_id) → stream<state>: requires read.
func (s *Server) Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing session")
	}
	res, ok := s.registry.Get(req.ResourceID)
	if !ok {
		return toGRPCError(bffherr.ErrNotFound)
	}
	if !sess.May(res, session.CapabilityRead) {
		return toGRPCError(bffherr.ErrDenied)
	}

	sub := res.Engine.Subscribe()
	for {
		st, err := sub.Next(ctx)
		if err != nil {
			return nil
		}
		current, err := resource.DecodeStatus(st)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		update := &StateUpdate{Kind: string(current.Kind), Holder: string(current.Holder)}
		if err := stream.SendMsg(update); err != nil {
			return err
		}
	}
}

func (s *Server) sessionAndResource(ctx context.Context, resourceID string) (*session.Session, *resource.Resource, error) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return nil, nil, status.Error(codes.Unauthenticated, "missing session")
	}
	res, ok := s.registry.Get(resourceID)
	if !ok {
		return nil, nil, toGRPCError(bffherr.ErrNotFound)
	}
	return sess, res, nil
}

// toGRPCError maps a bffherr-tagged error to its gRPC status code via
// bffherr.ToRPCStatus (spec.md §7's collapsed outcome set).
func toGRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch bffherr.ToRPCStatus(err) {
	case bffherr.StatusDenied:
		return status.Error(codes.PermissionDenied, err.Error())
	case bffherr.StatusNotFound:
		return status.Error(codes.NotFound, err.Error())
	case bffherr.StatusBadRequest:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ServiceDesc is the hand-built gRPC service descriptor dispatched in
// place of a protoc-generated one (jsonCodec's doc comment explains why).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMechanisms", Handler: listMechanismsHandler},
		{MethodName: "Propose", Handler: proposeHandler},
		{MethodName: "ForceSet", Handler: forceSetHandler},
		{MethodName: "GiveBack", Handler: giveBackHandler},
		{MethodName: "GetCurrent", Handler: getCurrentHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Authenticate",
			Handler:       authenticateHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "bffh/api.proto",
}

func listMechanismsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListMechanismsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ListMechanisms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListMechanisms"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).ListMechanisms(ctx, req.(*ListMechanismsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func proposeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ProposeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Propose(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Propose"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).Propose(ctx, req.(*ProposeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func forceSetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ForceSetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ForceSet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ForceSet"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).ForceSet(ctx, req.(*ForceSetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func giveBackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GiveBackRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GiveBack(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GiveBack"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).GiveBack(ctx, req.(*GiveBackRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getCurrentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetCurrentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).GetCurrent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetCurrent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).GetCurrent(ctx, req.(*GetCurrentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func authenticateHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(*Server).Authenticate(stream)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	var req SubscribeRequest
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	return srv.(*Server).Subscribe(&req, stream)
}
