package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"time"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/server"
)

const ServiceName = "Control"

var (
	ErrMissingType = errors.New("message type is required")
	ErrInvalidTier = errors.New("invalid tier")
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

func (s *Server) Register(name string, service interface{}) error {
	return s.rpc.RegisterName(name, service)
}

func (s *Server) Addr() string {
	return s.address
}

// Start accepts connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

type StatusSource interface {
	Status() server.Status
}

type GameStatePublisher interface {
	PublishGameState(channel string, snapshot json.RawMessage) error
}

type TierGranter interface {
	Grant(ctx context.Context, userID string, tier models.Tier, ttl time.Duration) error
}

// ControlService is the operator surface: status, ad-hoc broadcasts,
// authoritative snapshots and tier grants.
type ControlService struct {
	status    StatusSource
	router    broadcast.Broadcaster
	publisher GameStatePublisher
	tiers     TierGranter
}

func NewControlService(status StatusSource, router broadcast.Broadcaster, publisher GameStatePublisher, tiers TierGranter) *ControlService {
	return &ControlService{
		status:    status,
		router:    router,
		publisher: publisher,
		tiers:     tiers,
	}
}

// StatusReply drops the engine section of server.Status; gob cannot
// carry an untyped interface value.
type StatusReply struct {
	Sessions      int
	Channels      int
	UptimeSeconds float64
	Mounts        []string
}

func (cs *ControlService) Status(_ int, reply *StatusReply) error {
	st := cs.status.Status()
	*reply = StatusReply{
		Sessions:      st.Sessions,
		Channels:      st.Channels,
		UptimeSeconds: st.UptimeSeconds,
		Mounts:        st.Mounts,
	}
	return nil
}

// BroadcastArgs targets a channel, else a login, else every session.
type BroadcastArgs struct {
	Type    string
	Data    json.RawMessage
	Channel string
	Login   string
}

type BroadcastReply struct {
	Delivered int
	Skipped   int
	Failed    int
}

func (cs *ControlService) Broadcast(args *BroadcastArgs, reply *BroadcastReply) error {
	if args.Type == "" {
		return ErrMissingType
	}
	var data interface{}
	if len(args.Data) > 0 {
		if !json.Valid(args.Data) {
			return fmt.Errorf("%w: data is not valid JSON", network.ErrInvalidPayload)
		}
		data = args.Data
	}
	frame, err := network.NewMessage(args.Type, data)
	if err != nil {
		return err
	}

	var res broadcast.Result
	switch {
	case args.Channel != "":
		res, err = cs.router.BroadcastToChannel(args.Channel, frame)
		if err != nil && !errors.Is(err, broadcast.ErrChannelNotFound) {
			return err
		}
	case args.Login != "":
		res = cs.router.BroadcastToLogin(args.Login, frame)
	default:
		res = cs.router.Broadcast(frame)
	}
	*reply = BroadcastReply{Delivered: res.Delivered, Skipped: res.Skipped, Failed: res.Failed}
	return nil
}

type GameStateArgs struct {
	Channel  string
	Snapshot json.RawMessage
}

func (cs *ControlService) PublishGameState(args *GameStateArgs, published *bool) error {
	if err := cs.publisher.PublishGameState(args.Channel, args.Snapshot); err != nil {
		return err
	}
	*published = true
	return nil
}

type GrantTierArgs struct {
	UserID string
	Tier   string
	TTL    time.Duration
}

type GrantTierReply struct {
	Tier string
}

func (cs *ControlService) GrantTier(args *GrantTierArgs, reply *GrantTierReply) error {
	tier, ok := models.ParseTier(args.Tier)
	if !ok || args.UserID == "" {
		return fmt.Errorf("%w: user %q tier %q", ErrInvalidTier, args.UserID, args.Tier)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cs.tiers.Grant(ctx, args.UserID, tier, args.TTL); err != nil {
		return err
	}
	reply.Tier = string(tier)
	return nil
}
