package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/rpc"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/channel"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/persistence"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/server"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/services"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
)

type MockConnection struct {
	mu     sync.Mutex
	frames [][]byte
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
	return nil
}
func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) IsOpen() bool                 { return true }
func (m *MockConnection) Close() error                 { return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

func (m *MockConnection) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

type fixedStatus server.Status

func (f fixedStatus) Status() server.Status { return server.Status(f) }

type fixture struct {
	client *rpc.Client
	conns  map[string]*MockConnection
	engine *engine.LocalEngine
	tiers  *services.EntitlementService
	events chan engine.Event
}

func setup(t *testing.T) *fixture {
	t.Helper()
	sessions := session.NewManager()
	channels := channel.NewRegistry()
	conns := map[string]*MockConnection{}
	for _, s := range []struct{ id, login, ch string }{
		{"s1", "alice", "x"},
		{"s2", "bob", "x"},
		{"s3", "carol", "y"},
	} {
		c := &MockConnection{}
		conns[s.id] = c
		sess := session.NewSession(s.id, c)
		sess.Login = s.login
		sess.Channel = s.ch
		sessions.Add(sess)
		channels.Join(s.ch, s.id)
	}
	router := broadcast.NewRouter(sessions, channels, nil)

	eng := engine.NewLocalEngine(engine.DefaultPersonas)
	events := make(chan engine.Event, 4)
	eng.On("overlay", func(ev engine.Event) { events <- ev })

	tiers := services.NewEntitlementService(persistence.NewMemoryStore(), clockwork.NewFakeClock())
	status := fixedStatus{Sessions: 3, Channels: 2, Mounts: []string{"/acey"}}

	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Register(ServiceName, NewControlService(status, router, eng, tiers)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return &fixture{client: client, conns: conns, engine: eng, tiers: tiers, events: events}
}

func TestControl_Status(t *testing.T) {
	f := setup(t)
	var reply StatusReply
	if err := f.client.Call(ServiceName+".Status", 0, &reply); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.Sessions != 3 || reply.Channels != 2 {
		t.Fatalf("unexpected status %+v", reply)
	}
}

func TestControl_BroadcastTargets(t *testing.T) {
	f := setup(t)

	var reply BroadcastReply
	err := f.client.Call(ServiceName+".Broadcast", &BroadcastArgs{
		Type: "broadcast", Data: json.RawMessage(`{"text":"hi"}`), Channel: "x",
	}, &reply)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if reply.Delivered != 2 {
		t.Fatalf("expected 2 deliveries to channel x, got %d", reply.Delivered)
	}
	if f.conns["s3"].count() != 0 {
		t.Fatal("session in channel y must not receive channel x traffic")
	}

	// gob leaves zero-valued fields untouched, so each call gets a fresh reply
	reply = BroadcastReply{}
	if err := f.client.Call(ServiceName+".Broadcast", &BroadcastArgs{Type: "broadcast", Login: "carol"}, &reply); err != nil {
		t.Fatalf("Broadcast to login: %v", err)
	}
	if reply.Delivered != 1 || f.conns["s3"].count() != 1 {
		t.Fatalf("expected carol to receive one frame, got %+v", reply)
	}

	reply = BroadcastReply{}
	if err := f.client.Call(ServiceName+".Broadcast", &BroadcastArgs{Type: "broadcast"}, &reply); err != nil {
		t.Fatalf("global Broadcast: %v", err)
	}
	if reply.Delivered != 3 {
		t.Fatalf("expected 3 deliveries, got %d", reply.Delivered)
	}

	reply = BroadcastReply{}
	if err := f.client.Call(ServiceName+".Broadcast", &BroadcastArgs{Type: "broadcast", Channel: "ghost"}, &reply); err != nil {
		t.Fatalf("empty channel should not fail: %v", err)
	}
	if reply.Delivered != 0 {
		t.Fatalf("expected no deliveries, got %d", reply.Delivered)
	}

	err = f.client.Call(ServiceName+".Broadcast", &BroadcastArgs{}, &reply)
	if err == nil || !strings.Contains(err.Error(), ErrMissingType.Error()) {
		t.Fatalf("expected missing type error, got %v", err)
	}
}

func TestControl_PublishGameState(t *testing.T) {
	f := setup(t)

	var published bool
	err := f.client.Call(ServiceName+".PublishGameState", &GameStateArgs{
		Channel: "x", Snapshot: json.RawMessage(`{"phase":"dealing"}`),
	}, &published)
	if err != nil {
		t.Fatalf("PublishGameState: %v", err)
	}
	if !published {
		t.Fatal("expected published reply")
	}

	ev := <-f.events
	if ev.Channel != "x" {
		t.Fatalf("expected channel x, got %q", ev.Channel)
	}

	err = f.client.Call(ServiceName+".PublishGameState", &GameStateArgs{Snapshot: json.RawMessage(`{`)}, &published)
	if err == nil {
		t.Fatal("invalid snapshot should fail")
	}
}

func TestControl_GrantTier(t *testing.T) {
	f := setup(t)

	var reply GrantTierReply
	if err := f.client.Call(ServiceName+".GrantTier", &GrantTierArgs{UserID: "u1", Tier: "premier"}, &reply); err != nil {
		t.Fatalf("GrantTier: %v", err)
	}
	if reply.Tier != string(models.TierPremier) {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if got := f.tiers.ResolveTier(context.Background(), "u1"); got != models.TierPremier {
		t.Fatalf("expected premier, got %s", got)
	}

	err := f.client.Call(ServiceName+".GrantTier", &GrantTierArgs{UserID: "u1", Tier: "diamond"}, &reply)
	if err == nil || !strings.Contains(err.Error(), ErrInvalidTier.Error()) {
		t.Fatalf("expected invalid tier error, got %v", err)
	}
}

func TestServer_StopEndsAcceptLoop(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	done := make(chan struct{})
	go func() {
		srv.Start()
		close(done)
	}()
	srv.Stop()
	<-done

	_, err = net.Dial("tcp", srv.Addr())
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected dial to fail after Stop, got %v", err)
	}
}
