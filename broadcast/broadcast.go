// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/channel"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
)

// Broadcaster fans a single encoded frame out to sessions. Within one call
// sockets are visited in session registration order; nothing is promised
// about the relative order of two separate calls.
type Broadcaster interface {
	Broadcast(data []byte) Result
	BroadcastToChannel(channel string, data []byte) (Result, error)
	BroadcastToLogin(login string, data []byte) Result
}

// Result counts what happened to each targeted session.
type Result struct {
	Delivered int
	Skipped   int // socket already closed at call time
	Failed    int // queueing the frame failed
}

// Observer receives per-call delivery stats. *monitor.Monitor satisfies it.
type Observer interface {
	ObserveBroadcast(duration time.Duration, sent, failed int)
}

type Router struct {
	sessions *session.Manager
	channels *channel.Registry
	observer Observer
}

func NewRouter(sessions *session.Manager, channels *channel.Registry, observer Observer) *Router {
	return &Router{
		sessions: sessions,
		channels: channels,
		observer: observer,
	}
}

func (r *Router) Broadcast(data []byte) Result {
	return r.deliverAll(r.sessions.List(), data)
}

func (r *Router) BroadcastToChannel(channelName string, data []byte) (Result, error) {
	ids, exists := r.channels.Members(channelName)
	if !exists {
		return Result{}, ErrChannelNotFound
	}

	targets := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		// the session may have gone between the two lookups
		if s, ok := r.sessions.Get(id); ok {
			targets = append(targets, s)
		}
	}
	return r.deliverAll(targets, data), nil
}

func (r *Router) BroadcastToLogin(login string, data []byte) Result {
	return r.deliverAll(r.sessions.GetByLogin(login), data)
}

func (r *Router) deliverAll(targets []*session.Session, data []byte) Result {
	start := time.Now()
	var res Result

	for _, s := range targets {
		if !s.IsOpen() {
			res.Skipped++
			continue
		}
		if err := deliver(s, data); err != nil {
			res.Failed++
			logger.Log.Debugw("broadcast send failed", "session", s.ID, "error", err)
			if errors.Is(err, network.ErrSendQueueFull) {
				// a stalled reader must not hold up the channel; its read
				// loop tears the session down once the socket is gone
				go s.Close()
			}
			continue
		}
		res.Delivered++
	}

	if r.observer != nil {
		r.observer.ObserveBroadcast(time.Since(start), res.Delivered, res.Failed)
	}
	return res
}

// deliver isolates one socket's failure, including a panicking
// connection implementation, from the rest of the fan-out.
func deliver(s *session.Session, data []byte) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("send panicked: %v", p)
		}
	}()
	return s.Send(data)
}
