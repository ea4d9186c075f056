package bridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
)

// NATSSource feeds engine events published on NATS into an emitter, so an
// out-of-process engine can drive the bridge. Subjects are
// <prefix>.<kind> or <prefix>.<kind>.<channel>.
type NATSSource struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	prefix string
	sink   engine.Engine
}

func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("overlay-gateway"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Log.Errorf("NATS error: %v", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func NewNATSSource(nc *nats.Conn, prefix string, sink engine.Engine) *NATSSource {
	return &NATSSource{nc: nc, prefix: prefix, sink: sink}
}

func (s *NATSSource) Start() error {
	sub, err := s.nc.Subscribe(s.prefix+".>", s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", s.prefix, err)
	}
	s.sub = sub
	logger.Log.Infof("bridge: consuming engine events on %s.>", s.prefix)
	return nil
}

func (s *NATSSource) handle(msg *nats.Msg) {
	ev, err := s.toEvent(msg.Subject, msg.Data)
	if err != nil {
		logger.Log.Warnf("bridge: rejected NATS message on %s: %v", msg.Subject, err)
		return
	}
	s.sink.Emit(ev)
}

// toEvent maps a subject and body to an engine event. Unknown kinds are
// rejected here, before anything reaches the emitter.
func (s *NATSSource) toEvent(subject string, data []byte) (engine.Event, error) {
	rest := strings.TrimPrefix(subject, s.prefix+".")
	if rest == subject || rest == "" {
		return engine.Event{}, fmt.Errorf("%w: subject %q", ErrUnknownEvent, subject)
	}
	kindToken, channel, _ := strings.Cut(rest, ".")
	kind, err := ParseKind(kindToken)
	if err != nil {
		return engine.Event{}, err
	}
	return engine.Event{Kind: string(kind), Channel: channel, Payload: data}, nil
}

func (s *NATSSource) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}
