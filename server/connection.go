package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
)

var ErrNotPermitted = errors.New("not permitted on this mount")

type connectedData struct {
	SessionID string `json:"sessionId"`
	Login     string `json:"login"`
	Channel   string `json:"channel"`
	Mount     string `json:"mount"`
}

func sessionTimerPrefix(id string) string {
	return "session:" + id + ":"
}

func idleTimerKey(id string) string {
	return sessionTimerPrefix(id) + "idle"
}

// identify reads the viewer login and channel from the handshake headers,
// falling back to query parameters for browsers that cannot set headers
// on a WebSocket request.
func identify(r *http.Request) (login, channelName string) {
	login = strings.TrimSpace(r.Header.Get(HeaderLogin))
	if login == "" {
		login = strings.TrimSpace(r.URL.Query().Get("login"))
	}
	if login == "" {
		login = AnonymousLogin
	}
	channelName = strings.TrimSpace(r.Header.Get(HeaderChannel))
	if channelName == "" {
		channelName = strings.TrimSpace(r.URL.Query().Get("channel"))
	}
	if channelName == "" {
		channelName = DefaultChannel
	}
	return login, channelName
}

func (g *Gateway) handleWebSocket(mount string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mutex.Lock()
		if g.closing {
			g.mutex.Unlock()
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		g.conns.Add(1)
		g.mutex.Unlock()
		defer g.conns.Done()

		login, channelName := identify(r)
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Infof("Failed to upgrade connection on %s: %v", mount, err)
			return
		}
		g.handleConnection(conn, mount, login, channelName)
	}
}

func (g *Gateway) handleConnection(conn *websocket.Conn, mount, login, channelName string) {
	wsConn := network.NewWSConnection(conn, g.connOptions())
	sess := session.NewSession(uuid.New().String(), wsConn)
	sess.Login = login
	sess.Channel = channelName
	sess.Mount = mount

	defer g.teardown(sess)

	// connected is queued before the session is routable so it is always
	// the first frame the client sees
	frame, err := network.Encode(network.Outbound{
		Type:      network.MsgTypeConnected,
		Message:   fmt.Sprintf("connected to %s", mount),
		Data:      connectedData{SessionID: sess.ID, Login: login, Channel: channelName, Mount: mount},
		Timestamp: network.Now(),
	})
	if err == nil {
		err = sess.Send(frame)
	}
	if err != nil {
		logger.Log.Warnf("Failed to greet session %s: %v", sess.ID, err)
		return
	}

	g.sessions.Add(sess)
	g.channels.Join(channelName, sess.ID)
	g.monitor.IncOnlineSessions()
	g.monitor.SetActiveChannels(g.channels.Count())

	logger.Log.Infof("New connection from %s on %s, session %s, login %s, channel %s",
		wsConn.RemoteAddr(), mount, sess.ID, login, channelName)
	g.touch(sess)

	for {
		select {
		case <-g.shutdownCh:
			return
		default:
		}
		raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debugw("read failed", "session", sess.ID, "error", err)
			}
			return
		}
		g.touch(sess)
		g.dispatch(sess, raw)
	}
}

// touch records activity and re-arms the idle timer, replacing the
// previous one.
func (g *Gateway) touch(sess *session.Session) {
	sess.Touch()
	if g.gwCfg.IdleTimeout <= 0 {
		return
	}
	g.timers.AddTimer(idleTimerKey(sess.ID), g.gwCfg.IdleTimeout, 0, func() {
		logger.Log.Infof("Session %s idle since %s, closing", sess.ID, sess.LastActivity().Format(time.RFC3339))
		_ = closeWithin(sess, g.closeTimeout())
	})
}

// teardown removes every trace of sess. Each step runs regardless of the
// others failing; errors are logged, never returned.
func (g *Gateway) teardown(sess *session.Session) {
	var errs error
	g.timers.RemovePrefix(sessionTimerPrefix(sess.ID))
	left := g.channels.LeaveAll(sess.ID)
	if g.sessions.Remove(sess.ID) {
		g.monitor.DecOnlineSessions()
	}
	g.monitor.SetActiveChannels(g.channels.Count())
	errs = multierr.Append(errs, closeWithin(sess, g.closeTimeout()))

	logger.Log.Infof("Connection closed, session %s, left channels %v", sess.ID, left)
	if errs != nil {
		logger.Log.Debugw("session cleanup errors", "session", sess.ID, "error", errs)
	}
}

func (g *Gateway) dispatch(sess *session.Session, raw []byte) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log.Errorf("panic handling frame from session %s: %v", sess.ID, p)
			g.replyError(sess, fmt.Errorf("internal error: %v", p))
		}
	}()

	in, err := network.Decode(raw)
	if err != nil {
		g.monitor.IncMalformedFrames()
		g.replyError(sess, err)
		return
	}
	g.monitor.IncMessagesReceived(in.Type)

	switch in.Type {
	case network.MsgTypePing:
		g.reply(sess, network.MsgTypePong, nil)
	case network.MsgTypeChat:
		err = g.handleChat(sess, in)
	case network.MsgTypePlayerAction:
		err = g.handlePlayerAction(sess, in)
	case network.MsgTypePersonaSwitch:
		err = g.handlePersonaSwitch(sess, in)
	case network.MsgTypeStatus:
		g.reply(sess, network.MsgTypeStatus, g.status(sess))
	case network.MsgTypeGameState, network.MsgTypeOverlayEvent:
		err = g.handleRelay(sess, in)
	}
	if err != nil {
		g.replyError(sess, err)
	}
}

func (g *Gateway) handleChat(sess *session.Session, in *network.Inbound) error {
	var chat network.ChatData
	if err := in.Bind(&chat); err != nil {
		return err
	}
	chat.User = sess.Login
	chat.Timestamp = network.Now()
	return g.toChannel(sess, network.MsgTypeChat, chat)
}

func (g *Gateway) handlePlayerAction(sess *session.Session, in *network.Inbound) error {
	var action network.PlayerActionData
	if err := in.Bind(&action); err != nil {
		return err
	}
	resp, err := g.process(sess, in)
	if err != nil {
		return err
	}
	return g.toChannel(sess, resp.Type, resp.Data)
}

func (g *Gateway) handlePersonaSwitch(sess *session.Session, in *network.Inbound) error {
	var req network.PersonaSwitchData
	if err := in.Bind(&req); err != nil {
		return err
	}
	resp, err := g.process(sess, in)
	if err != nil {
		return err
	}
	g.reply(sess, resp.Type, resp.Data)
	return nil
}

// handleRelay forwards an authoritative frame from a control client to
// its channel unchanged.
func (g *Gateway) handleRelay(sess *session.Session, in *network.Inbound) error {
	if !g.controlMounts[sess.Mount] {
		return fmt.Errorf("%w: %s", ErrNotPermitted, in.Type)
	}
	if in.Type == network.MsgTypeGameState && !bytes.HasPrefix(bytes.TrimSpace(in.Data), []byte("{")) {
		return fmt.Errorf("%w: gameState data must be an object", network.ErrInvalidPayload)
	}
	return g.toChannel(sess, in.Type, in.Data)
}

func (g *Gateway) process(sess *session.Session, in *network.Inbound) (engine.Response, error) {
	if g.engine == nil {
		return engine.Response{}, engine.ErrUnsupportedRequest
	}
	ctx, cancel := context.WithTimeout(g.baseCtx, engineTimeout)
	defer cancel()
	return g.engine.ProcessRequest(ctx, engine.Request{
		Type:      in.Type,
		SessionID: sess.ID,
		Login:     sess.Login,
		Channel:   sess.Channel,
		Data:      in.Data,
	})
}

func (g *Gateway) toChannel(sess *session.Session, msgType string, data interface{}) error {
	frame, err := network.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	res, err := g.router.BroadcastToChannel(sess.Channel, frame)
	if err != nil && !errors.Is(err, broadcast.ErrChannelNotFound) {
		return err
	}
	logger.Log.Debugw("channel send", "type", msgType, "channel", sess.Channel,
		"delivered", res.Delivered, "failed", res.Failed)
	return nil
}

func (g *Gateway) reply(sess *session.Session, msgType string, data interface{}) {
	frame, err := network.NewMessage(msgType, data)
	if err != nil {
		logger.Log.Errorf("Failed to encode %s reply: %v", msgType, err)
		return
	}
	if err := sess.Send(frame); err != nil {
		logger.Log.Debugw("reply failed", "session", sess.ID, "type", msgType, "error", err)
	}
}

func (g *Gateway) replyError(sess *session.Session, err error) {
	if sendErr := sess.Send(network.NewErrorMessage(errorText(err), err.Error())); sendErr != nil {
		logger.Log.Debugw("error reply failed", "session", sess.ID, "error", sendErr)
	}
}

// errorText maps err onto the short, stable string clients match on.
func errorText(err error) string {
	for _, sentinel := range []error{
		network.ErrMalformedFrame,
		network.ErrMissingType,
		network.ErrUnknownType,
		network.ErrInvalidPayload,
		engine.ErrUnknownPersona,
		engine.ErrUnsupportedRequest,
		ErrNotPermitted,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "request failed"
}
