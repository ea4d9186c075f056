package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/audio"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/broadcast"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/network"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/session"
)

var validate = validator.New()

// Status is the health snapshot returned on /status and for a status frame.
type Status struct {
	Sessions      int         `json:"sessions"`
	Channels      int         `json:"channels"`
	UptimeSeconds float64     `json:"uptimeSeconds"`
	Mounts        []string    `json:"mounts"`
	Mount         string      `json:"mount,omitempty"`
	SessionID     string      `json:"sessionId,omitempty"`
	Engine        interface{} `json:"engine,omitempty"`
}

func (g *Gateway) status(sess *session.Session) Status {
	st := Status{
		Sessions:      g.sessions.Count(),
		Channels:      g.channels.Count(),
		UptimeSeconds: g.monitor.Uptime().Seconds(),
		Mounts:        g.cfg.Mounts,
	}
	if sess != nil {
		st.Mount = sess.Mount
		st.SessionID = sess.ID
	}
	if g.engine != nil {
		ctx, cancel := context.WithTimeout(g.baseCtx, engineTimeout)
		defer cancel()
		if resp, err := g.engine.ProcessRequest(ctx, engine.Request{Type: network.MsgTypeStatus}); err == nil {
			st.Engine = resp.Data
		}
	}
	return st
}

// Status returns the gateway health snapshot.
func (g *Gateway) Status() Status {
	return g.status(nil)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (g *Gateway) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, g.status(nil))
}

type availableResponse struct {
	UserID     string          `json:"userId"`
	Categories audio.Available `json:"categories"`
}

func (g *Gateway) handleAvailableAudio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, availableResponse{
		UserID:     userID,
		Categories: g.gate.GetAvailableAudio(r.Context(), userID),
	})
}

type generateRequest struct {
	UserID   string     `json:"userId" validate:"required"`
	Category string     `json:"category" validate:"required"`
	Channel  string     `json:"channel"`
	Async    bool       `json:"async"`
	Spec     audio.Spec `json:"spec"`
}

// AudioGenerated is pushed to overlays when an async generation finishes.
type AudioGenerated struct {
	UserID   string       `json:"userId"`
	Category string       `json:"category"`
	Result   audio.Result `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (g *Gateway) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if !g.gate.CanGenerate(r.Context(), req.UserID, req.Category) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "tier does not include category " + req.Category})
		return
	}

	if !req.Async {
		writeJSON(w, http.StatusOK, g.generator.GenerateAudioWithAI(r.Context(), req.Spec, req.Category))
		return
	}

	// the request context ends with this handler; generation must not
	g.generator.GenerateAsync(context.WithoutCancel(r.Context()), req.Spec, req.Category, func(res audio.Result) {
		g.pushAudio(req, res)
	})
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// pushAudio delivers a finished generation to the requesting channel, or
// to the user's own sessions when no channel was given or it is empty.
func (g *Gateway) pushAudio(req generateRequest, res audio.Result) {
	frame, err := network.NewMessage(network.MsgTypeAudioGenerated, AudioGenerated{
		UserID:   req.UserID,
		Category: req.Category,
		Result:   res,
	})
	if err != nil {
		logger.Log.Errorf("Failed to encode audio result: %v", err)
		return
	}
	if req.Channel != "" {
		_, err := g.router.BroadcastToChannel(req.Channel, frame)
		if err == nil {
			return
		}
		if !errors.Is(err, broadcast.ErrChannelNotFound) {
			logger.Log.Warnf("Failed to push audio to channel %s: %v", req.Channel, err)
		}
	}
	g.router.BroadcastToLogin(req.UserID, frame)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugw("response encode failed", "error", err)
	}
}
