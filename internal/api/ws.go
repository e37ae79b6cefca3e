package api

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/Rida-Lamiini/Chat-app/internal/chat"
	"github.com/Rida-Lamiini/Chat-app/internal/client"
	"github.com/Rida-Lamiini/Chat-app/internal/metrics"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/presence"
	"github.com/Rida-Lamiini/Chat-app/internal/session"
)

const presenceRefresh = presence.TTL / 3

type wsCommand struct {
	Type       string `json:"type"`
	ChatID     string `json:"chat_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Text       string `json:"text,omitempty"`
	// base64-encoded image payload
	Image string `json:"image,omitempty"`
}

// handleWS drives one signed-in tab: it builds a client runtime, streams
// every holder/synchronizer update out as a JSON event and applies
// incoming commands to the runtime. Closing the socket tears the whole
// runtime down, subscriptions included.
func (s *Server) handleWS(conn *websocket.Conn) {
	uid, err := s.tokens.Verify(conn.Query("token"))
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "invalid token"})
		_ = conn.Close()
		return
	}

	metrics.ActiveSockets.Inc()
	defer metrics.ActiveSockets.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	send := make(chan any, 64)
	push := func(v any) {
		select {
		case <-done:
			return
		default:
		}
		select {
		case send <- v:
		default:
			// slow tab, drop rather than block the sync layer
		}
	}
	go func() {
		for {
			select {
			case v := <-send:
				if err := conn.WriteJSON(v); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	cl := client.New(s.store, s.blobs, s.log)
	defer cl.Close(context.Background())

	cl.Session.OnChange(func(st session.State) {
		push(map[string]any{"type": "session", "signed_in": st.SignedIn(), "loading": st.Loading, "user": st.Profile})
	})
	cl.List.OnUpdate(func(entries []chat.ListEntry) {
		push(map[string]any{"type": "chats", "chats": entries})
	})
	cl.Selection.OnChange(func(st chat.SelectionState) {
		ev := map[string]any{
			"type":                   "selection",
			"chat_id":                st.ChatID,
			"counterpart":            st.Counterpart,
			"blocked_by_me":          st.BlockedByMe,
			"blocked_by_counterpart": st.BlockedByCounterpart,
		}
		if st.Err != nil {
			ev["error"] = st.Err.Error()
		}
		push(ev)
	})
	cl.Feed.OnUpdate(func(chatID string, msgs []models.Message) {
		push(map[string]any{"type": "messages", "chat_id": chatID, "messages": msgs})
	})

	if err := cl.SignIn(ctx, uid); err != nil {
		s.log.Warnw("ws sign-in", "uid", uid, "err", err)
		push(map[string]any{"type": "error", "message": "sign-in failed"})
		return
	}

	if err := s.presence.SetOnline(ctx, uid); err != nil {
		s.log.Warnw("presence online", "uid", uid, "err", err)
	}
	go func() {
		t := time.NewTicker(presenceRefresh)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := s.presence.SetOnline(ctx, uid); err != nil {
					s.log.Warnw("presence refresh", "uid", uid, "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	defer func() {
		if err := s.presence.SetOffline(context.Background(), uid); err != nil {
			s.log.Warnw("presence offline", "uid", uid, "err", err)
		}
	}()

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		if err := s.apply(ctx, cl, push, cmd); err != nil {
			s.log.Warnw("ws command", "uid", uid, "cmd", cmd.Type, "err", err)
			push(map[string]any{"type": "error", "message": err.Error()})
		}
	}
}

func (s *Server) apply(ctx context.Context, cl *client.Client, push func(any), cmd wsCommand) error {
	switch cmd.Type {
	case "select":
		return cl.SelectConversation(ctx, cmd.ChatID, cmd.ReceiverID)
	case "send":
		cl.Composer.SetText(cmd.Text)
		if cmd.Image != "" {
			img, err := base64.StdEncoding.DecodeString(cmd.Image)
			if err != nil {
				return err
			}
			cl.Composer.AttachImage(img)
		}
		return cl.Composer.Submit(ctx)
	case "start_chat":
		chatID, err := cl.StartChat(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		push(map[string]any{"type": "chat_started", "chat_id": chatID, "user_id": cmd.UserID})
		return nil
	case "block":
		return cl.SetBlock(ctx, true)
	case "unblock":
		return cl.SetBlock(ctx, false)
	case "toggle_block":
		return cl.ToggleBlock(ctx)
	default:
		push(map[string]any{"type": "error", "message": "unknown command: " + cmd.Type})
		return nil
	}
}
