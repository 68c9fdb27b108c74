package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/facequest/trainer/internal/emotion"
	"github.com/facequest/trainer/internal/game"
	"github.com/facequest/trainer/internal/session"
)

// wsInbound is a message from the browser. Frames are the bulk of the
// traffic; capture and hint mirror the HTTP endpoints.
type wsInbound struct {
	Type   string `json:"type"`
	Image  string `json:"image,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// handleSessionWS streams camera frames in and session events out over a
// single connection. Every inbound message keeps the session alive; the
// connection closes when the session ends.
func handleSessionWS(logger *slog.Logger, sessions *session.Manager, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()
		// Frames are data URLs and easily exceed the default read limit.
		conn.SetReadLimit(4 << 20)

		ch := broker.Subscribe(sess.ID)
		defer broker.Unsubscribe(sess.ID, ch)
		// The socket is the camera; without it the last frame is stale.
		defer sess.ClearFrames()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		initial, _ := json.Marshal(game.Event{Type: game.EventState, Mode: sess.Mode, Snapshot: sess.View().State})
		if err := conn.Write(ctx, websocket.MessageText, initial); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			defer cancel()
			for {
				var in wsInbound
				if err := wsjson.Read(ctx, conn, &in); err != nil {
					return err
				}
				if err := sessions.Touch(sess.ID); err != nil {
					// Ended; the writer closes once the ended event is out.
					continue
				}
				switch in.Type {
				case "frame":
					sess.PublishFrame(emotion.Frame{Image: in.Image, Width: in.Width, Height: in.Height})
				case "capture":
					if _, err := sess.Capture(); err != nil {
						logger.Debug("websocket capture refused", "session", sess.ID, "error", err)
					}
				case "hint":
					if _, err := sess.ToggleHint(); err != nil {
						logger.Debug("websocket hint refused", "session", sess.ID, "error", err)
					}
				default:
					logger.Debug("websocket unknown message", "session", sess.ID, "type", in.Type)
				}
			}
		})

		g.Go(func() error {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg := <-ch:
					if err := conn.Write(ctx, websocket.MessageText, msg.Data); err != nil {
						return err
					}
					if msg.Type == string(game.EventEnded) {
						return conn.Close(websocket.StatusNormalClosure, "session ended")
					}
				}
			}
		})

		err = g.Wait()
		switch {
		case err == nil,
			errors.Is(err, context.Canceled),
			websocket.CloseStatus(err) == websocket.StatusNormalClosure,
			websocket.CloseStatus(err) == websocket.StatusGoingAway:
			logger.Debug("websocket closed", "session", sess.ID, "dropped", broker.Dropped(sess.ID))
		default:
			logger.Debug("websocket ended", "session", sess.ID, "dropped", broker.Dropped(sess.ID), "error", err)
		}
	}
}
