package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// handleEvents streams change events to a websocket client, one JSON payload
// per detected change, in detection order. The stream ends when the client
// disconnects or the service closes.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.WithError(err).Error("Failed to accept websocket client")
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	clientLog := log.WithField("client", uuid.NewString())
	clientLog.Info("Websocket event client connected")
	defer clientLog.Info("Websocket event client disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsub := s.events.Subscribe(8)
	defer unsub()

	// The only reads we expect are the client going away.
	go func() {
		for {
			if _, _, err := c.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				clientLog.WithError(err).Error("Failed to encode change event")
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, b); err != nil {
				clientLog.WithError(err).Debug("Failed to write change event")
				return
			}
		}
	}
}
