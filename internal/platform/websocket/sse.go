package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const sseHeartbeat = 15 * time.Second

// ServeSSE streams the topic as Server-Sent Events. The client is subscribed
// before snapshot runs, so an update published while the snapshot is built
// is delivered after it rather than lost. A nil snapshot func, or a nil
// event from it, sends nothing up front. The stream ends on client
// disconnect or when stop reports true for an event, which is still
// delivered.
func ServeSSE(c echo.Context, hub *Hub, topic string, snapshot func() (*Event, error), stop func(Event) bool) error {
	client := NewClient()
	client.Topics = []string{topic}
	hub.Register(client)
	defer hub.Unregister(client)

	var first *Event
	if snapshot != nil {
		evt, err := snapshot()
		if err != nil {
			return err
		}
		first = evt
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if first != nil {
		data, err := json.Marshal(first)
		if err != nil {
			return err
		}
		if err := writeSSE(w, first.Type, data); err != nil {
			return nil
		}
		if stop != nil && stop(*first) {
			return nil
		}
	}

	return pumpSSE(c.Request().Context(), w, client, stop, hub.logger)
}

func pumpSSE(ctx context.Context, w *echo.Response, client *Client, stop func(Event) bool, logger zerolog.Logger) error {
	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case data, ok := <-client.Send:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal(data, &evt); err != nil {
				logger.Warn().Err(err).Str("client_id", client.ID).Msg("dropping undecodable sse frame")
				continue
			}
			if err := writeSSE(w, evt.Type, data); err != nil {
				return nil
			}
			if stop != nil && stop(evt) {
				return nil
			}
		}
	}
}

func writeSSE(w *echo.Response, eventType string, data []byte) error {
	if eventType != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
