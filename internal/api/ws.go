package api

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kinetic-data/repcoach/internal/monitoring"
	"github.com/kinetic-data/repcoach/internal/session"
)

// serveWS upgrades the connection and bridges it to the session
// orchestrator: inbound JSON becomes commands, hub events stream out.
// Multiple clients may connect; each gets its own hub subscription.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Clients are local dashboards or the bundled frontend; origin
		// enforcement happens at the reverse proxy when deployed.
		InsecureSkipVerify: true,
	})
	if err != nil {
		monitoring.Diagf("[api] websocket accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server closing")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subID, events := s.orch.Hub().Subscribe()
	defer s.orch.Hub().Unsubscribe(subID)
	monitoring.Diagf("[api] websocket client %s connected", subID)

	// Writer: hub events out to the client.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for evt := range events {
			if err := wsjson.Write(ctx, conn, evt); err != nil {
				cancel()
				return
			}
		}
	}()

	// Reader: client commands into the orchestrator.
	for {
		var cmd session.Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			break
		}
		if cmd.Type == "" {
			continue
		}
		select {
		case s.orch.Commands() <- cmd:
		case <-ctx.Done():
		}
	}

	cancel()
	// Closing the subscription ends the writer's range loop. Unsubscribe
	// is idempotent, so the deferred call is a no-op afterwards.
	s.orch.Hub().Unsubscribe(subID)
	<-writeDone
	monitoring.Diagf("[api] websocket client %s disconnected", subID)
	conn.Close(websocket.StatusNormalClosure, "")
}
