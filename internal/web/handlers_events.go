package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/csvinsight/internal/core"
	"github.com/JonMunkholm/csvinsight/internal/logging"
)

// eventKeepAlive is how often a comment line is sent on an idle stream so
// proxies do not close it.
const eventKeepAlive = 15 * time.Second

var errStreamingUnsupported = errors.New("streaming unsupported")

// handleSessionEvents streams session snapshots using Server-Sent Events.
//
// Each transition is sent as a "state" event carrying a SessionView. The
// first event is the current snapshot. When the session is removed the
// stream ends with a "complete" event. A request without a session gets 404;
// streams never create one.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(r)
	if !ok {
		respondError(w, r, core.ErrSessionNotFound, http.StatusNotFound)
		return
	}
	rc := http.NewResponseController(w)
	log := logging.ForSession(r.Context(), sess.ID())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	if err := rc.Flush(); err != nil {
		respondError(w, r, fmt.Errorf("%w: %w", errStreamingUnsupported, err), http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			rc.Flush()

		case st, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				rc.Flush()
				return
			}

			data, err := json.Marshal(newSessionView(sess.ID(), st, s.service.Ready()))
			if err != nil {
				log.Error("encode session event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", data); err != nil {
				return
			}
			rc.Flush()
		}
	}
}
