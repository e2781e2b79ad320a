package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/http/middleware"
	"github.com/portones-fc/access/internal/http/response"
)

// keepaliveInterval spaces SSE comments so idle proxies keep the stream open.
const keepaliveInterval = 25 * time.Second

// streamStatus pushes gate status changes to the app as server-sent events.
// The stream opens with one event per gate in the resident's colonia, then
// relays live changes until the client goes away.
func (h *Handlers) streamStatus(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	claims := middleware.Claims(r)
	views, err := h.gates.ListGates(r.Context(), claims.ColoniaID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// Subscribe before sending the snapshot so no change falls between them.
	changes, cancel := h.gates.WatchStatus()
	defer cancel()

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, v := range views {
		writeStatusEvent(w, domain.GateStatusChange{GateID: v.ID, Status: v.Status, At: time.Now()})
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			writeStatusEvent(w, change)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStatusEvent(w http.ResponseWriter, change domain.GateStatusChange) {
	data, err := json.Marshal(change)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
}
