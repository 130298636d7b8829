package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ecoforge/ecoforge-backend/api/responses"
	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// StreamChanges serves a server-sent event feed of keytree change events under
// an optional path prefix. Clients re-read changed paths; events carry no data.
func StreamChanges(hub *keytree.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stream unavailable"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		prefix := strings.TrimSpace(r.URL.Query().Get("prefix"))

		sub := hub.Subscribe(prefix)
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-sub.C:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					logg.Error(r.Context(), "stream.event.encode", err)
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
