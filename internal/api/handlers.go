package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avremote-network/avremote/internal/avc"
	"github.com/avremote-network/avremote/internal/domain"
	"github.com/avremote-network/avremote/internal/session"
)

func (s *Server) controller(r *http.Request) (*session.Controller, error) {
	id := domain.PeerID(chi.URLParam(r, "id"))
	if id == "" {
		return nil, fmt.Errorf("missing peer id")
	}
	return s.sup.ControllerRequest(r.Context(), id)
}

// ─── Peers ──────────────────────────────────────────────────────────────────

func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"peers": s.sup.Snapshots(),
	})
}

func (s *Server) handleGetPeer(w http.ResponseWriter, r *http.Request) {
	id := domain.PeerID(chi.URLParam(r, "id"))
	snap, ok := s.sup.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown peer")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ─── Commands ───────────────────────────────────────────────────────────────

type keyRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleSendKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	key, ok := avc.ParseKeyName(req.Key)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown key %q", req.Key))
		return
	}

	ctrl, err := s.controller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	if err := ctrl.SendKeypress(ctx, key); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key, "status": "sent"})
}

type volumeRequest struct {
	Volume byte `json:"volume"`
}

func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctrl, err := s.controller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	confirmed, err := ctrl.SetAbsoluteVolume(ctx, req.Volume)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]byte{"volume": confirmed})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	attrs, err := ctrl.GetMediaAttributes(ctx)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attrs)
}

func (s *Server) handleSupportedEvents(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	events, err := ctrl.GetSupportedEvents(ctx)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.String())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": names})
}

type vendorRequest struct {
	Pdu    byte   `json:"pdu"`
	Params string `json:"params"` // hex encoded
}

func (s *Server) handleRawVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params, err := hex.DecodeString(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "params is not valid hex")
		return
	}

	ctrl, err := s.controller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	out, err := ctrl.SendRawVendorCommand(ctx, avc.PduID(req.Pdu), params)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"params": hex.EncodeToString(out)})
}

// ─── Event Stream ───────────────────────────────────────────────────────────

// handleEventsSSE streams a peer's controller events as server-sent
// events until the client disconnects.
func (s *Server) handleEventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctrl, err := s.controller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stream, err := ctrl.TakeEventStream(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case ev, open := <-stream.Events():
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
