package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/adapter/auth"
	"github.com/YelzhanWeb/orderdesk/internal/adapter/logger"
	"github.com/YelzhanWeb/orderdesk/internal/app/view"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const streamHeartbeat = 25 * time.Second

var errSessionNotFound = errors.New("view session not found")

type ViewHandler struct {
	deps      view.Deps
	logger    logger.Logger
	heartbeat time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
}

// liveSession is a stream's session, addressable by its owner while the
// stream is open.
type liveSession struct {
	session *view.Session
	owner   string
}

// SessionInfo is the first event of a stream. Its id addresses the
// session's refresh and transition endpoints.
type SessionInfo struct {
	ID   uuid.UUID `json:"id"`
	View view.Kind `json:"view"`
}

func NewViewHandler(deps view.Deps, logger logger.Logger) *ViewHandler {
	return &ViewHandler{
		deps:      deps,
		logger:    logger,
		heartbeat: streamHeartbeat,
		sessions:  make(map[uuid.UUID]*liveSession),
	}
}

// Board returns the current rendering of a view from a one-off fetch.
func (h *ViewHandler) Board(w http.ResponseWriter, r *http.Request) {
	kind, _, ok := h.authorize(w, r)
	if !ok {
		return
	}

	orders, err := h.deps.Orders.Select(r.Context(), kind.Filter())
	if err != nil {
		h.logger.Error("view_fetch_failed", "Failed to fetch view", requestIDFrom(r.Context()), map[string]interface{}{
			"view": string(kind),
		}, err)
		respondError(w, "fetch failure", http.StatusBadGateway, nil)
		return
	}
	respondJSON(w, http.StatusOK, view.BuildBoard(kind, orders))
}

// Stream keeps a view session open for the connection and pushes the board
// as server-sent events: "session" once with the session id, "snapshot"
// after every change, "new_order" when an order enters the view and
// "feed_error" when the change feed is lost. After a feed error the stream
// stays open and recovers through the session's refresh endpoint.
func (h *ViewHandler) Stream(w http.ResponseWriter, r *http.Request) {
	kind, principal, ok := h.authorize(w, r)
	if !ok {
		return
	}
	requestID := requestIDFrom(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "streaming unsupported", http.StatusInternalServerError, nil)
		return
	}

	session, err := view.Open(r.Context(), kind, h.deps)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	defer session.Close()

	id := h.register(session, principal.Subject)
	defer h.unregister(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, data interface{}) bool {
		if err := writeEvent(w, event, data); err != nil {
			h.logger.Debug("stream_write_failed", "Client went away", requestID, map[string]interface{}{"view": string(kind)})
			return false
		}
		flusher.Flush()
		return true
	}

	if !send("session", SessionInfo{ID: id, View: kind}) {
		return
	}
	if !send("snapshot", session.Board()) {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	reported := false
	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.Done():
			return
		case o := <-session.NewOrders():
			if !send("new_order", o) {
				return
			}
		case <-session.Changes():
			err := session.Err()
			if err == nil {
				reported = false
			} else if !reported {
				reported = true
				if !send("feed_error", ErrorResponse{Error: err.Error()}) {
					return
				}
			}
			if !send("snapshot", session.Board()) {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Refresh re-subscribes a session whose feed was lost and reloads its
// baseline. The open stream then emits a fresh snapshot.
func (h *ViewHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		h.respondSessionError(w, err)
		return
	}

	h.logger.Info("view_refreshed", "View session refreshed", requestIDFrom(r.Context()), map[string]interface{}{
		"view": string(session.Kind()),
	})
	respondJSON(w, http.StatusOK, session.Board())
}

// AdvanceStatus runs a status transition through a session so the result
// shows in its list without waiting for the feed.
func (h *ViewHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	target, ok := decodeStatus(w, r)
	if !ok {
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	order, err := session.AdvanceStatus(r.Context(), id, target, principal.Subject)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *ViewHandler) AdvanceDelivery(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	target, ok := decodeDeliveryStatus(w, r)
	if !ok {
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	order, err := session.AdvanceDelivery(r.Context(), id, target, principal.Subject)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *ViewHandler) register(session *view.Session, owner string) uuid.UUID {
	id := uuid.New()
	h.mu.Lock()
	h.sessions[id] = &liveSession{session: session, owner: owner}
	h.mu.Unlock()
	return id
}

func (h *ViewHandler) unregister(id uuid.UUID) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// lookup finds an open session of the requested view owned by the caller.
// Sessions of other users are reported as missing.
func (h *ViewHandler) lookup(w http.ResponseWriter, r *http.Request) (*view.Session, bool) {
	kind, principal, ok := h.authorize(w, r)
	if !ok {
		return nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["session"])
	if err != nil {
		respondError(w, errSessionNotFound.Error(), http.StatusNotFound, nil)
		return nil, false
	}

	h.mu.Lock()
	live, found := h.sessions[id]
	h.mu.Unlock()
	if !found || live.owner != principal.Subject || live.session.Kind() != kind {
		respondError(w, errSessionNotFound.Error(), http.StatusNotFound, nil)
		return nil, false
	}
	return live.session, true
}

func (h *ViewHandler) respondSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, view.ErrSessionClosed) {
		respondError(w, errSessionNotFound.Error(), http.StatusNotFound, nil)
		return
	}
	respondDomainError(w, err)
}

func (h *ViewHandler) authorize(w http.ResponseWriter, r *http.Request) (view.Kind, auth.Principal, bool) {
	kind, err := view.ParseKind(mux.Vars(r)["view"])
	if err != nil {
		respondError(w, err.Error(), http.StatusNotFound, nil)
		return "", auth.Principal{}, false
	}
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized, nil)
		return "", auth.Principal{}, false
	}
	if !kind.Allows(principal.Role) {
		respondError(w, "forbidden", http.StatusForbidden, nil)
		return "", auth.Principal{}, false
	}
	return kind, principal, true
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
