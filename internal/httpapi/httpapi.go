// Package httpapi serves the command ingress and status feed the rest of
// the installation's UI/remote bridges talk to. Grounded on
// original_source/http_server.py's exact GET/POST contract (200 `{}` for
// GET, 400 "bad request" on a request that doesn't parse, 400 `{}` on a
// command that fails), reimplemented over stdlib net/http instead of
// http.server's threading model since net/http already serves each request
// on its own goroutine. The `/ws` status-push feed is a supplemented
// addition (see SPEC_FULL.md) built on gorilla/websocket, the same library
// the teacher uses for its own client-side socket.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/orchestrator"
	"github.com/sweeks/multiviewer/internal/sysstatus"
	"github.com/sweeks/multiviewer/pkg/mvproto"
)

var log = logging.L("httpapi")

const maxRequestBody = 64 * 1024

// Handler serves the command ingress, liveness check, and status feed
// against one Dispatcher.
type Handler struct {
	dispatcher *orchestrator.Dispatcher
	monitor    *sysstatus.Monitor
	hub        *hub
}

// New builds a Handler for dispatcher. Call Routes to get the ServeMux to
// hand to an http.Server. monitor may be nil, in which case /healthz
// reports "unknown" rather than any per-component detail.
func New(dispatcher *orchestrator.Dispatcher, monitor *sysstatus.Monitor) *Handler {
	return &Handler{dispatcher: dispatcher, monitor: monitor, hub: newHub()}
}

// Routes registers every endpoint on a fresh ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/healthz", h.handleHealthz)
	return mux
}

// handleHealthz is a supplemented addition (not part of spec.md §6.1's
// contract) surfacing internal/sysstatus's reachability checks so "mvd
// status" can report device health without needing local process access.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": string(sysstatus.Unknown)})
		return
	}
	summary := h.monitor.Summary()
	status := http.StatusOK
	if h.monitor.Overall() != sysstatus.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, summary)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{})
	case http.MethodPost:
		h.handleCommand(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCommand mirrors RequestHandler.do_POST: parse {"command": "..."}
// from the body, split on spaces, run it, and respond. A body that fails to
// parse (bad JSON, missing/non-string command) is 400 "bad request"; a
// command that runs but fails is 400 {}.
func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil || len(body) > maxRequestBody {
		writeJSON(w, http.StatusBadRequest, "bad request")
		return
	}

	var req mvproto.CommandRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Command == "" {
		log.Warn("malformed command request", logging.KeyError, err)
		writeJSON(w, http.StatusBadRequest, "bad request")
		return
	}

	words := splitCommand(req.Command)
	result, err := h.dispatcher.Do(r.Context(), words)
	if err != nil {
		log.Warn("command failed", "command", req.Command, logging.KeyError, err)
		writeJSON(w, http.StatusBadRequest, map[string]any{})
		return
	}

	writeJSON(w, http.StatusOK, result)
	h.broadcastStatus()
}

func (h *Handler) broadcastStatus() {
	screenDesc, volumeDesc := h.dispatcher.Describe()
	h.hub.broadcast(mvproto.StatusEvent{
		Type:   mvproto.EventScreen,
		Screen: screenDesc,
		Volume: volumeDesc,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection and registers it with the hub; the
// client reads StatusEvent JSON messages and never sends any of its own.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", logging.KeyError, err)
		return
	}
	h.hub.register(conn)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// splitCommand tokenizes a command line on runs of whitespace, matching the
// original's str.split() with no arguments.
func splitCommand(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
