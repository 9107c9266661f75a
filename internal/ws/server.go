package ws

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/registry"
	"github.com/jacquesd/jacques/internal/terminal"
)

// readTimeout is not applied to connections: no read deadline is set, so a
// producer/consumer read blocks until a message arrives or the connection
// drops.
const readTimeout = 60 * time.Second

// Server is the WS Hub's HTTP-upgrade endpoint. It distinguishes producer
// from consumer connections by the first message's shape and dispatches
// accordingly.
type Server struct {
	hub          *Hub
	registry     *registry.Registry
	orchestrator *terminal.Orchestrator
	log          zerolog.Logger

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

// NewServer wires a Server over hub/reg/orch. allowedOrigins empty means
// the dev-only localhost-and-same-host fallback applies.
func NewServer(hub *Hub, reg *registry.Registry, orch *terminal.Orchestrator, allowedOrigins []string, authToken string, log zerolog.Logger) *Server {
	s := &Server{
		hub:            hub,
		registry:       reg,
		orchestrator:   orch,
		log:            log,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
	}
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	return s
}

// SetupRoutes registers the /ws endpoint on mux. The HTTP/SSE Gateway
// registers the REST surface separately (§4.9 is a distinct listener).
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.Handle("/ws", securityHeaders(http.HandlerFunc(s.handleWS)))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	s.handleConnection(conn)
}

// handleConnection reads the first message to classify the connection as
// producer or consumer, then dispatches all subsequent reads accordingly.
func (s *Server) handleConnection(conn *websocket.Conn) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}

	var envelope WSMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		conn.Close()
		return
	}

	if isProducerEvent(envelope.Type) {
		s.runProducer(conn, raw)
		return
	}
	s.runConsumer(conn)
}

func isProducerEvent(t MessageType) bool {
	switch t {
	case MsgSessionStart, MsgSessionEnd, MsgContextUpdate, MsgToolEvent, MsgPromptSubmit, MsgHandoffReady:
		return true
	default:
		return false
	}
}

// runProducer handles a producer connection: dispatches the first message
// already read, then keeps reading until the connection drops.
func (s *Server) runProducer(conn *websocket.Conn, firstMessage []byte) {
	c := s.hub.AddProducer(conn)
	defer func() {
		s.hub.Remove(c)
		conn.Close()
	}()

	s.dispatchProducerMessage(firstMessage)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatchProducerMessage(raw)
	}
}

func (s *Server) dispatchProducerMessage(raw []byte) {
	var envelope WSMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		s.log.Debug().Err(err).Msg("producer sent malformed envelope")
		return
	}

	payload, err := json.Marshal(envelope.Payload)
	if err != nil {
		return
	}

	switch envelope.Type {
	case MsgSessionStart:
		var ev SessionStartEvent
		if json.Unmarshal(payload, &ev) == nil {
			s.registry.RegisterFromHook(registry.HookEvent{
				SessionID:  ev.SessionID,
				Source:     ev.Source,
				WorkingDir: ev.WorkingDir,
				Title:      ev.Title,
				Model:      registry.ModelDescriptor{ID: ev.Model},
				Timestamp:  time.Now(),
			})
		}
	case MsgSessionEnd:
		var ev SessionEndEvent
		if json.Unmarshal(payload, &ev) == nil {
			s.registry.End(ev.SessionID, registry.EndReasonHook)
		}
	case MsgContextUpdate:
		var ev ContextUpdateEventPayload
		if json.Unmarshal(payload, &ev) == nil {
			s.registry.ApplyContextUpdate(ev.SessionID,
				registry.ContextMetrics{
					WindowSize:       ev.WindowSize,
					UsedTokens:       ev.UsedTokens,
					UsedPercentage:   ev.UsedPercentage,
					IsEstimate:       ev.IsEstimate,
					TotalInputTokens: ev.TotalInputTokens,
				},
				registry.AutoCompactDescriptor{
					Enabled:             ev.AutoCompactEnabled,
					ThresholdPercent:    ev.AutoCompactThreshold,
					BugThresholdPercent: ev.AutoCompactBugThreshold,
				})
		}
	case MsgToolEvent:
		var ev ToolEventPayload
		if json.Unmarshal(payload, &ev) == nil {
			phase := registry.ToolEnd
			if ev.Phase == "start" {
				phase = registry.ToolStart
			}
			s.registry.ApplyToolEvent(ev.SessionID, phase, ev.ToolName)
		}
	case MsgPromptSubmit:
		var ev PromptSubmitEventPayload
		if json.Unmarshal(payload, &ev) == nil {
			s.registry.ApplyAwaiting(ev.SessionID)
		}
	case MsgHandoffReady:
		// Handoff-ready is accepted and dropped: it changes no registry
		// state and raises no notification.
	}
}

// runConsumer handles a consumer connection: pushes initial_state, then
// services control messages until the connection drops.
func (s *Server) runConsumer(conn *websocket.Conn) {
	sessions := s.registry.List()
	focusedID := ""
	if focused, ok := s.registry.GetFocused(); ok {
		focusedID = focused.SessionID
	}

	c := s.hub.AddConsumer(conn, sessions, focusedID)
	defer func() {
		s.hub.Remove(c)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatchControlMessage(c, raw)
	}
}

func (s *Server) dispatchControlMessage(c *client, raw []byte) {
	var envelope WSMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}
	payload, err := json.Marshal(envelope.Payload)
	if err != nil {
		return
	}

	switch envelope.Type {
	case MsgFocusTerminal:
		var ctl FocusTerminalControl
		json.Unmarshal(payload, &ctl)
		s.hub.SendResult(c, MsgFocusTerminalResult, s.focusTerminal(ctl.SessionID))
	case MsgMaximizeWindow:
		var ctl MaximizeWindowControl
		json.Unmarshal(payload, &ctl)
		s.hub.SendResult(c, MsgMaximizeWindowResult, s.maximizeWindow(ctl.SessionID))
	case MsgTileWindows:
		var ctl TileWindowsControl
		json.Unmarshal(payload, &ctl)
		s.hub.SendResult(c, MsgTileWindowsResult, s.tileWindows(ctl.SessionIDs))
	case MsgLaunchSession:
		var ctl LaunchSessionControl
		json.Unmarshal(payload, &ctl)
		s.hub.SendResult(c, MsgLaunchSessionResult, s.launchSession(ctl))
	case MsgListWorktrees, MsgCreateWorktree, MsgRemoveWorktree:
		// The worktree controls are answered with success=false; no
		// worktree operations are implemented, over WS or HTTP.
		s.hub.SendResult(c, resultTypeFor(envelope.Type), ControlResult{Success: false, Error: "worktree operations are not supported"})
	}
}

func resultTypeFor(t MessageType) MessageType {
	switch t {
	case MsgListWorktrees:
		return MsgListWorktreesResult
	case MsgCreateWorktree:
		return MsgCreateWorktreeResult
	case MsgRemoveWorktree:
		return MsgRemoveWorktreeResult
	default:
		return MsgError
	}
}

func (s *Server) focusTerminal(sessionID string) ControlResult {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return ControlResult{Success: false, Error: "session not found"}
	}
	pid, ok := sess.PID()
	if !ok {
		return ControlResult{Success: false, Error: "session has no known pid"}
	}
	result := s.orchestrator.FocusTerminal(pid)
	return ControlResult{Success: result.Success, Error: result.Error, Details: map[string]string{"method": result.Method}}
}

func (s *Server) maximizeWindow(sessionID string) ControlResult {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return ControlResult{Success: false, Error: "session not found"}
	}
	pid, ok := sess.PID()
	if !ok {
		return ControlResult{Success: false, Error: "session has no known pid"}
	}
	result := s.orchestrator.MaximizeWindow(pid)
	return ControlResult{Success: result.Success, Error: result.Error, Details: map[string]string{"method": result.Method}}
}

func (s *Server) tileWindows(sessionIDs []string) ControlResult {
	var pids []int
	for _, id := range sessionIDs {
		if sess, ok := s.registry.Get(id); ok {
			if pid, ok := sess.PID(); ok {
				pids = append(pids, pid)
			}
		}
	}
	result := s.orchestrator.TileWindows(pids)
	return ControlResult{Success: result.Success, Error: result.Error, Details: map[string]string{"method": result.Method}}
}

func (s *Server) launchSession(ctl LaunchSessionControl) ControlResult {
	result := s.orchestrator.LaunchTerminalSession(terminal.LaunchOptions{
		Cwd:                        ctl.Cwd,
		PreferredTerminal:          ctl.PreferredTerminal,
		DangerouslySkipPermissions: ctl.DangerouslySkipPermissions,
	})
	return ControlResult{Success: result.Success, Error: result.Error, Details: map[string]interface{}{"method": result.Method, "pid": result.PID}}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}
	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return len(s.allowedOrigins) == 0
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Host
	if host == "" {
		return false
	}
	if host == r.Host {
		return true
	}
	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}
	return false
}

// securityHeaders applies a fixed set of browser-hardening headers. The
// embedded GUI is the only first-party client; these headers keep it from
// being framed or having its WS origin loosened by a compromised
// dependency.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", strings.Join([]string{
			"default-src 'self'",
			"connect-src 'self' ws: wss:",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
			"object-src 'none'",
			"base-uri 'self'",
		}, "; "))
		next.ServeHTTP(w, r)
	})
}
