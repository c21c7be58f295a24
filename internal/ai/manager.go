package ai

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rustyterm/rustyterm/internal/appevent"
)

// Verdicter classifies a candidate command, satisfied by both
// *security.Gate and *security.Policy. Decoupling the AI manager from the
// security package's concrete type mirrors the teacher's Summarizer
// interface (internal/nuggets/summarizer.go).
type Verdicter interface {
	Evaluate(command string) (appevent.Verdict, string)
}

// Manager owns every live Session and every in-flight streaming request
// (spec.md §4.2). The session table is exclusively owned here; all
// external access goes through Manager's methods (spec.md §5).
type Manager struct {
	mu        sync.Mutex
	sessions  map[SessionID]*Session
	order     []SessionID
	nextID    SessionID
	currentID SessionID

	model     string
	client    StreamClient
	verdicter Verdicter
	tokens    TokenSink
	events    appevent.Sink
}

// NewManager constructs a Manager. tokens and events are the bounded
// token sink and the shared AppEvent sink (spec.md §4.2 "new(token_sink,
// event_sink, model_id)").
func NewManager(tokens TokenSink, events appevent.Sink, model string, client StreamClient, verdicter Verdicter) *Manager {
	return &Manager{
		sessions:  map[SessionID]*Session{},
		model:     model,
		client:    client,
		verdicter: verdicter,
		tokens:    tokens,
		events:    events,
	}
}

// NewSession allocates a fresh session and makes it current.
func (m *Manager) NewSession() SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.sessions[id] = newSession(id)
	m.order = append(m.order, id)
	m.currentID = id
	return id
}

// SwitchSession makes id the current session.
func (m *Manager) SwitchSession(id SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return &ErrSessionNotFound{ID: id}
	}
	m.currentID = id
	return nil
}

// CloseSession cancels any in-flight request for id and drops the
// session. Already-emitted chunks for id must be discarded by consumers
// checking session validity at receipt (spec.md §5 cancellation).
func (m *Manager) CloseSession(id SessionID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return &ErrSessionNotFound{ID: id}
	}
	delete(m.sessions, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.currentID == id {
		if len(m.order) > 0 {
			m.currentID = m.order[len(m.order)-1]
		} else {
			m.currentID = 0
		}
	}
	m.mu.Unlock()

	sess.mu.Lock()
	cancel := sess.cancel
	sess.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// CurrentSessionID returns the active session, or 0 if none exists.
func (m *Manager) CurrentSessionID() SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// SessionIDs returns all live session IDs in creation order, for the
// assistant UI's tab bar.
func (m *Manager) SessionIDs() []SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionID, len(m.order))
	copy(out, m.order)
	return out
}

// HasSession reports whether id still names a live session. The assistant
// UI calls this to discard tokens from a stream whose session was closed
// out from under it (spec.md §5 Cancellation: already-emitted chunks must
// be discarded by checking session validity at receipt).
func (m *Manager) HasSession(id SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

func (m *Manager) session(id SessionID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, &ErrSessionNotFound{ID: id}
	}
	return sess, nil
}

// SendMessage appends the user turn, builds the prompt, and launches an
// asynchronous streaming request, returning immediately (spec.md §4.2).
// A second call for the same session while one is already in flight is
// rejected rather than queued (spec.md §9 open question, resolved in
// DESIGN.md).
func (m *Manager) SendMessage(id SessionID, userText string, snap ContextSnapshot) error {
	sess, err := m.session(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.streaming {
		sess.mu.Unlock()
		return &ErrSessionBusy{ID: id}
	}
	sess.streaming = true
	sess.streamingBuf.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	assembled := BuildUserTurn(userText, snap)
	if len(sess.history) == 0 {
		sess.history = append(sess.history, Turn{Role: RoleSystem, Content: SystemPrompt(), At: time.Now()})
	}
	sess.history = append(sess.history, Turn{Role: RoleUser, Content: assembled, At: time.Now()})
	turns := make([]Turn, len(sess.history))
	copy(turns, sess.history)
	sess.mu.Unlock()

	go m.runStream(ctx, sess, turns)
	return nil
}

// AppendChunk appends text to session id's current response buffer. This
// is the Manager's single mutation point for streaming text (spec.md
// §4.2 "called by the UI as chunks arrive"); the Manager's own streaming
// task is the caller in this implementation, keeping the buffer
// authoritative without a second accumulation racing it.
func (m *Manager) AppendChunk(id SessionID, text string) error {
	sess, err := m.session(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.streamingBuf.WriteString(text)
	sess.mu.Unlock()
	return nil
}

// FinalizeResponse closes the assistant turn, stores it in history, and
// clears the current-response buffer (spec.md §4.2).
func (m *Manager) FinalizeResponse(id SessionID, fullText string) error {
	sess, err := m.session(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.history = append(sess.history, Turn{Role: RoleAssistant, Content: fullText, At: time.Now()})
	sess.streamingBuf.Reset()
	sess.streaming = false
	sess.cancel = nil
	sess.mu.Unlock()
	return nil
}

// GetLastSuggestion returns the most recent suggestion recorded for id.
func (m *Manager) GetLastSuggestion(id SessionID) (appevent.Suggestion, bool, error) {
	sess, err := m.session(id)
	if err != nil {
		return appevent.Suggestion{}, false, err
	}
	sugg, ok := sess.LastSuggestion()
	return sugg, ok, nil
}

// ExecuteSuggestion emits an ExecuteAiCommand AppEvent carrying the last
// suggestion for id, if any (spec.md §4.2). The event's consumer (the
// security gate, wired by the router) is the only thing permitted to act
// on it.
func (m *Manager) ExecuteSuggestion(id SessionID) error {
	sugg, ok, err := m.GetLastSuggestion(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	m.emit(appevent.Event{
		Kind:       appevent.KindExecuteAiCommand,
		At:         time.Now(),
		SessionID:  int64(id),
		Suggestion: sugg,
	})
	return nil
}

func (m *Manager) emit(ev appevent.Event) {
	select {
	case m.events <- ev:
	default:
		log.Printf("RUSTYTERM: ai: AppEvent channel full, dropping %v", ev.Kind)
	}
}

func (m *Manager) sendToken(tok Token) {
	select {
	case m.tokens <- tok:
	default:
		log.Printf("RUSTYTERM: ai: token sink full, dropping kind=%v session=%d", tok.Kind, tok.SessionID)
	}
}

// runStream drives one streaming request to completion, translating
// StreamEvents into token-sink traffic, session mutations, and
// AppEvents, per the ordering guarantees of spec.md §5: every suggestion
// for a session is emitted before that session's End.
func (m *Manager) runStream(ctx context.Context, sess *Session, turns []Turn) {
	id := sess.ID

	ch, err := m.client.Stream(ctx, m.model, SystemPrompt(), turns)
	if err != nil {
		m.streamFailed(id, err)
		return
	}

	acc := newToolCallAccumulator()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Kind {
			case StreamEventTextDelta:
				m.AppendChunk(id, ev.TextDelta)
				m.sendToken(Token{Kind: TokenChunk, SessionID: id, Text: ev.TextDelta})
			case StreamEventToolCallDelta:
				acc.feed(ev)
			case StreamEventError:
				m.streamFailed(id, ev.Err)
				return
			case StreamEventFinish:
				m.finishStream(id, sess, acc)
				return
			}
		}
	}
}

func (m *Manager) finishStream(id SessionID, sess *Session, acc *toolCallAccumulator) {
	calls, parseErrs := acc.finish()
	for _, pe := range parseErrs {
		log.Printf("RUSTYTERM: ai: %v", pe)
	}

	if len(calls) == 0 {
		if args, ok := legacyFallback(sess.CurrentResponse()); ok {
			calls = append(calls, parsedToolCall{name: "suggest_command", args: args})
		}
	}

	for _, call := range calls {
		toolCallID := call.id
		if toolCallID == "" {
			// The legacy text fallback synthesizes a suggestion with no
			// real tool-call id; mint one so command cards and execute
			// events still have a stable correlation key.
			toolCallID = uuid.NewString()
		}
		verdict, reason := m.verdicter.Evaluate(call.args.Command)
		sugg := appevent.Suggestion{
			SessionID:     int64(id),
			ToolCallID:    toolCallID,
			Command:       call.args.Command,
			Explanation:   call.args.Explanation,
			Alternatives:  call.args.Alternatives,
			Verdict:       verdict,
			VerdictReason: reason,
		}
		m.recordSuggestion(id, sugg)
		m.emit(appevent.Event{
			Kind:       appevent.KindAiCommandSuggestion,
			At:         time.Now(),
			SessionID:  int64(id),
			Suggestion: sugg,
		})
	}

	m.FinalizeResponse(id, sess.CurrentResponse())
	m.sendToken(Token{Kind: TokenEnd, SessionID: id})
}

func (m *Manager) recordSuggestion(id SessionID, sugg appevent.Suggestion) {
	sess, err := m.session(id)
	if err != nil {
		return
	}
	sess.mu.Lock()
	s := sugg
	sess.lastSuggestion = &s
	sess.mu.Unlock()
}

func (m *Manager) streamFailed(id SessionID, err error) {
	log.Printf("RUSTYTERM: ai: session %d stream error: %v", id, err)
	m.emit(appevent.Event{
		Kind:      appevent.KindAiStreamError,
		At:        time.Now(),
		SessionID: int64(id),
		Message:   err.Error(),
	})
	sess, sessErr := m.session(id)
	if sessErr == nil {
		sess.mu.Lock()
		sess.streaming = false
		sess.cancel = nil
		sess.mu.Unlock()
	}
	m.sendToken(Token{Kind: TokenEnd, SessionID: id})
}
