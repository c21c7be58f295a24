package assistantui

import (
	"time"

	"github.com/rustyterm/rustyterm/internal/ai"
	"github.com/rustyterm/rustyterm/internal/appevent"
)

// cardStatus tracks a suggestion's lifecycle once rendered as a command
// card, independent of the immutable Verdict it was classified with
// (spec.md §3: "Verdict is computed once at construction and is
// immutable thereafter").
type cardStatus int

const (
	cardPending cardStatus = iota
	cardExecuted
	cardRejected
)

// commandCard is a rendered command suggestion plus its confirm/reject
// interaction state, the UI-facing counterpart of appevent.Suggestion.
type commandCard struct {
	suggestion appevent.Suggestion
	altIndex   int // which of suggestion.Alternatives is currently shown, 0 = the primary Command
	status     cardStatus
	at         time.Time
}

// command returns the currently-selected command text: the primary
// suggestion, or the selected alternative (spec.md §4.4 Ctrl+A "cycles
// through alternative suggestions").
func (c *commandCard) command() string {
	if c.altIndex == 0 || c.altIndex > len(c.suggestion.Alternatives) {
		return c.suggestion.Command
	}
	return c.suggestion.Alternatives[c.altIndex-1]
}

// chatTurn is one rendered entry in a session's message log: either a
// plain turn (user/assistant text) or a command card.
type chatTurn struct {
	role ai.Role
	text string
	at   time.Time
	card *commandCard // non-nil only for assistant turns carrying a suggestion
}

// sessionView holds everything assistantui renders for one ai.SessionID,
// separate from ai.Session's own history so the UI can track
// presentation state (scroll offset, streaming snapshot, card statuses)
// the Manager has no business owning (spec.md §3: Session "mutated only
// by the session manager").
type sessionView struct {
	id           ai.SessionID
	turns        []chatTurn
	streaming    string // live-accumulating text for the in-flight response, mirrors ai.Token chunks
	lastCard     *commandCard
	scrollOffset int
}

func newSessionView(id ai.SessionID) *sessionView {
	return &sessionView{id: id}
}

func (v *sessionView) appendUser(text string) {
	v.turns = append(v.turns, chatTurn{role: ai.RoleUser, text: text, at: time.Now()})
}

func (v *sessionView) appendAssistant(text string, sugg *appevent.Suggestion) {
	turn := chatTurn{role: ai.RoleAssistant, text: text, at: time.Now()}
	if sugg != nil {
		card := &commandCard{suggestion: *sugg, at: time.Now()}
		turn.card = card
		v.lastCard = card
	}
	v.turns = append(v.turns, turn)
}
