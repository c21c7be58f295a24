package security

import (
	"fmt"
	"log"
	"sync"

	"github.com/rustyterm/rustyterm/internal/appevent"
)

// DecisionKind is the outcome of gating a command once its verdict is
// known (spec.md §4.3: Decision ∈ {Execute, RequireConfirmation{reason},
// Deny{reason}}).
type DecisionKind int

const (
	DecisionExecute DecisionKind = iota
	DecisionRequireConfirmation
	DecisionDeny
)

// Decision is the result of Gate.
type Decision struct {
	Kind   DecisionKind
	Reason string
}

// Executor is the single entrypoint a Gate may call to put bytes on the
// wire of the shell. internal/host.Host implements this.
type Executor interface {
	ExecuteVisible(command string) error
}

// Gate is the sole path by which an AI-suggested command may reach the
// shell. Evaluate and Decide below are pure; TryExecuteSuggested and
// ConfirmSuggested are the only methods that touch the Executor.
type Gate struct {
	mu     sync.RWMutex
	policy *Policy
	exec   Executor
}

// NewGate builds a Gate around a policy and the terminal host's execute
// entrypoint.
func NewGate(policy *Policy, exec Executor) *Gate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Gate{policy: policy, exec: exec}
}

// SetPolicy atomically swaps the active policy; used by the hot-reload
// watcher in config.go.
func (g *Gate) SetPolicy(policy *Policy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policy = policy
}

// Evaluate classifies command. Pure: depends only on command and the
// current policy snapshot.
func (g *Gate) Evaluate(command string) (appevent.Verdict, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy.Evaluate(command)
}

// Decide maps a (verdict, reason) pair to a Decision. Pure.
func Decide(verdict appevent.Verdict, reason string) Decision {
	switch verdict {
	case appevent.VerdictAllow:
		return Decision{Kind: DecisionExecute}
	case appevent.VerdictDeny:
		return Decision{Kind: DecisionDeny, Reason: reason}
	default:
		return Decision{Kind: DecisionRequireConfirmation, Reason: reason}
	}
}

// TryExecuteSuggested evaluates then gates command; on Execute it writes to
// the PTY via the Executor, on RequireConfirmation it does nothing and
// returns nil (a later direct confirmation re-enters through
// ConfirmSuggested), on Deny it logs the denial and returns nil — gate
// denials never propagate as Go errors per spec.md §7. No other
// code path in RustyTerm may call Executor.ExecuteVisible with
// AI-originated text.
func (g *Gate) TryExecuteSuggested(command string) (Decision, error) {
	verdict, reason := g.Evaluate(command)
	decision := Decide(verdict, reason)

	switch decision.Kind {
	case DecisionExecute:
		if err := g.exec.ExecuteVisible(command); err != nil {
			return decision, fmt.Errorf("security: execute suggested command: %w", err)
		}
	case DecisionDeny:
		log.Printf("RUSTYTERM: security gate denied command %q: %s", command, decision.Reason)
	case DecisionRequireConfirmation:
		log.Printf("RUSTYTERM: security gate holding command %q for confirmation: %s", command, decision.Reason)
	}
	return decision, nil
}

// ConfirmSuggested is the "direct path" TryExecuteSuggested's doc comment
// refers to: the re-entry taken when the user has explicitly pressed the
// confirm key on a command card. A command already held for
// RequireConfirmation executes here instead of holding a second time;
// Deny still never writes, since no user action may override it. This and
// TryExecuteSuggested are the only two methods permitted to call
// Executor.ExecuteVisible with AI-originated text.
func (g *Gate) ConfirmSuggested(command string) (Decision, error) {
	verdict, reason := g.Evaluate(command)
	if verdict == appevent.VerdictDeny {
		decision := Decision{Kind: DecisionDeny, Reason: reason}
		log.Printf("RUSTYTERM: security gate denied confirmed command %q: %s", command, reason)
		return decision, nil
	}

	decision := Decision{Kind: DecisionExecute}
	if err := g.exec.ExecuteVisible(command); err != nil {
		return decision, fmt.Errorf("security: execute confirmed command: %w", err)
	}
	return decision, nil
}
