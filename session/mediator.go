package session

import "github.com/shareflow/shareflow-go/types"

// Operation is something a token holder may attempt against a session.
type Operation string

const (
	OpViewMetadata Operation = "view_metadata"
	OpDownload     Operation = "download"
	OpCancel       Operation = "cancel"
)

// DenyReason classifies why an operation was refused.
type DenyReason string

const (
	DenyInvalidToken     DenyReason = "invalid_token"
	DenySessionTerminal  DenyReason = "session_terminal"
	DenyInsufficientRole DenyReason = "insufficient_role"
)

// Decision is the mediator's verdict. When Allowed, Role and Session
// are populated. TerminalState is only set for owner denials so the
// owner can see whether their session expired or was cancelled;
// recipients get no such detail (Message is the same either way, which
// keeps owner actions from leaking).
type Decision struct {
	Allowed       bool
	Role          types.Role
	Session       types.ShareSession
	Reason        DenyReason
	TerminalState types.SessionState
}

// Message is the user-facing denial text, safe to show any caller.
func (d Decision) Message() string {
	switch d.Reason {
	case DenyInvalidToken, DenySessionTerminal:
		return "Session not found or expired"
	case DenyInsufficientRole:
		return "This operation requires the owner link"
	default:
		return ""
	}
}

// Mediator is the single authorization choke-point between a presented
// token and the operations it permits. Decisions are pure functions of
// (session state, role, operation).
type Mediator struct {
	store *Store
}

// NewMediator wires the mediator to its session store.
func NewMediator(store *Store) *Mediator {
	return &Mediator{store: store}
}

// Authorize resolves the token and decides whether the operation is
// permitted right now.
func (m *Mediator) Authorize(token string, op Operation) Decision {
	sess, role, err := m.store.ResolveToken(token)
	if err != nil {
		return Decision{Reason: DenyInvalidToken}
	}

	if sess.State != types.StateActive {
		d := Decision{Reason: DenySessionTerminal, Role: role}
		if role == types.RoleOwner {
			d.TerminalState = sess.State
		}
		return d
	}

	switch op {
	case OpViewMetadata, OpDownload:
		// both roles, while active
	case OpCancel:
		if role != types.RoleOwner {
			return Decision{Reason: DenyInsufficientRole, Role: role}
		}
	default:
		return Decision{Reason: DenyInsufficientRole, Role: role}
	}

	if role != types.RoleOwner {
		// creator context is owner-only metadata
		sess.Creator = types.CreatorContext{}
	}
	return Decision{Allowed: true, Role: role, Session: sess}
}
