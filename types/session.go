package types

import "time"

// SessionState is the lifecycle state of a share session.
// Active is the only initial state; Expired and Cancelled are absorbing.
type SessionState string

const (
	StateActive    SessionState = "active"
	StateExpired   SessionState = "expired"
	StateCancelled SessionState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateExpired || s == StateCancelled
}

// Role is what a presented capability token grants. An explicit type
// rather than a bool so future roles don't renegotiate every call site.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleRecipient Role = "recipient"
)

// FileRecord is one uploaded artifact within a session. Content is
// never held here, only a reference into the blob store. Write-once.
type FileRecord struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	// MimeType is "unknown/unknown" when detection failed.
	MimeType   string `json:"mimeType"`
	ContentRef string `json:"-"`
	// Fingerprint is a content-derived SHA-256 hex digest used for
	// display and dedup. It is not an integrity guarantee.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// CreatorContext is owner-visible metadata about who created a session.
type CreatorContext struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// ShareSession represents one sharing transaction: one file manifest,
// one owner capability, one recipient capability, one expiry deadline.
type ShareSession struct {
	SessionId   string
	OwnerToken  string
	PublicToken string
	// Files keeps insertion order; that order is the display order.
	Files     []FileRecord
	CreatedAt time.Time
	ExpiresAt time.Time
	State     SessionState
	Creator   CreatorContext
	// TerminalAt is set when State leaves Active, used for retention GC.
	TerminalAt time.Time
}
