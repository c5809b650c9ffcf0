package session

import (
	"sync"
	"time"

	"github.com/shareflow/shareflow-go/blob"
	"github.com/shareflow/shareflow-go/tool"
	"github.com/shareflow/shareflow-go/types"
)

// Clock supplies the current time. Nil means time.Now. Injected so TTL
// behavior is testable without sleeping.
type Clock func() time.Time

// DefaultTTL is how long a session stays downloadable after creation.
const DefaultTTL = 24 * time.Hour

// DefaultRetentionGrace is how long a terminal session record survives
// before Purge drops it.
const DefaultRetentionGrace = time.Hour

type tokenEntry struct {
	sessionId string
	role      types.Role
}

// Store is the authoritative table of share sessions. It is the sole
// mutator of session state; everything it hands out is a copy.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*types.ShareSession
	tokens   map[string]tokenEntry
	// pendingRelease holds content refs whose blob release failed on the
	// terminal transition; the sweeper retries them each cycle.
	pendingRelease map[string][]string

	clock     Clock
	ttl       time.Duration
	retention time.Duration
	blobs     blob.Store
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(c Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// WithTTL overrides the session TTL.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithRetentionGrace overrides how long terminal records are retained.
func WithRetentionGrace(d time.Duration) StoreOption {
	return func(s *Store) { s.retention = d }
}

// WithBlobStore attaches the blob store whose content is released when
// sessions go terminal. Without it, release is a no-op.
func WithBlobStore(b blob.Store) StoreOption {
	return func(s *Store) { s.blobs = b }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions:       make(map[string]*types.ShareSession),
		tokens:         make(map[string]tokenEntry),
		pendingRelease: make(map[string][]string),
		clock:          time.Now,
		ttl:            DefaultTTL,
		retention:      DefaultRetentionGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Create registers a new session for the given manifest. The session
// and both token index entries become visible atomically. An empty
// manifest is rejected before anything is allocated.
func (s *Store) Create(files []types.FileRecord, creator types.CreatorContext) (types.ShareSession, error) {
	if len(files) == 0 {
		return types.ShareSession{}, ErrInvalidManifest
	}

	now := s.clock()
	sess := &types.ShareSession{
		Files:     append([]types.FileRecord(nil), files...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		State:     types.StateActive,
		Creator:   creator,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess.SessionId = s.uniqueSessionIDLocked()
	sess.OwnerToken = s.uniqueTokenLocked("")
	sess.PublicToken = s.uniqueTokenLocked(sess.OwnerToken)

	s.sessions[sess.SessionId] = sess
	s.tokens[sess.OwnerToken] = tokenEntry{sessionId: sess.SessionId, role: types.RoleOwner}
	s.tokens[sess.PublicToken] = tokenEntry{sessionId: sess.SessionId, role: types.RoleRecipient}

	return copySession(sess), nil
}

// uniqueSessionIDLocked generates a session id, regenerating on the
// (practically impossible) collision with an existing key.
func (s *Store) uniqueSessionIDLocked() string {
	for {
		id := tool.GenerateSessionID()
		if _, exists := s.sessions[id]; !exists {
			return id
		}
	}
}

// uniqueTokenLocked generates a token absent from the index and
// distinct from its sibling.
func (s *Store) uniqueTokenLocked(sibling string) string {
	for {
		t := tool.GenerateToken()
		if t == sibling {
			continue
		}
		if _, exists := s.tokens[t]; !exists {
			return t
		}
	}
}

// Get returns the session by id.
func (s *Store) Get(sessionId string) (types.ShareSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionId]
	if !ok {
		return types.ShareSession{}, ErrNotFound
	}
	return copySession(sess), nil
}

// ResolveToken maps a capability token to its session and role.
func (s *Store) ResolveToken(token string) (types.ShareSession, types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.tokens[token]
	if !ok {
		return types.ShareSession{}, "", ErrNotFound
	}
	sess, ok := s.sessions[entry.sessionId]
	if !ok {
		// token index entry outlived the session record; treat as gone
		return types.ShareSession{}, "", ErrNotFound
	}
	return copySession(sess), entry.role, nil
}

// Cancel transitions Active -> Cancelled. Exactly one of a racing
// cancel/expire pair wins; the loser gets ErrAlreadyTerminal.
func (s *Store) Cancel(sessionId string) error {
	return s.transition(sessionId, types.StateCancelled)
}

// Expire transitions Active -> Expired. Used by the sweeper only.
func (s *Store) Expire(sessionId string) error {
	return s.transition(sessionId, types.StateExpired)
}

func (s *Store) transition(sessionId string, to types.SessionState) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionId]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if sess.State != types.StateActive {
		s.mu.Unlock()
		return ErrAlreadyTerminal
	}
	sess.State = to
	sess.TerminalAt = s.clock()
	refs := contentRefs(sess.Files)
	s.mu.Unlock()

	// Blob release is best-effort and happens outside the lock; a
	// failure never un-does the state flip. Leftovers are retried by
	// the sweeper.
	s.releaseRefs(sessionId, refs)
	return nil
}

// releaseRefs releases blob content, recording failures for retry.
func (s *Store) releaseRefs(sessionId string, refs []string) {
	if s.blobs == nil || len(refs) == 0 {
		return
	}
	var failed []string
	for _, ref := range refs {
		if err := s.blobs.Release(ref); err != nil {
			tool.DefaultLogger.Warnf("[Store] Failed to release blob %s for session %s: %v", ref, sessionId, err)
			failed = append(failed, ref)
		}
	}
	s.mu.Lock()
	if len(failed) > 0 {
		s.pendingRelease[sessionId] = failed
	} else {
		delete(s.pendingRelease, sessionId)
	}
	s.mu.Unlock()
}

// RetryPendingReleases re-attempts blob releases that failed on a
// terminal transition. Called from the sweeper each cycle.
func (s *Store) RetryPendingReleases() {
	s.mu.RLock()
	pending := make(map[string][]string, len(s.pendingRelease))
	for id, refs := range s.pendingRelease {
		pending[id] = append([]string(nil), refs...)
	}
	s.mu.RUnlock()

	for id, refs := range pending {
		s.releaseRefs(id, refs)
	}
}

// ExpireDue flips every Active session whose deadline has passed and
// returns the ids that made the transition in this call. Racing
// cancels are tolerated; losers are simply skipped.
func (s *Store) ExpireDue(now time.Time) []string {
	s.mu.RLock()
	var due []string
	for id, sess := range s.sessions {
		if sess.State == types.StateActive && !sess.ExpiresAt.After(now) {
			due = append(due, id)
		}
	}
	s.mu.RUnlock()

	var expired []string
	for _, id := range due {
		switch err := s.Expire(id); err {
		case nil:
			expired = append(expired, id)
		case ErrAlreadyTerminal, ErrNotFound:
			// lost the race to a cancel or a purge; nothing to do
		}
	}
	return expired
}

// Purge drops terminal session records older than the retention grace
// period, along with their token index entries. Any still-pending blob
// releases get one last attempt before the bookkeeping goes away.
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	type victim struct {
		id   string
		refs []string
	}
	var victims []victim
	for id, sess := range s.sessions {
		if sess.State.Terminal() && !sess.TerminalAt.Add(s.retention).After(now) {
			victims = append(victims, victim{id: id, refs: s.pendingRelease[id]})
			delete(s.sessions, id)
			delete(s.tokens, sess.OwnerToken)
			delete(s.tokens, sess.PublicToken)
			delete(s.pendingRelease, id)
		}
	}
	s.mu.Unlock()

	for _, v := range victims {
		if s.blobs == nil {
			continue
		}
		for _, ref := range v.refs {
			if err := s.blobs.Release(ref); err != nil {
				tool.DefaultLogger.Warnf("[Store] Dropping unreleasable blob %s for purged session %s: %v", ref, v.id, err)
			}
		}
	}
	return len(victims)
}

// Len reports the number of live session records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func contentRefs(files []types.FileRecord) []string {
	refs := make([]string, 0, len(files))
	for _, f := range files {
		if f.ContentRef != "" {
			refs = append(refs, f.ContentRef)
		}
	}
	return refs
}

func copySession(sess *types.ShareSession) types.ShareSession {
	out := *sess
	out.Files = append([]types.FileRecord(nil), sess.Files...)
	return out
}
