package session

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shareflow/shareflow-go/types"
)

// fakeBlobStore records releases and can be told to fail specific refs.
type fakeBlobStore struct {
	mu       sync.Mutex
	released map[string]int
	failing  map[string]bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		released: make(map[string]int),
		failing:  make(map[string]bool),
	}
}

func (f *fakeBlobStore) Put(r io.Reader) (string, string, int64, error) {
	return "ref", "fingerprint", 0, nil
}

func (f *fakeBlobStore) Open(ref string) (io.ReadSeekCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBlobStore) Release(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[ref] {
		return errors.New("release failed")
	}
	f.released[ref]++
	return nil
}

func (f *fakeBlobStore) releaseCount(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released[ref]
}

func (f *fakeBlobStore) setFailing(ref string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[ref] = failing
}

func testFiles() []types.FileRecord {
	return []types.FileRecord{
		{Name: "a.pdf", Size: 100, MimeType: "application/pdf", ContentRef: "blob-a"},
	}
}

func TestCreateSetsExactExpiry(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(WithClock(func() time.Time { return created }))

	sess, err := store.Create(testFiles(), types.CreatorContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.State != types.StateActive {
		t.Errorf("Expected state active, got %s", sess.State)
	}
	if !sess.CreatedAt.Equal(created) {
		t.Errorf("Expected createdAt %s, got %s", created, sess.CreatedAt)
	}
	if want := created.Add(24 * time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("Expected expiresAt exactly createdAt+24h (%s), got %s", want, sess.ExpiresAt)
	}
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		t.Error("expiresAt must be strictly after createdAt")
	}
}

func TestCreateRejectsEmptyManifest(t *testing.T) {
	store := NewStore()

	_, err := store.Create(nil, types.CreatorContext{})
	if !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("Expected ErrInvalidManifest, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Rejected create must leave no store entry, have %d", store.Len())
	}
}

func TestCreatePreservesFileOrder(t *testing.T) {
	store := NewStore()
	files := []types.FileRecord{
		{Name: "z.txt", ContentRef: "ref-z"},
		{Name: "a.txt", ContentRef: "ref-a"},
		{Name: "m.txt", ContentRef: "ref-m"},
	}

	sess, err := store.Create(files, types.CreatorContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i, f := range sess.Files {
		if f.Name != files[i].Name {
			t.Errorf("File %d: expected %q, got %q", i, files[i].Name, f.Name)
		}
	}
}

func TestTokensAreDistinctAndResolve(t *testing.T) {
	store := NewStore()

	sess, err := store.Create(testFiles(), types.CreatorContext{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.OwnerToken == sess.PublicToken {
		t.Fatal("Owner and public tokens must be distinct")
	}

	owner, ownerRole, err := store.ResolveToken(sess.OwnerToken)
	if err != nil {
		t.Fatalf("ResolveToken(owner) failed: %v", err)
	}
	recipient, recipientRole, err := store.ResolveToken(sess.PublicToken)
	if err != nil {
		t.Fatalf("ResolveToken(public) failed: %v", err)
	}

	if owner.SessionId != sess.SessionId || recipient.SessionId != sess.SessionId {
		t.Error("Both tokens must resolve to the same session")
	}
	if ownerRole != types.RoleOwner {
		t.Errorf("Expected owner role, got %s", ownerRole)
	}
	if recipientRole != types.RoleRecipient {
		t.Errorf("Expected recipient role, got %s", recipientRole)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	store := NewStore()
	if _, _, err := store.ResolveToken("no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCancelIsAbsorbing(t *testing.T) {
	store := NewStore()
	sess, _ := store.Create(testFiles(), types.CreatorContext{})

	if err := store.Cancel(sess.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	got, _ := store.Get(sess.SessionId)
	if got.State != types.StateCancelled {
		t.Errorf("Expected cancelled, got %s", got.State)
	}

	// no transition exists out of a terminal state
	if err := store.Cancel(sess.SessionId); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("Second cancel: expected ErrAlreadyTerminal, got %v", err)
	}
	if err := store.Expire(sess.SessionId); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("Expire after cancel: expected ErrAlreadyTerminal, got %v", err)
	}
	got, _ = store.Get(sess.SessionId)
	if got.State != types.StateCancelled {
		t.Errorf("Terminal state changed to %s", got.State)
	}
}

func TestCancelExpireRaceHasOneWinner(t *testing.T) {
	for i := 0; i < 50; i++ {
		store := NewStore()
		sess, _ := store.Create(testFiles(), types.CreatorContext{})

		var wg sync.WaitGroup
		results := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0] = store.Cancel(sess.SessionId)
		}()
		go func() {
			defer wg.Done()
			results[1] = store.Expire(sess.SessionId)
		}()
		wg.Wait()

		wins := 0
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadyTerminal):
			default:
				t.Fatalf("Unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("Expected exactly one winning transition, got %d", wins)
		}

		got, _ := store.Get(sess.SessionId)
		if !got.State.Terminal() {
			t.Fatalf("Session not terminal after race: %s", got.State)
		}
	}
}

func TestTerminalTransitionReleasesBlobs(t *testing.T) {
	blobs := newFakeBlobStore()
	store := NewStore(WithBlobStore(blobs))
	sess, _ := store.Create(testFiles(), types.CreatorContext{})

	if err := store.Cancel(sess.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if n := blobs.releaseCount("blob-a"); n != 1 {
		t.Errorf("Expected one release of blob-a, got %d", n)
	}
}

func TestFailedReleaseDoesNotBlockTransitionAndRetries(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.setFailing("blob-a", true)
	store := NewStore(WithBlobStore(blobs))
	sess, _ := store.Create(testFiles(), types.CreatorContext{})

	// release fails but the session still goes terminal
	if err := store.Cancel(sess.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	got, _ := store.Get(sess.SessionId)
	if got.State != types.StateCancelled {
		t.Fatalf("Expected cancelled despite release failure, got %s", got.State)
	}
	if n := blobs.releaseCount("blob-a"); n != 0 {
		t.Fatalf("Release should have failed, count %d", n)
	}

	// next cycle succeeds and the pending entry drains
	blobs.setFailing("blob-a", false)
	store.RetryPendingReleases()
	if n := blobs.releaseCount("blob-a"); n != 1 {
		t.Errorf("Expected release after retry, got %d", n)
	}

	// retrying again must not double-release
	store.RetryPendingReleases()
	if n := blobs.releaseCount("blob-a"); n != 1 {
		t.Errorf("Retry after success released again: %d", n)
	}
}

func TestExpireDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(WithClock(func() time.Time { return now }))
	sess, _ := store.Create(testFiles(), types.CreatorContext{})

	// one second before the deadline nothing happens
	if expired := store.ExpireDue(now.Add(24*time.Hour - time.Second)); len(expired) != 0 {
		t.Fatalf("Expired too early: %v", expired)
	}
	// at the deadline the session expires
	expired := store.ExpireDue(now.Add(24 * time.Hour))
	if len(expired) != 1 || expired[0] != sess.SessionId {
		t.Fatalf("Expected [%s], got %v", sess.SessionId, expired)
	}
	got, _ := store.Get(sess.SessionId)
	if got.State != types.StateExpired {
		t.Errorf("Expected expired, got %s", got.State)
	}
	// idempotent
	if expired := store.ExpireDue(now.Add(25 * time.Hour)); len(expired) != 0 {
		t.Errorf("Second sweep expired again: %v", expired)
	}
}

func TestPurgeDropsTerminalRecordsAfterGrace(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewStore(WithClock(clock), WithRetentionGrace(time.Hour))
	sess, _ := store.Create(testFiles(), types.CreatorContext{})

	if err := store.Cancel(sess.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// inside the grace period the record survives
	if n := store.Purge(now.Add(30 * time.Minute)); n != 0 {
		t.Fatalf("Purged inside grace period: %d", n)
	}
	if _, err := store.Get(sess.SessionId); err != nil {
		t.Fatal("Record dropped inside grace period")
	}

	// past the grace period record and tokens disappear together
	if n := store.Purge(now.Add(2 * time.Hour)); n != 1 {
		t.Fatalf("Expected one purged session, got %d", n)
	}
	if _, err := store.Get(sess.SessionId); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after purge, got %v", err)
	}
	if _, _, err := store.ResolveToken(sess.PublicToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Public token still resolves after purge: %v", err)
	}
	if _, _, err := store.ResolveToken(sess.OwnerToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Owner token still resolves after purge: %v", err)
	}
}

func TestStoreHandsOutCopies(t *testing.T) {
	store := NewStore()
	sess, _ := store.Create(testFiles(), types.CreatorContext{})

	sess.Files[0].Name = "mutated.pdf"
	sess.State = types.StateExpired

	got, _ := store.Get(sess.SessionId)
	if got.Files[0].Name != "a.pdf" {
		t.Error("Caller mutation leaked into the store")
	}
	if got.State != types.StateActive {
		t.Error("Caller state mutation leaked into the store")
	}
}
