// Package editlock holds the single-writer edit lock of every picture.
//
// A picture is Unlocked until the first successful Acquire and returns to
// Unlocked (its entry is removed) on release. Transitions are atomic on their
// own; callers that also decide what to broadcast from the outcome must run
// them inside the per-picture ordered lane of the ingress pipeline.
package editlock

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/picture-collab/internal/core/domain"
)

// Holder describes who holds a picture's edit lock.
type Holder struct {
	UserID    int64
	SessionID uuid.UUID
	User      domain.UserSummary
}

// Table maps picture ids to their current lock holder. An absent entry means unlocked.
type Table struct {
	mu      sync.Mutex
	holders map[int64]Holder
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{holders: make(map[int64]Holder)}
}

// Acquire moves the picture from Unlocked to LockedBy(h). It returns false and
// changes nothing if the picture is already locked, whoever holds it.
func (t *Table) Acquire(pictureID int64, h Holder) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, locked := t.holders[pictureID]; locked {
		return false
	}
	t.holders[pictureID] = h
	return true
}

// Release unlocks the picture if userID holds it.
func (t *Table) Release(pictureID, userID int64) (Holder, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, locked := t.holders[pictureID]
	if !locked || h.UserID != userID {
		return Holder{}, false
	}
	delete(t.holders, pictureID)
	return h, true
}

// ReleaseSession unlocks the picture if it was acquired through sessionID.
// The returned holder comes from the lock state, not from the caller.
//
// The lock is bound to the session, not the user: when a user has several
// sessions on the same picture, closing any session other than the one that
// took the lock leaves it held. Use Release to unlock by user.
func (t *Table) ReleaseSession(pictureID int64, sessionID uuid.UUID) (Holder, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, locked := t.holders[pictureID]
	if !locked || h.SessionID != sessionID {
		return Holder{}, false
	}
	delete(t.holders, pictureID)
	return h, true
}

// Holder returns the current holder of the picture, if any.
func (t *Table) Holder(pictureID int64) (Holder, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, locked := t.holders[pictureID]
	return h, locked
}

// IsHeldBy reports whether userID currently holds the picture's lock.
func (t *Table) IsHeldBy(pictureID, userID int64) bool {
	h, locked := t.Holder(pictureID)
	return locked && h.UserID == userID
}

// Len returns the number of locked pictures.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.holders)
}
