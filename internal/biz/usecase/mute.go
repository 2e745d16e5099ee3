package usecase

import (
	"sync/atomic"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
)

// MuteStore holds the current mute snapshot and the relay's own user id.
// It has a single writer (the mute sync loop) and any number of readers;
// snapshots are swapped atomically so readers never see a partial set.
type MuteStore struct {
	snapshot atomic.Pointer[domain.MuteSnapshot]
	selfID   atomic.Int64
}

// NewMuteStore creates a store holding an empty snapshot
func NewMuteStore() *MuteStore {
	s := &MuteStore{}
	s.snapshot.Store(domain.EmptyMuteSnapshot())
	return s
}

// Current returns the latest complete snapshot
func (s *MuteStore) Current() *domain.MuteSnapshot {
	return s.snapshot.Load()
}

// Replace publishes a new snapshot
func (s *MuteStore) Replace(snap *domain.MuteSnapshot) {
	if snap == nil {
		snap = domain.EmptyMuteSnapshot()
	}
	s.snapshot.Store(snap)
}

// SelfID returns the relay account's user id, zero until resolved
func (s *MuteStore) SelfID() int64 {
	return s.selfID.Load()
}

// SetSelfID records the relay account's user id
func (s *MuteStore) SetSelfID(id int64) {
	s.selfID.Store(id)
}
