package domain

import (
	"sort"
	"strings"
	"time"
)

// TopicKey identifies a topic within a stream; Topic is always lowercase
type TopicKey struct {
	StreamID int64
	Topic    string
}

// NewTopicKey builds a key with the case-folded topic name
func NewTopicKey(streamID int64, topic string) TopicKey {
	return TopicKey{StreamID: streamID, Topic: strings.ToLower(topic)}
}

// MuteSnapshot is an immutable view of the account's mute settings.
// A snapshot is built once and replaced wholesale, never modified.
type MuteSnapshot struct {
	streams   map[int64]struct{}
	topics    map[TopicKey]struct{}
	fetchedAt time.Time
}

// NewMuteSnapshot builds a snapshot from the muted stream ids and topic keys
func NewMuteSnapshot(streamIDs []int64, topics []TopicKey, fetchedAt time.Time) *MuteSnapshot {
	s := &MuteSnapshot{
		streams:   make(map[int64]struct{}, len(streamIDs)),
		topics:    make(map[TopicKey]struct{}, len(topics)),
		fetchedAt: fetchedAt,
	}
	for _, id := range streamIDs {
		s.streams[id] = struct{}{}
	}
	for _, k := range topics {
		s.topics[NewTopicKey(k.StreamID, k.Topic)] = struct{}{}
	}
	return s
}

// EmptyMuteSnapshot returns a snapshot with nothing muted
func EmptyMuteSnapshot() *MuteSnapshot {
	return NewMuteSnapshot(nil, nil, time.Time{})
}

// IsStreamMuted checks the muted stream set
func (s *MuteSnapshot) IsStreamMuted(streamID int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.streams[streamID]
	return ok
}

// IsTopicMuted checks the muted topic set (case-insensitive topic)
func (s *MuteSnapshot) IsTopicMuted(streamID int64, topic string) bool {
	if s == nil {
		return false
	}
	_, ok := s.topics[NewTopicKey(streamID, topic)]
	return ok
}

// StreamIDs returns the muted stream ids in ascending order
func (s *MuteSnapshot) StreamIDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// FetchedAt is when the snapshot was fetched; zero for the initial empty snapshot
func (s *MuteSnapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}
