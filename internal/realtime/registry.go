package realtime

import (
	"hash/fnv"
	"sync"
)

const numShards = 16

type shard struct {
	mu    sync.RWMutex
	conns map[string]map[Channel]struct{}
}

// Registry maps a user ID to the set of live delivery channels for that
// user. A user may hold zero or many channels at once (multi-device).
// State is sharded by user ID so attach/detach for different users do not
// contend on one lock; no lock is ever held across I/O.
type Registry struct {
	shards [numShards]*shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{conns: make(map[string]map[Channel]struct{})}
	}
	return r
}

func (r *Registry) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%numShards]
}

// Attach registers a live channel under the given user. A second channel
// for the same user is appended to the set, never rejected.
func (r *Registry) Attach(userID string, ch Channel) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns[userID] == nil {
		s.conns[userID] = make(map[Channel]struct{})
	}
	s.conns[userID][ch] = struct{}{}
}

// Detach removes the channel from the user's set and drops the user entry
// once the set is empty. Detaching a channel that is already gone is a
// no-op; sockets can close out from under the registry during a failed
// send.
func (r *Registry) Detach(userID string, ch Channel) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.conns[userID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(s.conns, userID)
		}
	}
}

// ChannelsOf returns a snapshot of the user's live channels, empty if none.
// Callers send on the snapshot outside the registry lock.
func (r *Registry) ChannelsOf(userID string) []Channel {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.conns[userID]
	if !ok {
		return nil
	}
	channels := make([]Channel, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	return channels
}
