package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// Hub is the in-process sink: dashboards subscribe per organization and
// receive recent facts plus live updates. Slow subscribers are skipped.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []Fact
	subs   map[uint64]chan Fact
	nextID uint64
}

type Subscription struct {
	hub   *Hub
	orgID string
	id    uint64
	ch    chan Fact
	once  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(_ context.Context, fact Fact) {
	if h == nil {
		return
	}
	orgID := strings.TrimSpace(fact.OrgID)
	if orgID == "" {
		return
	}
	st := h.stream(orgID)

	st.mu.Lock()
	st.buffer = append(st.buffer, fact)
	if len(st.buffer) > h.bufferSize {
		st.buffer = st.buffer[len(st.buffer)-h.bufferSize:]
	}
	subs := make([]chan Fact, 0, len(st.subs))
	for _, ch := range st.subs {
		subs = append(subs, ch)
	}
	st.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- fact:
		default:
		}
	}
}

// stream returns the per-org stream, creating it on first use so facts
// published before anyone subscribes still land in the replay buffer.
func (h *Hub) stream(orgID string) *stream {
	h.mu.RLock()
	st := h.streams[orgID]
	h.mu.RUnlock()
	if st != nil {
		return st
	}

	h.mu.Lock()
	st = h.streams[orgID]
	if st == nil {
		st = &stream{subs: make(map[uint64]chan Fact)}
		h.streams[orgID] = st
	}
	h.mu.Unlock()
	return st
}

func (h *Hub) Subscribe(orgID string) (*Subscription, []Fact, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, nil, errors.New("org_required")
	}

	st := h.stream(orgID)

	st.mu.Lock()
	id := st.nextID
	st.nextID++
	ch := make(chan Fact, h.subscriberBuffer)
	st.subs[id] = ch
	replay := make([]Fact, len(st.buffer))
	copy(replay, st.buffer)
	st.mu.Unlock()

	return &Subscription{hub: h, orgID: orgID, id: id, ch: ch}, replay, nil
}

func (s *Subscription) Events() <-chan Fact {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.RLock()
		st := s.hub.streams[s.orgID]
		s.hub.mu.RUnlock()
		if st == nil {
			return
		}
		st.mu.Lock()
		delete(st.subs, s.id)
		st.mu.Unlock()
		close(s.ch)
	})
}
