package registry

import "sync"

// Notifier is implemented by the WS hub; the store calls it after a mutation
// commits so broadcasts only ever reflect already-durable state (§5).
type Notifier func(changed []*Session, removed []string)

// Store is the single-writer registry of live sessions. Every mutating
// operation takes the same lock and, on commit, invokes the caller-supplied
// notify callback while still holding it — the "registry task" from §5:
// broadcasts fire only after state commits under the same lock, so a reader
// can never observe a broadcast-worthy change before Get/GetAll would too.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	focused  string
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return ss.Clone(), true
}

func (s *Store) GetAll() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, ss := range s.sessions {
		out = append(out, ss.Clone())
	}
	return out
}

func (s *Store) Focused() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused, s.focused != ""
}

func (s *Store) SetFocused(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = id
}

// UpdateAndNotify stores the given session (keyed by SessionID) and invokes
// notify with the committed copy, all under the write lock.
func (s *Store) UpdateAndNotify(sess *Session, notify Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	committed := sess.Clone()
	s.sessions[sess.SessionID] = committed
	if notify != nil {
		notify([]*Session{committed.Clone()}, nil)
	}
}

// BatchUpdateAndNotify stores every session in sessions and invokes notify
// once with the full batch, all under one write lock acquisition, so a
// batch produces one coalesced broadcast rather than one per session.
func (s *Store) BatchUpdateAndNotify(sessions []*Session, notify Notifier) {
	if len(sessions) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	committed := make([]*Session, 0, len(sessions))
	for _, sess := range sessions {
		c := sess.Clone()
		s.sessions[sess.SessionID] = c
		committed = append(committed, c.Clone())
	}
	if notify != nil {
		notify(committed, nil)
	}
}

// BatchRemoveAndNotify deletes every id in ids and invokes notify once with
// the removed set.
func (s *Store) BatchRemoveAndNotify(ids []string, notify Notifier) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.sessions[id]; ok {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
		if s.focused == id {
			s.focused = ""
		}
	}
	if notify != nil && len(removed) > 0 {
		notify(nil, removed)
	}
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ss := range s.sessions {
		if !ss.IsEnded() {
			n++
		}
	}
	return n
}
