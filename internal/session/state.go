package session

import "sync"

// State is the process-wide mutable state shared by the stage and the
// moderator: the broadcaster slot, strike counters and the ban set.
//
// Every mutation happens with mu held. Components that also touch the
// registry take mu first; the registry never takes mu.
type State struct {
	mu          sync.Mutex
	broadcaster string
	strikes     map[string]int
	banned      map[string]struct{}
}

func NewState() *State {
	return &State{
		strikes: make(map[string]int),
		banned:  make(map[string]struct{}),
	}
}

// Broadcaster returns the live subject, if any.
func (s *State) Broadcaster() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broadcaster, s.broadcaster != ""
}

// Strikes returns the number of strikes recorded against subject.
func (s *State) Strikes(subject string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strikes[subject]
}

func (s *State) IsBanned(subject string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isBannedLocked(subject)
}

func (s *State) isBannedLocked(subject string) bool {
	_, ok := s.banned[subject]
	return ok
}
