package store

// SetAgentStatus records the custom status of an agent.
func (s *Store) SetAgentStatus(email, status string) {
	s.mu.Lock()
	s.statuses[email] = status
	s.mu.Unlock()
	s.emit(Change{Kind: ChangeAgentStatus, UUID: email})
}

// AgentStatus returns the last status recorded for email.
func (s *Store) AgentStatus(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[email]
	return st, ok
}

// AgentStatuses returns a copy of every recorded agent status.
func (s *Store) AgentStatuses() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}
