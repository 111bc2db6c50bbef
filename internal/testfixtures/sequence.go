package testfixtures

import "sync"

// Sequence yields consecutive int64 identifiers.
type Sequence struct {
	mu   sync.Mutex
	next int64
}

// NewSequence returns a sequence whose first value is start.
func NewSequence(start int64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next identifier.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

// NextFunc exposes Next for dependency injection.
func (s *Sequence) NextFunc() func() int64 {
	return s.Next
}

// Reset makes start the next value returned.
func (s *Sequence) Reset(start int64) {
	s.mu.Lock()
	s.next = start
	s.mu.Unlock()
}
