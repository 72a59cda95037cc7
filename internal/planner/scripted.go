package planner

import (
	"context"
	"fmt"
	"sync"
)

// TurnFunc scripts a single turn.
type TurnFunc func(ctx context.Context, req *TurnRequest) (*TurnResult, error)

// Scripted replays a fixed sequence of turns. It backs tests and the demo
// mode of the server; production deployments wire a real planner instead.
type Scripted struct {
	mu    sync.Mutex
	turns []TurnFunc
	next  int
}

// NewScripted builds a planner that executes the given turns in order.
func NewScripted(turns ...TurnFunc) *Scripted {
	return &Scripted{turns: turns}
}

// Turn runs the next scripted turn. Running past the script is an error:
// it means the test or demo sent more messages than it scripted.
func (s *Scripted) Turn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	s.mu.Lock()
	if s.next >= len(s.turns) {
		s.mu.Unlock()
		return nil, fmt.Errorf("scripted planner exhausted after %d turn(s)", len(s.turns))
	}
	fn := s.turns[s.next]
	s.next++
	s.mu.Unlock()

	return fn(ctx, req)
}

// Remaining reports how many scripted turns have not run yet.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns) - s.next
}
