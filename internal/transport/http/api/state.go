package apihttp

import (
	"sync"

	"sigrank/internal/pipeline"
)

// State holds the result of the last successful scheduled run.
type State struct {
	mu  sync.RWMutex
	res pipeline.Result
	ok  bool
}

func NewState() *State { return &State{} }

func (s *State) Set(res pipeline.Result) {
	s.mu.Lock()
	s.res = res
	s.ok = true
	s.mu.Unlock()
}

func (s *State) Get() (pipeline.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.res, s.ok
}
