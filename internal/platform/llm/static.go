package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// StaticClient answers every request with a fixed reply or error. It backs
// tests and runs the server without a provider key in development.
type StaticClient struct {
	mu       sync.Mutex
	Reply    json.RawMessage
	Err      error
	Requests []Request
}

func (s *StaticClient) Complete(_ context.Context, req Request) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Reply, nil
}

func (s *StaticClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
