// Package memory provides a process-local token store.
package memory

import (
	"context"
	"sync"

	"github.com/niksmo/shopfront/internal/core/port"
)

var _ port.TokenStore = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	token string
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *Store) Save(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.Save(ctx, "")
}
