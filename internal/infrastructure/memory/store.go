package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/skillvouch/skillvouch/internal/domain/entity"
	"github.com/skillvouch/skillvouch/internal/domain/model"
	"github.com/skillvouch/skillvouch/internal/domain/repository"
)

// Store is an in-memory UserStore. Records are deep-copied on the way in and
// out so callers can never mutate stored state through a shared slice.
// It backs unit tests and the STORE_BACKEND=memory configuration.
type Store struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

var _ repository.UserStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{users: make(map[string]*entity.User)}
}

func (s *Store) Get(_ context.Context, id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) Insert(_ context.Context, id string, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = cloneUser(u)
	return nil
}

func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) Items(_ context.Context) ([]entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneUser(s.users[id]))
	}
	return out, nil
}

// cloneUser round-trips through JSON, the same self-describing encoding the
// sqlite backend persists, so both backends expose identical value semantics.
func cloneUser(u *entity.User) *entity.User {
	b, err := json.Marshal(u)
	if err != nil {
		panic(err)
	}
	var out entity.User
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}
