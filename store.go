package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
	ErrEmptyQuiz    = errors.New("quiz has no questions")
)

// GameStore persists one GameState document per room. Each room has a
// single writer (its session actor), so implementations only need to be
// safe across rooms, not within one.
type GameStore interface {
	Create(ctx context.Context, id string, questions []Question) (*GameState, error)
	Load(ctx context.Context, id string) (*GameState, error)
	Save(ctx context.Context, st *GameState) error
	Delete(ctx context.Context, id string) error
}

// memoryStore keeps serialized documents in a map. Values are stored as
// JSON so that, like any external store, a loaded state never aliases
// what is persisted.
type memoryStore struct {
	mu    sync.RWMutex
	games map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		games: make(map[string][]byte),
	}
}

func (m *memoryStore) Create(_ context.Context, id string, questions []Question) (*GameState, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuiz
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.games[id]; exists {
		return nil, ErrGameExists
	}

	st := newGameState(id, questions)

	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	m.games[id] = data

	return st, nil
}

func (m *memoryStore) Load(_ context.Context, id string) (*GameState, error) {
	m.mu.RLock()
	data, exists := m.games[id]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrGameNotFound
	}

	st := &GameState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}

	return st, nil
}

func (m *memoryStore) Save(_ context.Context, st *GameState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.games[st.ID] = data
	m.mu.Unlock()

	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.games, id)
	m.mu.Unlock()

	return nil
}
