package storage

import (
	"context"

	"taskboard/domain"
)

// Persister is the entity-persistence collaborator behind the Store. The
// Store sets timestamps and ids; the persister only records what it is
// handed. Save commits the preceding mutations of one logical operation.
type Persister interface {
	LoadBoard(ctx context.Context, id string) (domain.Board, error)
	LoadBoards(ctx context.Context) ([]domain.Board, error)
	InsertBoard(ctx context.Context, b domain.Board) error
	UpdateBoard(ctx context.Context, b domain.Board) error
	DeleteBoard(ctx context.Context, id string) error
	InsertList(ctx context.Context, l domain.List) error
	UpdateList(ctx context.Context, l domain.List) error
	DeleteList(ctx context.Context, id string) error
	InsertCard(ctx context.Context, c domain.Card) error
	UpdateCard(ctx context.Context, c domain.Card) error
	DeleteCard(ctx context.Context, id string) error
	Save(ctx context.Context) error
}

// MemoryPersister keeps entities in process memory only. It backs tests
// and local development runs without external storage.
type MemoryPersister struct {
	boards map[string]domain.Board
	lists  map[string]domain.List
	cards  map[string]domain.Card
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{
		boards: make(map[string]domain.Board),
		lists:  make(map[string]domain.List),
		cards:  make(map[string]domain.Card),
	}
}

func (m *MemoryPersister) LoadBoard(ctx context.Context, id string) (domain.Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return domain.Board{}, domain.NotFoundError{Kind: "board", ID: id}
	}
	return m.assemble(b), nil
}

func (m *MemoryPersister) LoadBoards(ctx context.Context) ([]domain.Board, error) {
	boards := make([]domain.Board, 0, len(m.boards))
	for _, b := range m.boards {
		boards = append(boards, m.assemble(b))
	}
	return boards, nil
}

func (m *MemoryPersister) assemble(b domain.Board) domain.Board {
	for _, l := range m.lists {
		if l.BoardID != b.ID {
			continue
		}
		for _, c := range m.cards {
			if c.ListID == l.ID {
				l.Cards = append(l.Cards, c)
			}
		}
		b.Lists = append(b.Lists, l)
	}
	return b
}

func (m *MemoryPersister) InsertBoard(ctx context.Context, b domain.Board) error {
	m.boards[b.ID] = b
	return nil
}

func (m *MemoryPersister) UpdateBoard(ctx context.Context, b domain.Board) error {
	m.boards[b.ID] = b
	return nil
}

func (m *MemoryPersister) DeleteBoard(ctx context.Context, id string) error {
	delete(m.boards, id)
	return nil
}

func (m *MemoryPersister) InsertList(ctx context.Context, l domain.List) error {
	l.Cards = nil
	m.lists[l.ID] = l
	return nil
}

func (m *MemoryPersister) UpdateList(ctx context.Context, l domain.List) error {
	l.Cards = nil
	m.lists[l.ID] = l
	return nil
}

func (m *MemoryPersister) DeleteList(ctx context.Context, id string) error {
	delete(m.lists, id)
	return nil
}

func (m *MemoryPersister) InsertCard(ctx context.Context, c domain.Card) error {
	m.cards[c.ID] = c
	return nil
}

func (m *MemoryPersister) UpdateCard(ctx context.Context, c domain.Card) error {
	m.cards[c.ID] = c
	return nil
}

func (m *MemoryPersister) DeleteCard(ctx context.Context, id string) error {
	delete(m.cards, id)
	return nil
}

func (m *MemoryPersister) Save(ctx context.Context) error { return nil }
