package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/domain"
)

// CardParams carries the mutable card attributes shared by create and
// update operations.
type CardParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    string
	Status      string
}

// Store is the authoritative collection of boards, lists and cards.
//
// Entities live in flat tables keyed by id with foreign-key back
// references (list -> board, card -> list). A single mutex serializes
// mutations so a move is never observed half-applied; reads assemble
// snapshots with lists and cards sorted ascending by position.
type Store struct {
	mu        sync.RWMutex
	boards    map[string]*domain.Board
	lists     map[string]*domain.List
	cards     map[string]*domain.Card
	persister Persister
	now       func() time.Time
}

// New creates a Store backed by the given persister and populates the
// in-memory tables from it.
func New(ctx context.Context, p Persister) (*Store, error) {
	s := &Store{
		boards:    make(map[string]*domain.Board),
		lists:     make(map[string]*domain.List),
		cards:     make(map[string]*domain.Card),
		persister: p,
		now:       time.Now,
	}
	boards, err := p.LoadBoards(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range boards {
		board := b
		lists := board.Lists
		board.Lists = nil
		s.boards[board.ID] = &board
		for _, l := range lists {
			list := l
			cards := list.Cards
			list.Cards = nil
			s.lists[list.ID] = &list
			for _, c := range cards {
				card := c
				s.cards[card.ID] = &card
			}
		}
	}
	return s, nil
}

// CreateBoard creates a board with an empty list sequence.
func (s *Store) CreateBoard(ctx context.Context, title, description string) (domain.Board, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Board{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	board := domain.Board{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.persister.InsertBoard(ctx, board); err != nil {
		return domain.Board{}, err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.Board{}, err
	}
	stored := board
	s.boards[board.ID] = &stored
	board.Lists = []domain.List{}
	return board, nil
}

// UpdateBoard replaces the board's title and description and refreshes its
// UpdatedAt timestamp.
func (s *Store) UpdateBoard(ctx context.Context, id, title, description string) (domain.Board, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Board{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.boards[id]
	if !ok {
		return domain.Board{}, domain.NotFoundError{Kind: "board", ID: id}
	}
	updated := *row
	updated.Title = title
	updated.Description = description
	updated.UpdatedAt = s.now().UTC()
	if err := s.persister.UpdateBoard(ctx, updated); err != nil {
		return domain.Board{}, err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.Board{}, err
	}
	*row = updated
	return s.assembleBoard(row), nil
}

// DeleteBoard removes the board and cascades to every list and card it
// owns.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[id]; !ok {
		return domain.NotFoundError{Kind: "board", ID: id}
	}
	var listIDs, cardIDs []string
	for _, l := range s.lists {
		if l.BoardID != id {
			continue
		}
		listIDs = append(listIDs, l.ID)
		for _, c := range s.cards {
			if c.ListID == l.ID {
				cardIDs = append(cardIDs, c.ID)
			}
		}
	}
	for _, cid := range cardIDs {
		if err := s.persister.DeleteCard(ctx, cid); err != nil {
			return err
		}
	}
	for _, lid := range listIDs {
		if err := s.persister.DeleteList(ctx, lid); err != nil {
			return err
		}
	}
	if err := s.persister.DeleteBoard(ctx, id); err != nil {
		return err
	}
	if err := s.persister.Save(ctx); err != nil {
		return err
	}
	for _, cid := range cardIDs {
		delete(s.cards, cid)
	}
	for _, lid := range listIDs {
		delete(s.lists, lid)
	}
	delete(s.boards, id)
	return nil
}

// GetBoard returns the board with lists sorted ascending by position, each
// with its cards sorted ascending by position.
func (s *Store) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.boards[id]
	if !ok {
		return domain.Board{}, domain.NotFoundError{Kind: "board", ID: id}
	}
	return s.assembleBoard(row), nil
}

// ListBoards returns every board, fully assembled and sorted the same way
// GetBoard sorts.
func (s *Store) ListBoards(ctx context.Context) ([]domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boards := make([]domain.Board, 0, len(s.boards))
	for _, row := range s.boards {
		boards = append(boards, s.assembleBoard(row))
	}
	sortBoards(boards)
	return boards, nil
}

// CreateList creates a list under the given board at the requested
// position.
func (s *Store) CreateList(ctx context.Context, title, boardID string, position int) (domain.List, error) {
	if strings.TrimSpace(title) == "" {
		return domain.List{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.boards[boardID]; !ok {
		return domain.List{}, domain.NotFoundError{Kind: "board", ID: boardID}
	}
	now := s.now().UTC()
	list := domain.List{
		ID:        uuid.NewString(),
		Title:     title,
		Position:  position,
		BoardID:   boardID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.persister.InsertList(ctx, list); err != nil {
		return domain.List{}, err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.List{}, err
	}
	stored := list
	s.lists[list.ID] = &stored
	list.Cards = []domain.Card{}
	return list, nil
}

// UpdateList replaces the list's title and position.
func (s *Store) UpdateList(ctx context.Context, id, title string, position int) (domain.List, error) {
	if strings.TrimSpace(title) == "" {
		return domain.List{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.lists[id]
	if !ok {
		return domain.List{}, domain.NotFoundError{Kind: "list", ID: id}
	}
	updated := *row
	updated.Title = title
	updated.Position = position
	updated.UpdatedAt = s.now().UTC()
	if err := s.persister.UpdateList(ctx, updated); err != nil {
		return domain.List{}, err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.List{}, err
	}
	*row = updated
	return s.assembleList(row), nil
}

// DeleteList removes the list and its cards. It returns the owning board
// id for event routing.
func (s *Store) DeleteList(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.lists[id]
	if !ok {
		return "", domain.NotFoundError{Kind: "list", ID: id}
	}
	var cardIDs []string
	for _, c := range s.cards {
		if c.ListID == id {
			cardIDs = append(cardIDs, c.ID)
		}
	}
	for _, cid := range cardIDs {
		if err := s.persister.DeleteCard(ctx, cid); err != nil {
			return "", err
		}
	}
	if err := s.persister.DeleteList(ctx, id); err != nil {
		return "", err
	}
	if err := s.persister.Save(ctx); err != nil {
		return "", err
	}
	for _, cid := range cardIDs {
		delete(s.cards, cid)
	}
	boardID := row.BoardID
	delete(s.lists, id)
	return boardID, nil
}

// MoveList assigns the list's position verbatim. Untouched siblings are
// not renumbered; duplicate positions are resolved by the read-time sort.
// Lists never move between boards.
func (s *Store) MoveList(ctx context.Context, id string, newPosition int) (domain.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.lists[id]
	if !ok {
		return domain.List{}, domain.NotFoundError{Kind: "list", ID: id}
	}
	updated := *row
	updated.Position = newPosition
	updated.UpdatedAt = s.now().UTC()
	if err := s.persister.UpdateList(ctx, updated); err != nil {
		return domain.List{}, err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.List{}, err
	}
	*row = updated
	return s.assembleList(row), nil
}

// CreateCard creates a card under the given list. It returns the owning
// board id alongside the card for event routing.
func (s *Store) CreateCard(ctx context.Context, listID string, position int, p CardParams) (domain.Card, string, error) {
	if err := validateCardParams(p); err != nil {
		return domain.Card{}, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.lists[listID]
	if !ok {
		return domain.Card{}, "", domain.NotFoundError{Kind: "list", ID: listID}
	}
	now := s.now().UTC()
	card := domain.Card{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Description: p.Description,
		Position:    position,
		ListID:      listID,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     p.DueDate,
		Priority:    p.Priority,
		Status:      p.Status,
	}
	if err := s.persister.InsertCard(ctx, card); err != nil {
		return domain.Card{}, "", err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.Card{}, "", err
	}
	stored := card
	s.cards[card.ID] = &stored
	return card, list.BoardID, nil
}

// UpdateCard replaces the card's attributes and position.
func (s *Store) UpdateCard(ctx context.Context, id string, position int, p CardParams) (domain.Card, string, error) {
	if err := validateCardParams(p); err != nil {
		return domain.Card{}, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.cards[id]
	if !ok {
		return domain.Card{}, "", domain.NotFoundError{Kind: "card", ID: id}
	}
	list, ok := s.lists[row.ListID]
	if !ok {
		return domain.Card{}, "", domain.NotFoundError{Kind: "list", ID: row.ListID}
	}
	updated := *row
	updated.Title = p.Title
	updated.Description = p.Description
	updated.Position = position
	updated.DueDate = p.DueDate
	updated.Priority = p.Priority
	updated.Status = p.Status
	updated.UpdatedAt = s.now().UTC()
	if err := s.persister.UpdateCard(ctx, updated); err != nil {
		return domain.Card{}, "", err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.Card{}, "", err
	}
	*row = updated
	return updated, list.BoardID, nil
}

// DeleteCard removes the card and returns the owning board id.
func (s *Store) DeleteCard(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.cards[id]
	if !ok {
		return "", domain.NotFoundError{Kind: "card", ID: id}
	}
	list, ok := s.lists[row.ListID]
	if !ok {
		return "", domain.NotFoundError{Kind: "list", ID: row.ListID}
	}
	if err := s.persister.DeleteCard(ctx, id); err != nil {
		return "", err
	}
	if err := s.persister.Save(ctx); err != nil {
		return "", err
	}
	delete(s.cards, id)
	return list.BoardID, nil
}

// MoveCard reassigns the card's list and position in one step, returning
// the source and target board ids so callers can notify both sides of a
// cross-board move. No interleaved read can observe the new list with the
// old position or the other way around.
func (s *Store) MoveCard(ctx context.Context, id, targetListID string, newPosition int) (domain.Card, string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.cards[id]
	if !ok {
		return domain.Card{}, "", "", domain.NotFoundError{Kind: "card", ID: id}
	}
	source, ok := s.lists[row.ListID]
	if !ok {
		return domain.Card{}, "", "", domain.NotFoundError{Kind: "list", ID: row.ListID}
	}
	target, ok := s.lists[targetListID]
	if !ok {
		return domain.Card{}, "", "", domain.NotFoundError{Kind: "list", ID: targetListID}
	}
	updated := *row
	updated.ListID = targetListID
	updated.Position = newPosition
	updated.UpdatedAt = s.now().UTC()
	if err := s.persister.UpdateCard(ctx, updated); err != nil {
		return domain.Card{}, "", "", err
	}
	if err := s.persister.Save(ctx); err != nil {
		return domain.Card{}, "", "", err
	}
	*row = updated
	return updated, source.BoardID, target.BoardID, nil
}

func validateCardParams(p CardParams) error {
	if strings.TrimSpace(p.Title) == "" {
		return domain.ValidationError{Field: "title", Reason: "required"}
	}
	if !domain.ValidPriority(p.Priority) {
		return domain.ValidationError{Field: "priority", Reason: "unknown value " + p.Priority}
	}
	if !domain.ValidStatus(p.Status) {
		return domain.ValidationError{Field: "status", Reason: "unknown value " + p.Status}
	}
	return nil
}

// assembleBoard snapshots a board with its lists and cards, sorted. Caller
// must hold at least the read lock.
//
// Children are gathered from maps, so their tie order must be pinned by
// CreatedAt/ID before the stable position sort; otherwise two reads with
// no intervening writes could disagree on duplicate positions.
func (s *Store) assembleBoard(row *domain.Board) domain.Board {
	board := *row
	board.Lists = []domain.List{}
	for _, l := range s.lists {
		if l.BoardID == row.ID {
			board.Lists = append(board.Lists, s.assembleList(l))
		}
	}
	sort.Slice(board.Lists, func(i, j int) bool {
		if board.Lists[i].CreatedAt.Equal(board.Lists[j].CreatedAt) {
			return board.Lists[i].ID < board.Lists[j].ID
		}
		return board.Lists[i].CreatedAt.Before(board.Lists[j].CreatedAt)
	})
	domain.SortLists(board.Lists)
	return board
}

func (s *Store) assembleList(row *domain.List) domain.List {
	list := *row
	list.Cards = []domain.Card{}
	for _, c := range s.cards {
		if c.ListID == row.ID {
			list.Cards = append(list.Cards, *c)
		}
	}
	sort.Slice(list.Cards, func(i, j int) bool {
		if list.Cards[i].CreatedAt.Equal(list.Cards[j].CreatedAt) {
			return list.Cards[i].ID < list.Cards[j].ID
		}
		return list.Cards[i].CreatedAt.Before(list.Cards[j].CreatedAt)
	})
	domain.SortCards(list.Cards)
	return list
}

func sortBoards(boards []domain.Board) {
	sort.SliceStable(boards, func(i, j int) bool {
		if boards[i].CreatedAt.Equal(boards[j].CreatedAt) {
			return boards[i].ID < boards[j].ID
		}
		return boards[i].CreatedAt.Before(boards[j].CreatedAt)
	})
}
