package client

import (
	"taskboard/domain"
)

// State is a client's local view: the known boards plus the board it is
// currently looking at. Apply merges broadcast events into it.
type State struct {
	Boards  []domain.Board
	Current *domain.Board
}

// Apply merges one broadcast event into the state and returns the result.
// It is a pure function: the input state is never mutated, and applying
// the same event twice yields the same state as applying it once, so a
// client's own echo reconciles cleanly after an optimistic local edit.
func Apply(s State, ev domain.Event) State {
	switch ev.Name {
	case domain.BoardCreated, domain.BoardUpdated:
		board, ok := ev.Data.(domain.Board)
		if !ok {
			return s
		}
		return applyBoard(s, board, ev.Name == domain.BoardUpdated)
	case domain.BoardDeleted:
		data, ok := ev.Data.(domain.DeletedData)
		if !ok {
			return s
		}
		return applyBoardDeleted(s, data.ID)
	case domain.ListCreated, domain.ListUpdated:
		list, ok := ev.Data.(domain.List)
		if !ok {
			return s
		}
		return applyListUpsert(s, list)
	case domain.ListDeleted:
		data, ok := ev.Data.(domain.DeletedData)
		if !ok {
			return s
		}
		return applyListDeleted(s, data.ID)
	case domain.ListMoved:
		data, ok := ev.Data.(domain.ListMovedData)
		if !ok {
			return s
		}
		return applyListMoved(s, data)
	case domain.CardCreated, domain.CardUpdated:
		card, ok := ev.Data.(domain.Card)
		if !ok {
			return s
		}
		return applyCardUpsert(s, card)
	case domain.CardDeleted:
		data, ok := ev.Data.(domain.DeletedData)
		if !ok {
			return s
		}
		return applyCardDeleted(s, data.ID)
	case domain.CardMoved:
		data, ok := ev.Data.(domain.CardMovedData)
		if !ok {
			return s
		}
		return applyCardMoved(s, data)
	}
	return s
}

// MoveCardLocal applies a drag-and-drop reorder optimistically, before the
// request round-trips. The Broadcast echo later re-applies the same change
// through Apply, which leaves the state untouched.
func (s State) MoveCardLocal(cardID, targetListID string, newPosition int) State {
	return applyCardMoved(s, domain.CardMovedData{
		CardID:       cardID,
		TargetListID: targetListID,
		NewPosition:  newPosition,
	})
}

// MoveListLocal applies a list reorder optimistically.
func (s State) MoveListLocal(listID string, newPosition int) State {
	return applyListMoved(s, domain.ListMovedData{ListID: listID, NewPosition: newPosition})
}

func applyBoard(s State, board domain.Board, replaceOnly bool) State {
	found := false
	boards := make([]domain.Board, 0, len(s.Boards)+1)
	for _, b := range s.Boards {
		if b.ID == board.ID {
			boards = append(boards, board)
			found = true
			continue
		}
		boards = append(boards, b)
	}
	if !found && !replaceOnly {
		boards = append(boards, board)
	}
	s.Boards = boards
	if s.Current != nil && s.Current.ID == board.ID {
		current := cloneBoard(board)
		domain.SortLists(current.Lists)
		s.Current = &current
	}
	return s
}

func applyBoardDeleted(s State, id string) State {
	boards := make([]domain.Board, 0, len(s.Boards))
	for _, b := range s.Boards {
		if b.ID != id {
			boards = append(boards, b)
		}
	}
	s.Boards = boards
	if s.Current != nil && s.Current.ID == id {
		s.Current = nil
	}
	return s
}

func applyListUpsert(s State, list domain.List) State {
	if s.Current == nil || s.Current.ID != list.BoardID {
		return s
	}
	current := cloneBoard(*s.Current)
	found := false
	for i := range current.Lists {
		if current.Lists[i].ID == list.ID {
			current.Lists[i] = list
			found = true
			break
		}
	}
	if !found {
		current.Lists = append(current.Lists, list)
	}
	domain.SortLists(current.Lists)
	s.Current = &current
	return s
}

func applyListDeleted(s State, id string) State {
	if s.Current == nil {
		return s
	}
	current := cloneBoard(*s.Current)
	lists := current.Lists[:0]
	for _, l := range current.Lists {
		if l.ID != id {
			lists = append(lists, l)
		}
	}
	current.Lists = lists
	s.Current = &current
	return s
}

func applyListMoved(s State, data domain.ListMovedData) State {
	if s.Current == nil {
		return s
	}
	current := cloneBoard(*s.Current)
	for i := range current.Lists {
		if current.Lists[i].ID == data.ListID {
			current.Lists[i].Position = data.NewPosition
			break
		}
	}
	domain.SortLists(current.Lists)
	s.Current = &current
	return s
}

func applyCardUpsert(s State, card domain.Card) State {
	if s.Current == nil {
		return s
	}
	current := cloneBoard(*s.Current)
	// remove the card wherever it sits before re-inserting, so a second
	// delivery of the same event cannot duplicate it
	removeCard(&current, card.ID)
	for i := range current.Lists {
		if current.Lists[i].ID == card.ListID {
			current.Lists[i].Cards = append(current.Lists[i].Cards, card)
			domain.SortCards(current.Lists[i].Cards)
			break
		}
	}
	s.Current = &current
	return s
}

func applyCardDeleted(s State, id string) State {
	if s.Current == nil {
		return s
	}
	current := cloneBoard(*s.Current)
	removeCard(&current, id)
	s.Current = &current
	return s
}

func applyCardMoved(s State, data domain.CardMovedData) State {
	if s.Current == nil {
		return s
	}
	current := cloneBoard(*s.Current)
	moved, ok := removeCard(&current, data.CardID)
	if !ok {
		// the card was never seen locally; a later full reload recovers
		s.Current = &current
		return s
	}
	moved.ListID = data.TargetListID
	moved.Position = data.NewPosition
	for i := range current.Lists {
		if current.Lists[i].ID == data.TargetListID {
			current.Lists[i].Cards = append(current.Lists[i].Cards, moved)
			domain.SortCards(current.Lists[i].Cards)
			break
		}
	}
	s.Current = &current
	return s
}

func removeCard(board *domain.Board, cardID string) (domain.Card, bool) {
	for i := range board.Lists {
		for j, c := range board.Lists[i].Cards {
			if c.ID == cardID {
				cards := make([]domain.Card, 0, len(board.Lists[i].Cards)-1)
				cards = append(cards, board.Lists[i].Cards[:j]...)
				cards = append(cards, board.Lists[i].Cards[j+1:]...)
				board.Lists[i].Cards = cards
				return c, true
			}
		}
	}
	return domain.Card{}, false
}

func cloneBoard(b domain.Board) domain.Board {
	lists := make([]domain.List, len(b.Lists))
	copy(lists, b.Lists)
	for i := range lists {
		cards := make([]domain.Card, len(lists[i].Cards))
		copy(cards, lists[i].Cards)
		lists[i].Cards = cards
	}
	b.Lists = lists
	return b
}
