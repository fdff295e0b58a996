package domain

import (
	"sort"
	"time"
)

// Priority levels a card may carry. An empty value means unset.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Status values a card may carry. An empty value means unset.
const (
	StatusTodo       = "Todo"
	StatusInProgress = "InProgress"
	StatusDone       = "Done"
)

// ValidPriority reports whether p is an allowed priority value.
func ValidPriority(p string) bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is an allowed status value.
func ValidStatus(s string) bool {
	switch s {
	case "", StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Board is the top-level entity. It owns its lists; deleting a board
// cascades to every list and card under it.
type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Lists       []List    `json:"lists"`
}

// List belongs to exactly one board and owns its cards. Position is an
// ordinal ordering key among sibling lists; duplicates and gaps are
// tolerated, visible order is always re-derived by sorting.
type List struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	BoardID   string    `json:"boardId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Cards     []Card    `json:"cards"`
}

// Card belongs to exactly one list. Position is meaningful only relative
// to the card's current list.
type Card struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Position    int        `json:"position"`
	ListID      string     `json:"listId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// SortLists orders sibling lists ascending by position. The sort is stable
// so repeated reads see the same tie order.
func SortLists(lists []List) {
	sort.SliceStable(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })
}

// SortCards orders sibling cards ascending by position.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
}
