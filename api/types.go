package api

import (
	"context"
	"time"

	"taskboard/domain"
	"taskboard/storage"
)

const requestMaxSize = 64 * 1024 // 64 KiB

// Store abstracts the mutation store for handlers. Both storage.Store and
// its caching wrapper satisfy it.
type Store interface {
	CreateBoard(ctx context.Context, title, description string) (domain.Board, error)
	UpdateBoard(ctx context.Context, id, title, description string) (domain.Board, error)
	DeleteBoard(ctx context.Context, id string) error
	GetBoard(ctx context.Context, id string) (domain.Board, error)
	ListBoards(ctx context.Context) ([]domain.Board, error)
	CreateList(ctx context.Context, title, boardID string, position int) (domain.List, error)
	UpdateList(ctx context.Context, id, title string, position int) (domain.List, error)
	DeleteList(ctx context.Context, id string) (string, error)
	MoveList(ctx context.Context, id string, newPosition int) (domain.List, error)
	CreateCard(ctx context.Context, listID string, position int, p storage.CardParams) (domain.Card, string, error)
	UpdateCard(ctx context.Context, id string, position int, p storage.CardParams) (domain.Card, string, error)
	DeleteCard(ctx context.Context, id string) (string, error)
	MoveCard(ctx context.Context, id, targetListID string, newPosition int) (domain.Card, string, string, error)
}

// Publisher fans mutation events out to connected clients.
type Publisher interface {
	Publish(ev domain.Event)
}

type createBoardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateBoardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type createListRequest struct {
	Title    string `json:"title"`
	BoardID  string `json:"boardId"`
	Position int    `json:"position"`
}

type updateListRequest struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
}

type moveListRequest struct {
	NewPosition int `json:"newPosition"`
}

type createCardRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ListID      string     `json:"listId"`
	Position    int        `json:"position"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
}

type updateCardRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Position    int        `json:"position"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
}

type moveCardRequest struct {
	TargetListID string `json:"targetListId"`
	NewPosition  int    `json:"newPosition"`
}
