package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskboard/domain"
)

// Partition keys for the three entity tables. Each table holds a single
// partition so entities can be addressed by row key alone.
const (
	boardPartition = "boards"
	listPartition  = "lists"
	cardPartition  = "cards"
)

// TablesPersister persists entities to Azure Table storage, one table per
// entity kind.
type TablesPersister struct {
	boardTable *aztables.Client
	listTable  *aztables.Client
	cardTable  *aztables.Client
}

// NewTablesPersister creates a persister from the given connection string
// and table names.
func NewTablesPersister(connStr, boardsTable, listsTable, cardsTable string) (*TablesPersister, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TablesPersister{
		boardTable: svc.NewClient(boardsTable),
		listTable:  svc.NewClient(listsTable),
		cardTable:  svc.NewClient(cardsTable),
	}, nil
}

type boardEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

type listEntity struct {
	aztables.Entity
	Title     string `json:"Title"`
	Position  int    `json:"Position"`
	BoardID   string `json:"BoardId"`
	CreatedAt string `json:"CreatedAt"`
	UpdatedAt string `json:"UpdatedAt"`
}

type cardEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description,omitempty"`
	Position    int    `json:"Position"`
	ListID      string `json:"ListId"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
	DueDate     string `json:"DueDate,omitempty"`
	Priority    string `json:"Priority,omitempty"`
	Status      string `json:"Status,omitempty"`
}

func (p *TablesPersister) LoadBoard(ctx context.Context, id string) (domain.Board, error) {
	resp, err := p.boardTable.GetEntity(ctx, boardPartition, id, nil)
	if err != nil {
		return domain.Board{}, err
	}
	var ent boardEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Board{}, err
	}
	board := boardFromEntity(ent)
	lists, cards, err := p.loadChildren(ctx)
	if err != nil {
		return domain.Board{}, err
	}
	attachChildren(&board, lists, cards)
	return board, nil
}

func (p *TablesPersister) LoadBoards(ctx context.Context) ([]domain.Board, error) {
	boards := []domain.Board{}
	pager := p.boardTable.NewListEntitiesPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent boardEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			boards = append(boards, boardFromEntity(ent))
		}
	}
	lists, cards, err := p.loadChildren(ctx)
	if err != nil {
		return nil, err
	}
	for i := range boards {
		attachChildren(&boards[i], lists, cards)
	}
	return boards, nil
}

func (p *TablesPersister) loadChildren(ctx context.Context) ([]domain.List, []domain.Card, error) {
	lists := []domain.List{}
	pager := p.listTable.NewListEntitiesPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, raw := range resp.Entities {
			var ent listEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, nil, err
			}
			lists = append(lists, listFromEntity(ent))
		}
	}
	cards := []domain.Card{}
	cardPager := p.cardTable.NewListEntitiesPager(nil)
	for cardPager.More() {
		resp, err := cardPager.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, raw := range resp.Entities {
			var ent cardEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, nil, err
			}
			cards = append(cards, cardFromEntity(ent))
		}
	}
	return lists, cards, nil
}

func (p *TablesPersister) InsertBoard(ctx context.Context, b domain.Board) error {
	return p.upsert(ctx, p.boardTable, boardToEntity(b))
}

func (p *TablesPersister) UpdateBoard(ctx context.Context, b domain.Board) error {
	return p.upsert(ctx, p.boardTable, boardToEntity(b))
}

func (p *TablesPersister) DeleteBoard(ctx context.Context, id string) error {
	_, err := p.boardTable.DeleteEntity(ctx, boardPartition, id, nil)
	return err
}

func (p *TablesPersister) InsertList(ctx context.Context, l domain.List) error {
	return p.upsert(ctx, p.listTable, listToEntity(l))
}

func (p *TablesPersister) UpdateList(ctx context.Context, l domain.List) error {
	return p.upsert(ctx, p.listTable, listToEntity(l))
}

func (p *TablesPersister) DeleteList(ctx context.Context, id string) error {
	_, err := p.listTable.DeleteEntity(ctx, listPartition, id, nil)
	return err
}

func (p *TablesPersister) InsertCard(ctx context.Context, c domain.Card) error {
	return p.upsert(ctx, p.cardTable, cardToEntity(c))
}

func (p *TablesPersister) UpdateCard(ctx context.Context, c domain.Card) error {
	return p.upsert(ctx, p.cardTable, cardToEntity(c))
}

func (p *TablesPersister) DeleteCard(ctx context.Context, id string) error {
	_, err := p.cardTable.DeleteEntity(ctx, cardPartition, id, nil)
	return err
}

// Save is a no-op: table writes commit individually.
func (p *TablesPersister) Save(ctx context.Context) error { return nil }

func (p *TablesPersister) upsert(ctx context.Context, table *aztables.Client, ent any) error {
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = table.UpsertEntity(ctx, data, nil)
	return err
}

func boardToEntity(b domain.Board) boardEntity {
	return boardEntity{
		Entity:      aztables.Entity{PartitionKey: boardPartition, RowKey: b.ID},
		Title:       b.Title,
		Description: b.Description,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func boardFromEntity(ent boardEntity) domain.Board {
	return domain.Board{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		CreatedAt:   parseTime(ent.CreatedAt),
		UpdatedAt:   parseTime(ent.UpdatedAt),
	}
}

func listToEntity(l domain.List) listEntity {
	return listEntity{
		Entity:    aztables.Entity{PartitionKey: listPartition, RowKey: l.ID},
		Title:     l.Title,
		Position:  l.Position,
		BoardID:   l.BoardID,
		CreatedAt: l.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: l.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func listFromEntity(ent listEntity) domain.List {
	return domain.List{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Position:  ent.Position,
		BoardID:   ent.BoardID,
		CreatedAt: parseTime(ent.CreatedAt),
		UpdatedAt: parseTime(ent.UpdatedAt),
	}
}

func cardToEntity(c domain.Card) cardEntity {
	ent := cardEntity{
		Entity:      aztables.Entity{PartitionKey: cardPartition, RowKey: c.ID},
		Title:       c.Title,
		Description: c.Description,
		Position:    c.Position,
		ListID:      c.ListID,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339Nano),
		Priority:    c.Priority,
		Status:      c.Status,
	}
	if c.DueDate != nil {
		ent.DueDate = c.DueDate.Format(time.RFC3339Nano)
	}
	return ent
}

func cardFromEntity(ent cardEntity) domain.Card {
	card := domain.Card{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Position:    ent.Position,
		ListID:      ent.ListID,
		CreatedAt:   parseTime(ent.CreatedAt),
		UpdatedAt:   parseTime(ent.UpdatedAt),
		Priority:    ent.Priority,
		Status:      ent.Status,
	}
	if ent.DueDate != "" {
		due := parseTime(ent.DueDate)
		card.DueDate = &due
	}
	return card
}

func attachChildren(board *domain.Board, lists []domain.List, cards []domain.Card) {
	for _, l := range lists {
		if l.BoardID != board.ID {
			continue
		}
		for _, c := range cards {
			if c.ListID == l.ID {
				l.Cards = append(l.Cards, c)
			}
		}
		board.Lists = append(board.Lists, l)
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
