package domain

// Event names delivered to connected clients. Created/Updated events carry
// the full entity, Deleted events an id, Moved events the minimal
// positional data needed to re-place the entity.
const (
	BoardCreated = "BoardCreated"
	BoardUpdated = "BoardUpdated"
	BoardDeleted = "BoardDeleted"
	ListCreated  = "ListCreated"
	ListUpdated  = "ListUpdated"
	ListDeleted  = "ListDeleted"
	ListMoved    = "ListMoved"
	CardCreated  = "CardCreated"
	CardUpdated  = "CardUpdated"
	CardDeleted  = "CardDeleted"
	CardMoved    = "CardMoved"
	UserJoined   = "UserJoined"
	UserLeft     = "UserLeft"
)

// Event is a single mutation notification. BoardID selects the group it is
// published to; an empty BoardID addresses every connected client.
type Event struct {
	Name    string `json:"type"`
	BoardID string `json:"-"`
	Data    any    `json:"data"`
}

// DeletedData identifies a deleted entity.
type DeletedData struct {
	ID string `json:"id"`
}

// ListMovedData carries a list reorder within its board.
type ListMovedData struct {
	ListID      string `json:"listId"`
	NewPosition int    `json:"newPosition"`
}

// CardMovedData carries a card move, possibly across lists. TargetListID
// and NewPosition always change together; clients must never apply one
// without the other.
type CardMovedData struct {
	CardID       string `json:"cardId"`
	TargetListID string `json:"targetListId"`
	NewPosition  int    `json:"newPosition"`
}

// UserData identifies a connection joining or leaving a board group.
type UserData struct {
	ConnectionID string `json:"connectionId"`
}

// NewBoardCreated addresses all clients: nobody has joined the new board's
// group yet, so a group-scoped publish would reach no one.
func NewBoardCreated(b Board) Event {
	return Event{Name: BoardCreated, Data: b}
}

func NewBoardUpdated(b Board) Event {
	return Event{Name: BoardUpdated, BoardID: b.ID, Data: b}
}

func NewBoardDeleted(boardID string) Event {
	return Event{Name: BoardDeleted, BoardID: boardID, Data: DeletedData{ID: boardID}}
}

func NewListCreated(boardID string, l List) Event {
	return Event{Name: ListCreated, BoardID: boardID, Data: l}
}

func NewListUpdated(boardID string, l List) Event {
	return Event{Name: ListUpdated, BoardID: boardID, Data: l}
}

func NewListDeleted(boardID, listID string) Event {
	return Event{Name: ListDeleted, BoardID: boardID, Data: DeletedData{ID: listID}}
}

func NewListMoved(boardID, listID string, newPosition int) Event {
	return Event{Name: ListMoved, BoardID: boardID, Data: ListMovedData{ListID: listID, NewPosition: newPosition}}
}

func NewCardCreated(boardID string, c Card) Event {
	return Event{Name: CardCreated, BoardID: boardID, Data: c}
}

func NewCardUpdated(boardID string, c Card) Event {
	return Event{Name: CardUpdated, BoardID: boardID, Data: c}
}

func NewCardDeleted(boardID, cardID string) Event {
	return Event{Name: CardDeleted, BoardID: boardID, Data: DeletedData{ID: cardID}}
}

func NewCardMoved(boardID, cardID, targetListID string, newPosition int) Event {
	return Event{Name: CardMoved, BoardID: boardID, Data: CardMovedData{
		CardID:       cardID,
		TargetListID: targetListID,
		NewPosition:  newPosition,
	}}
}
