package client

import (
	"testing"

	"taskboard/domain"
)

func board(id string) domain.Board {
	return domain.Board{ID: id, Title: "Board " + id}
}

func testState() State {
	b := domain.Board{
		ID:    "b1",
		Title: "Board",
		Lists: []domain.List{
			{ID: "l1", BoardID: "b1", Title: "To Do", Position: 0, Cards: []domain.Card{
				{ID: "c1", ListID: "l1", Title: "First", Position: 0},
				{ID: "c2", ListID: "l1", Title: "Second", Position: 1},
			}},
			{ID: "l2", BoardID: "b1", Title: "Done", Position: 1, Cards: []domain.Card{
				{ID: "c3", ListID: "l2", Title: "Third", Position: 0},
			}},
		},
	}
	return State{Boards: []domain.Board{board("b1")}, Current: &b}
}

func findList(t *testing.T, b *domain.Board, id string) *domain.List {
	t.Helper()
	for i := range b.Lists {
		if b.Lists[i].ID == id {
			return &b.Lists[i]
		}
	}
	t.Fatalf("list %s not found", id)
	return nil
}

func TestApplyBoardCreatedIdempotent(t *testing.T) {
	s := State{}
	ev := domain.NewBoardCreated(board("b9"))
	s = Apply(s, ev)
	s = Apply(s, ev)
	if len(s.Boards) != 1 {
		t.Fatalf("expected 1 board after duplicate event, got %d", len(s.Boards))
	}
}

func TestApplyBoardUpdatedReplacesWithoutInserting(t *testing.T) {
	s := testState()
	updated := board("b1")
	updated.Title = "Renamed"
	s = Apply(s, domain.NewBoardUpdated(updated))
	if s.Boards[0].Title != "Renamed" {
		t.Fatalf("board title = %q", s.Boards[0].Title)
	}
	if s.Current.Title != "Renamed" {
		t.Fatalf("current title = %q", s.Current.Title)
	}

	// update for a board never seen must not create it
	s = Apply(s, domain.NewBoardUpdated(board("ghost")))
	if len(s.Boards) != 1 {
		t.Fatalf("expected 1 board, got %d", len(s.Boards))
	}
}

func TestApplyBoardDeleted(t *testing.T) {
	s := testState()
	ev := domain.NewBoardDeleted("b1")
	s = Apply(s, ev)
	if len(s.Boards) != 0 {
		t.Fatalf("board not removed")
	}
	if s.Current != nil {
		t.Fatalf("current board should be cleared")
	}
	s = Apply(s, ev)
	if len(s.Boards) != 0 {
		t.Fatalf("second delete changed state")
	}
}

func TestApplyListCreatedSortedAndIdempotent(t *testing.T) {
	s := testState()
	ev := domain.NewListCreated("b1", domain.List{ID: "l0", BoardID: "b1", Title: "Backlog", Position: -1})
	s = Apply(s, ev)
	s = Apply(s, ev)
	if len(s.Current.Lists) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(s.Current.Lists))
	}
	if s.Current.Lists[0].ID != "l0" {
		t.Fatalf("lists not resorted, first = %s", s.Current.Lists[0].ID)
	}
}

func TestApplyListCreatedOtherBoardIgnored(t *testing.T) {
	s := testState()
	s = Apply(s, domain.NewListCreated("b2", domain.List{ID: "lx", BoardID: "b2", Title: "Elsewhere"}))
	if len(s.Current.Lists) != 2 {
		t.Fatalf("list from another board leaked into current")
	}
}

func TestApplyListDeletedIdempotent(t *testing.T) {
	s := testState()
	ev := domain.NewListDeleted("b1", "l1")
	s = Apply(s, ev)
	s = Apply(s, ev)
	if len(s.Current.Lists) != 1 || s.Current.Lists[0].ID != "l2" {
		t.Fatalf("unexpected lists after delete: %+v", s.Current.Lists)
	}
}

func TestApplyListMoved(t *testing.T) {
	s := testState()
	ev := domain.NewListMoved("b1", "l2", -5)
	s = Apply(s, ev)
	s = Apply(s, ev)
	if s.Current.Lists[0].ID != "l2" {
		t.Fatalf("moved list not first, got %s", s.Current.Lists[0].ID)
	}
	if s.Current.Lists[0].Position != -5 {
		t.Fatalf("position = %d", s.Current.Lists[0].Position)
	}
}

func TestApplyCardCreatedIdempotent(t *testing.T) {
	s := testState()
	ev := domain.NewCardCreated("b1", domain.Card{ID: "c9", ListID: "l2", Title: "New", Position: -1})
	s = Apply(s, ev)
	s = Apply(s, ev)
	l2 := findList(t, s.Current, "l2")
	if len(l2.Cards) != 2 {
		t.Fatalf("expected 2 cards in l2, got %d", len(l2.Cards))
	}
	if l2.Cards[0].ID != "c9" {
		t.Fatalf("cards not resorted, first = %s", l2.Cards[0].ID)
	}
}

func TestApplyCardDeletedIdempotent(t *testing.T) {
	s := testState()
	ev := domain.NewCardDeleted("b1", "c2")
	s = Apply(s, ev)
	s = Apply(s, ev)
	l1 := findList(t, s.Current, "l1")
	if len(l1.Cards) != 1 || l1.Cards[0].ID != "c1" {
		t.Fatalf("unexpected cards after delete: %+v", l1.Cards)
	}
}

func TestApplyCardMovedAcrossLists(t *testing.T) {
	s := testState()
	ev := domain.NewCardMoved("b1", "c1", "l2", 0)
	s = Apply(s, ev)
	s = Apply(s, ev)

	l1 := findList(t, s.Current, "l1")
	if len(l1.Cards) != 1 {
		t.Fatalf("source list has %d cards", len(l1.Cards))
	}
	l2 := findList(t, s.Current, "l2")
	if len(l2.Cards) != 2 {
		t.Fatalf("target list has %d cards", len(l2.Cards))
	}
	if l2.Cards[0].ID != "c1" {
		t.Fatalf("moved card not at head of target, got %s", l2.Cards[0].ID)
	}
	if l2.Cards[0].ListID != "l2" {
		t.Fatalf("moved card listId = %s", l2.Cards[0].ListID)
	}
}

func TestApplyCardMovedUnknownCardTolerated(t *testing.T) {
	s := testState()
	out := Apply(s, domain.NewCardMoved("b1", "ghost", "l2", 0))
	l2 := findList(t, out.Current, "l2")
	if len(l2.Cards) != 1 {
		t.Fatalf("ghost move changed target list")
	}
}

func TestOptimisticMoveConvergesWithEcho(t *testing.T) {
	s := testState()
	s = s.MoveCardLocal("c1", "l2", 0)

	l2 := findList(t, s.Current, "l2")
	if l2.Cards[0].ID != "c1" {
		t.Fatalf("optimistic move not applied")
	}

	// server echo of the same move lands on the already-moved state
	s = Apply(s, domain.NewCardMoved("b1", "c1", "l2", 0))
	l1 := findList(t, s.Current, "l1")
	l2 = findList(t, s.Current, "l2")
	if len(l1.Cards) != 1 || len(l2.Cards) != 2 {
		t.Fatalf("echo diverged: l1=%d l2=%d", len(l1.Cards), len(l2.Cards))
	}
	if l2.Cards[0].ID != "c1" {
		t.Fatalf("echo reordered target, first = %s", l2.Cards[0].ID)
	}
}

func TestOptimisticListMove(t *testing.T) {
	s := testState()
	s = s.MoveListLocal("l2", -1)
	if s.Current.Lists[0].ID != "l2" {
		t.Fatalf("optimistic list move not applied")
	}
	s = Apply(s, domain.NewListMoved("b1", "l2", -1))
	if s.Current.Lists[0].ID != "l2" || len(s.Current.Lists) != 2 {
		t.Fatalf("echo diverged: %+v", s.Current.Lists)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := testState()
	before := len(findList(t, s.Current, "l1").Cards)
	_ = Apply(s, domain.NewCardMoved("b1", "c1", "l2", 0))
	after := len(findList(t, s.Current, "l1").Cards)
	if before != after {
		t.Fatalf("input state mutated: %d -> %d", before, after)
	}
}

func TestApplyEventsWithoutCurrentBoard(t *testing.T) {
	s := State{Boards: []domain.Board{board("b1")}}
	s = Apply(s, domain.NewCardCreated("b1", domain.Card{ID: "c1", ListID: "l1", Title: "X"}))
	s = Apply(s, domain.NewListMoved("b1", "l1", 2))
	if s.Current != nil {
		t.Fatalf("current appeared out of nowhere")
	}
}
