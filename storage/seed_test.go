package storage

import (
	"context"
	"testing"
)

func TestSeedPopulatesEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := Seed(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	boards, _ := s.ListBoards(ctx)
	if len(boards) != 1 {
		t.Fatalf("expected 1 board, got %d", len(boards))
	}
	b := boards[0]
	if len(b.Lists) != 3 {
		t.Fatalf("expected 3 lists, got %d", len(b.Lists))
	}
	for i, l := range b.Lists {
		if l.Position != i {
			t.Fatalf("list %d has position %d", i, l.Position)
		}
		if len(l.Cards) != 2 {
			t.Fatalf("list %s expected 2 cards, got %d", l.Title, len(l.Cards))
		}
	}
}

func TestSeedSkipsPopulatedStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateBoard(ctx, "existing", ""); err != nil {
		t.Fatalf("create board: %v", err)
	}
	if err := Seed(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	boards, _ := s.ListBoards(ctx)
	if len(boards) != 1 {
		t.Fatalf("seed must not touch a populated store, got %d boards", len(boards))
	}
}
