package storage

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Seed populates an empty store with a sample board so a fresh deployment
// has something to show. Stores that already contain boards are left
// untouched.
func Seed(ctx context.Context, s *Store) error {
	boards, err := s.ListBoards(ctx)
	if err != nil {
		return err
	}
	if len(boards) > 0 {
		return nil
	}

	board, err := s.CreateBoard(ctx, "Product Launch Project", "Planning and execution for the product launch")
	if err != nil {
		return err
	}
	todo, err := s.CreateList(ctx, "To Do", board.ID, 0)
	if err != nil {
		return err
	}
	inProgress, err := s.CreateList(ctx, "In Progress", board.ID, 1)
	if err != nil {
		return err
	}
	done, err := s.CreateList(ctx, "Done", board.ID, 2)
	if err != nil {
		return err
	}

	week := time.Now().UTC().AddDate(0, 0, 7)
	cards := []struct {
		listID string
		pos    int
		params CardParams
	}{
		{todo.ID, 0, CardParams{
			Title:       "Design new landing page",
			Description: "Create mockups and wireframes for the new product landing page",
			Priority:    domain.PriorityHigh,
			Status:      domain.StatusTodo,
			DueDate:     &week,
		}},
		{todo.ID, 1, CardParams{
			Title:       "Setup marketing campaign",
			Description: "Configure email marketing and social media campaigns",
			Priority:    domain.PriorityMedium,
			Status:      domain.StatusTodo,
		}},
		{inProgress.ID, 0, CardParams{
			Title:       "Implement authentication",
			Description: "Add user login and registration flows",
			Priority:    domain.PriorityHigh,
			Status:      domain.StatusInProgress,
		}},
		{inProgress.ID, 1, CardParams{
			Title:       "Write API documentation",
			Description: "Document every endpoint with request and response samples",
			Priority:    domain.PriorityLow,
			Status:      domain.StatusInProgress,
		}},
		{done.ID, 0, CardParams{
			Title:       "Setup Docker environment",
			Description: "Containerize the backend services",
			Priority:    domain.PriorityMedium,
			Status:      domain.StatusDone,
		}},
		{done.ID, 1, CardParams{
			Title:       "Configure CI/CD pipeline",
			Description: "Automate builds and deployments",
			Priority:    domain.PriorityMedium,
			Status:      domain.StatusDone,
		}},
	}
	for _, c := range cards {
		if _, _, err := s.CreateCard(ctx, c.listID, c.pos, c.params); err != nil {
			return err
		}
	}
	log.Infof("seeded sample board %s", board.ID)
	return nil
}
