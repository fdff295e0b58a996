package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/storage"
)

// Register wires up all API routes on the provided Echo instance. journal
// may be nil when no event journal is configured.
func Register(e *echo.Echo, store Store, hub Publisher, journal storage.Journal, logger *log.Logger) {
	p := publisher{hub: hub, journal: journal, logger: logger}

	e.GET("/api/boards", listBoards(store, logger))
	e.GET("/api/boards/:id", getBoard(store))
	e.POST("/api/boards", createBoard(store, p))
	e.PUT("/api/boards/:id", updateBoard(store, p))
	e.DELETE("/api/boards/:id", deleteBoard(store, p))

	e.POST("/api/lists", createList(store, p))
	e.PUT("/api/lists/:id", updateList(store, p))
	e.DELETE("/api/lists/:id", deleteList(store, p))
	e.PATCH("/api/lists/:id/move", moveList(store, p))

	e.POST("/api/cards", createCard(store, p))
	e.PUT("/api/cards/:id", updateCard(store, p))
	e.DELETE("/api/cards/:id", deleteCard(store, p))
	e.PATCH("/api/cards/:id/move", moveCard(store, p))

	e.GET("/healthz", healthz())
}

// publisher delivers an event to the hub and, best-effort, to the journal.
// Delivery happens only after the store has durably applied the mutation;
// a journal failure is logged and never surfaced to the mutation caller.
type publisher struct {
	hub     Publisher
	journal storage.Journal
	logger  *log.Logger
}

func (p publisher) publish(ctx context.Context, ev domain.Event) {
	p.hub.Publish(ev)
	if p.journal == nil {
		return
	}
	if err := p.journal.Append(ctx, ev); err != nil {
		p.logger.Warnf("journal %s: %v", ev.Name, err)
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func listBoards(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newBoardRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		boards, fetchErr := store.ListBoards(c.Request().Context())
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetBoardsReturned(len(boards))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, boards)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getBoard(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		board, err := store.GetBoard(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeStoreError(c, err)
		}
		return c.JSON(http.StatusOK, board)
	}
}

func createBoard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createBoardRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		board, err := store.CreateBoard(ctx, req.Title, req.Description)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewBoardCreated(board))
		return c.JSON(http.StatusCreated, board)
	}
}

func updateBoard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateBoardRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		board, err := store.UpdateBoard(ctx, c.Param("id"), req.Title, req.Description)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewBoardUpdated(board))
		return c.JSON(http.StatusOK, board)
	}
}

func deleteBoard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")
		if err := store.DeleteBoard(ctx, id); err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewBoardDeleted(id))
		return c.NoContent(http.StatusNoContent)
	}
}

func createList(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createListRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		list, err := store.CreateList(ctx, req.Title, req.BoardID, req.Position)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewListCreated(list.BoardID, list))
		return c.JSON(http.StatusCreated, list)
	}
}

func updateList(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateListRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		list, err := store.UpdateList(ctx, c.Param("id"), req.Title, req.Position)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewListUpdated(list.BoardID, list))
		return c.JSON(http.StatusOK, list)
	}
}

func deleteList(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")
		boardID, err := store.DeleteList(ctx, id)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewListDeleted(boardID, id))
		return c.NoContent(http.StatusNoContent)
	}
}

func moveList(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req moveListRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		list, err := store.MoveList(ctx, c.Param("id"), req.NewPosition)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewListMoved(list.BoardID, list.ID, list.Position))
		return c.JSON(http.StatusOK, list)
	}
}

func createCard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createCardRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		card, boardID, err := store.CreateCard(ctx, req.ListID, req.Position, storage.CardParams{
			Title:       req.Title,
			Description: req.Description,
			DueDate:     req.DueDate,
			Priority:    req.Priority,
			Status:      req.Status,
		})
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewCardCreated(boardID, card))
		return c.JSON(http.StatusCreated, card)
	}
}

func updateCard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateCardRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		card, boardID, err := store.UpdateCard(ctx, c.Param("id"), req.Position, storage.CardParams{
			Title:       req.Title,
			Description: req.Description,
			DueDate:     req.DueDate,
			Priority:    req.Priority,
			Status:      req.Status,
		})
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewCardUpdated(boardID, card))
		return c.JSON(http.StatusOK, card)
	}
}

func deleteCard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")
		boardID, err := store.DeleteCard(ctx, id)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewCardDeleted(boardID, id))
		return c.NoContent(http.StatusNoContent)
	}
}

func moveCard(store Store, p publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req moveCardRequest
		if err := bindBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		card, sourceBoardID, targetBoardID, err := store.MoveCard(ctx, c.Param("id"), req.TargetListID, req.NewPosition)
		if err != nil {
			return writeStoreError(c, err)
		}
		p.publish(ctx, domain.NewCardMoved(targetBoardID, card.ID, card.ListID, card.Position))
		// a cross-board move also changes what the source board's
		// subscribers see: tell them the card left
		if sourceBoardID != targetBoardID {
			p.publish(ctx, domain.NewCardMoved(sourceBoardID, card.ID, card.ListID, card.Position))
		}
		return c.JSON(http.StatusOK, card)
	}
}

func bindBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeStoreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.String(http.StatusNotFound, err.Error())
	case domain.IsValidation(err):
		return c.String(http.StatusBadRequest, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, "internal error")
	}
}
