package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard/domain"
)

// Cache wraps a Store with Redis-backed caching for board reads. Every
// mutation evicts the affected board so readers never see a board older
// than the latest applied operation.
type Cache struct {
	*Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper around the given store. A nil client
// disables caching entirely.
func NewCache(store *Store, client *redis.Client, ttl time.Duration) *Cache {
	if store == nil {
		panic("storage.NewCache: store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: store, redis: client, ttl: ttl}
}

func (c *Cache) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	if board, ok := c.loadBoardFromCache(ctx, id); ok {
		return board, nil
	}
	board, err := c.Store.GetBoard(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}
	c.storeValue(ctx, boardCacheKey(id), board)
	return board, nil
}

func (c *Cache) ListBoards(ctx context.Context) ([]domain.Board, error) {
	if boards, ok := c.loadBoardsFromCache(ctx); ok {
		return boards, nil
	}
	boards, err := c.Store.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	c.storeValue(ctx, boardsCacheKey, boards)
	return boards, nil
}

func (c *Cache) CreateBoard(ctx context.Context, title, description string) (domain.Board, error) {
	board, err := c.Store.CreateBoard(ctx, title, description)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, board.ID)
	return board, nil
}

func (c *Cache) UpdateBoard(ctx context.Context, id, title, description string) (domain.Board, error) {
	board, err := c.Store.UpdateBoard(ctx, id, title, description)
	if err != nil {
		return domain.Board{}, err
	}
	c.evict(ctx, id)
	return board, nil
}

func (c *Cache) DeleteBoard(ctx context.Context, id string) error {
	if err := c.Store.DeleteBoard(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) CreateList(ctx context.Context, title, boardID string, position int) (domain.List, error) {
	list, err := c.Store.CreateList(ctx, title, boardID, position)
	if err != nil {
		return domain.List{}, err
	}
	c.evict(ctx, boardID)
	return list, nil
}

func (c *Cache) UpdateList(ctx context.Context, id, title string, position int) (domain.List, error) {
	list, err := c.Store.UpdateList(ctx, id, title, position)
	if err != nil {
		return domain.List{}, err
	}
	c.evict(ctx, list.BoardID)
	return list, nil
}

func (c *Cache) DeleteList(ctx context.Context, id string) (string, error) {
	boardID, err := c.Store.DeleteList(ctx, id)
	if err != nil {
		return "", err
	}
	c.evict(ctx, boardID)
	return boardID, nil
}

func (c *Cache) MoveList(ctx context.Context, id string, newPosition int) (domain.List, error) {
	list, err := c.Store.MoveList(ctx, id, newPosition)
	if err != nil {
		return domain.List{}, err
	}
	c.evict(ctx, list.BoardID)
	return list, nil
}

func (c *Cache) CreateCard(ctx context.Context, listID string, position int, p CardParams) (domain.Card, string, error) {
	card, boardID, err := c.Store.CreateCard(ctx, listID, position, p)
	if err != nil {
		return domain.Card{}, "", err
	}
	c.evict(ctx, boardID)
	return card, boardID, nil
}

func (c *Cache) UpdateCard(ctx context.Context, id string, position int, p CardParams) (domain.Card, string, error) {
	card, boardID, err := c.Store.UpdateCard(ctx, id, position, p)
	if err != nil {
		return domain.Card{}, "", err
	}
	c.evict(ctx, boardID)
	return card, boardID, nil
}

func (c *Cache) DeleteCard(ctx context.Context, id string) (string, error) {
	boardID, err := c.Store.DeleteCard(ctx, id)
	if err != nil {
		return "", err
	}
	c.evict(ctx, boardID)
	return boardID, nil
}

func (c *Cache) MoveCard(ctx context.Context, id, targetListID string, newPosition int) (domain.Card, string, string, error) {
	card, sourceBoardID, targetBoardID, err := c.Store.MoveCard(ctx, id, targetListID, newPosition)
	if err != nil {
		return domain.Card{}, "", "", err
	}
	c.evict(ctx, sourceBoardID)
	if targetBoardID != sourceBoardID {
		c.evict(ctx, targetBoardID)
	}
	return card, sourceBoardID, targetBoardID, nil
}

func (c *Cache) loadBoardFromCache(ctx context.Context, id string) (domain.Board, bool) {
	if c.redis == nil {
		return domain.Board{}, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the store without failing.
			_ = c.redis.Del(ctx, boardCacheKey(id)).Err()
		}
		return domain.Board{}, false
	}
	var board domain.Board
	if err := json.Unmarshal(data, &board); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(id)).Err()
		return domain.Board{}, false
	}
	return board, true
}

func (c *Cache) loadBoardsFromCache(ctx context.Context) ([]domain.Board, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, boardsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, boardsCacheKey).Err()
		}
		return nil, false
	}
	var boards []domain.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		_ = c.redis.Del(ctx, boardsCacheKey).Err()
		return nil, false
	}
	return boards, true
}

func (c *Cache) storeValue(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, boardCacheKey(boardID), boardsCacheKey).Result()
}

const boardsCacheKey = "boards"

func boardCacheKey(id string) string {
	return "board:" + id
}
