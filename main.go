package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/api"
	"taskboard/realtime"
	"taskboard/storage"
)

func main() {
	logger := log.New()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()

	var persister storage.Persister
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr != "" {
		boardsTable := os.Getenv("BOARDS_TABLE")
		listsTable := os.Getenv("LISTS_TABLE")
		cardsTable := os.Getenv("CARDS_TABLE")
		if boardsTable == "" || listsTable == "" || cardsTable == "" {
			log.Fatal("missing table config")
		}
		tables, err := storage.NewTablesPersister(connStr, boardsTable, listsTable, cardsTable)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		persister = tables
	} else {
		persister = storage.NewMemoryPersister()
	}

	store, err := storage.New(ctx, persister)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	if seed, err := strconv.ParseBool(os.Getenv("SEED_SAMPLE_DATA")); err == nil && seed {
		if err := storage.Seed(ctx, store); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc = redis.NewClient(redisOpts)
	}
	ttl := 5 * time.Minute
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid CACHE_TTL: %v", err)
		}
		ttl = d
	}
	cache := storage.NewCache(store, rc, ttl)

	var journal storage.Journal
	if queueName := os.Getenv("EVENT_QUEUE"); queueName != "" {
		if connStr == "" {
			log.Fatal("EVENT_QUEUE requires STORAGE_CONNECTION_STRING")
		}
		journal, err = storage.NewQueueJournal(connStr, queueName)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
	}

	hubBuffer := 0
	if v := os.Getenv("HUB_BUFFER_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid HUB_BUFFER_SIZE: %v", err)
		}
		hubBuffer = n
	}
	hub := realtime.NewHub(logger, hubBuffer)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.GzipRequest())

	api.Register(e, cache, hub, journal, logger)
	realtime.Register(e, hub)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		listenAddr = val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
