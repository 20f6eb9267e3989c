package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	pendingMarker        = "__pending__"
	cacheOpTimeout       = 2 * time.Second
)

var errPending = errors.New("idempotent request still pending")

// replay is a response recorded for an idempotency key.
type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type replayCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (rc replayCache) lookup(ctx context.Context, key string) (*replay, error) {
	raw, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == pendingMarker {
		return nil, errPending
	}
	var r replay
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (rc replayCache) reserve(ctx context.Context, key string) (bool, error) {
	return rc.client.SetNX(ctx, key, pendingMarker, rc.ttl).Result()
}

func (rc replayCache) save(ctx context.Context, key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, payload, rc.ttl).Err()
}

// release drops a reservation so the request can be retried. Best effort.
func (rc replayCache) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	rc.client.Del(ctx, key)
}

// Idempotency requires an Idempotency-Key on every unsafe request. With Redis
// configured the first response per method, path and key is recorded and
// replayed to later callers; server errors are released so the request can
// be retried.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	rc := replayCache{client: cache, ttl: ttl}

	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		if cache == nil {
			return c.Next()
		}

		cacheKey := idempotencyPrefix + c.Method() + ":" + c.Path() + ":" + key
		log := logger.With(slog.String("idempotency_key", key), slog.String("path", c.Path()))

		ctx, cancel := context.WithTimeout(c.UserContext(), cacheOpTimeout)
		defer cancel()

		prev, err := rc.lookup(ctx, cacheKey)
		switch {
		case errors.Is(err, errPending):
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		case err != nil:
			log.Error("idempotency lookup failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		case prev != nil:
			if prev.ContentType != "" {
				c.Set(fiber.HeaderContentType, prev.ContentType)
			}
			return c.Status(prev.Status).Send(prev.Body)
		}

		ok, err := rc.reserve(ctx, cacheKey)
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !ok {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			rc.release(cacheKey)
			return err
		}

		resp := c.Response()
		if resp.StatusCode() >= fiber.StatusInternalServerError {
			rc.release(cacheKey)
			return nil
		}

		saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), cacheOpTimeout)
		defer saveCancel()

		r := replay{
			Status:      resp.StatusCode(),
			ContentType: string(resp.Header.ContentType()),
			Body:        append([]byte(nil), resp.Body()...),
		}
		if err := rc.save(saveCtx, cacheKey, r); err != nil {
			log.Error("failed to persist idempotent response", slog.Any("error", err))
			rc.release(cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}
		return nil
	}
}
