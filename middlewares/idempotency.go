package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"survey-backend/models"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
)

// Stable codes for Idempotency-Key outcomes. They never reuse "conflict",
// which only means the respondent already answered.
const (
	CodeIdempotencyKeyReused = "idempotency_key_reused"
	CodeRequestInProgress    = "request_in_progress"
)

// IdempotencyStore persists Idempotency-Key records.
type IdempotencyStore interface {
	// ClaimIdempotencyKey takes over a pending record older than lease.
	ClaimIdempotencyKey(ctx context.Context, rec *models.IdempotencyKey, lease time.Duration) (*models.IdempotencyKey, bool, error)
	CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// Idempotency processes Idempotency-Key for mutating HTTP methods.
// A completed key replays the stored response without running the handler.
// A key left pending longer than lease (a crashed request) can be claimed again.
func Idempotency(store IdempotencyStore, ttl, lease time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKey {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		path := c.OriginalURL() // includes query string
		reqHash := requestHash(method, path, c.Body())
		ctx := c.UserContext()

		// ---- Phase 1: claim the key or inspect the existing record
		rec, created, err := store.ClaimIdempotencyKey(ctx, &models.IdempotencyKey{
			Key:         key,
			RequestHash: reqHash,
			Method:      method,
			Path:        path,
			ExpiresAt:   time.Now().UTC().Add(ttl),
		}, lease)
		if err != nil {
			requestLogger(c).WithError(err).Error("idempotency claim failed")
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
		}
		if !created {
			if rec.RequestHash != reqHash {
				return &apiError{
					Status:  fiber.StatusUnprocessableEntity,
					Code:    CodeIdempotencyKeyReused,
					Message: "Idempotency-Key was already used for a different request",
				}
			}
			if rec.Pending() {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(rec.CreatedAt, lease)))
				return &apiError{
					Status:  fiber.StatusConflict,
					Code:    CodeRequestInProgress,
					Message: "request with this Idempotency-Key is in progress",
				}
			}
			c.Set(idempotencyHeader+"-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(rec.ResponseStatus).Send(rec.ResponseBody)
		}

		// ---- Phase 2: run the handler once and render its error, if any
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = store.ReleaseIdempotencyKey(ctx, key)
				return herr
			}
		}

		// ---- Phase 3: remember the outcome, or forget the key so a retry can run
		status := c.Response().StatusCode()
		body := c.Response().Body()
		if status >= fiber.StatusInternalServerError || !json.Valid(body) {
			if err := store.ReleaseIdempotencyKey(ctx, key); err != nil {
				requestLogger(c).WithError(err).Warn("idempotency release failed")
			}
			return nil
		}
		if err := store.CompleteIdempotencyKey(ctx, key, status, body); err != nil {
			// best-effort: don't break the response the client is about to get
			requestLogger(c).WithError(err).Warn("idempotency store failed")
		}
		return nil
	}
}

// retryAfterSeconds is the time left on a pending claim, at least one second.
func retryAfterSeconds(claimedAt time.Time, lease time.Duration) int {
	left := time.Until(claimedAt.Add(lease))
	if left < time.Second {
		return 1
	}
	return int(left.Round(time.Second) / time.Second)
}

// requestHash is sha256(method \n path \n body).
func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
