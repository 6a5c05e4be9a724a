package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rental-payments/internal/config"
	"github.com/iliyamo/rental-payments/internal/logger"
)

// CachedResponse is a stored reply to a request carrying an idempotency key.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// IdempotencyStore keeps replies by key.  Reserve claims a key for the
// request in flight and reports false when another request holds it or a
// reply is already stored.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Idempotency replays the stored response for a repeated POST with the
// same key, so a payment submitted twice is recorded once.  Keys are
// scoped by caller and route.  Requests without the header pass through.
func Idempotency(cfg config.IdempotencyConfig, store IdempotencyStore, log *logger.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	header := cfg.Header
	if header == "" {
		header = "Idempotency-Key"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(header))
			if raw == "" || c.Request().Method != http.MethodPost {
				return next(c)
			}
			ctx := c.Request().Context()
			key := idempotencyKey(cfg.Prefix, c, raw)

			if cached, ok, err := store.Get(ctx, key); err != nil {
				log.Warn("idempotency lookup failed", "error", err)
				return next(c)
			} else if ok {
				return replay(c, cached)
			}

			reserved, err := store.Reserve(ctx, key, cfg.LockTTL)
			if err != nil {
				log.Warn("idempotency reserve failed", "error", err)
				return next(c)
			}
			if !reserved {
				if cached, ok, _ := store.Get(ctx, key); ok {
					return replay(c, cached)
				}
				return c.JSON(http.StatusConflict, echo.Map{"error": echo.Map{
					"code":    "IDEMPOTENCY_IN_PROGRESS",
					"message": "a request with this idempotency key is still being processed",
				}})
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = cw

			if err := next(c); err != nil {
				_ = store.Release(context.Background(), key)
				return err
			}
			// Server errors are not stored so the client may retry them.
			if cw.status >= http.StatusInternalServerError || cw.truncated {
				_ = store.Release(context.Background(), key)
				return nil
			}
			resp := &CachedResponse{Status: cw.status, Header: c.Response().Header().Clone(), Body: cw.buf.Bytes()}
			if err := store.Set(context.Background(), key, resp, cfg.TTL); err != nil {
				log.Warn("idempotency store failed", "error", err)
			}
			return nil
		}
	}
}

func replay(c echo.Context, cached *CachedResponse) error {
	for k, vals := range cached.Header {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		for _, v := range vals {
			c.Response().Header().Add(k, v)
		}
	}
	c.Response().Header().Set("Idempotent-Replay", "true")
	c.Response().WriteHeader(cached.Status)
	if len(cached.Body) > 0 {
		_, _ = c.Response().Write(cached.Body)
	}
	return nil
}

func idempotencyKey(prefix string, c echo.Context, raw string) string {
	tail := strings.Join([]string{userKey(c), c.Request().Method, c.Request().URL.Path, raw}, ":")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// captureWriter copies the response body while forwarding it to the
// client.  Bodies over limit are not stored.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
		cw.truncated = true
	} else {
		cw.buf.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

// RedisIdempotencyStore keeps replies in Redis.  A reservation is a
// placeholder value set with SETNX; a stored reply overwrites it.
type RedisIdempotencyStore struct {
	rdb *redis.Client
}

func NewRedisIdempotencyStore(rdb *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb}
}

var reservedMarker = []byte("\x00reserved")

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if bytes.Equal(bs, reservedMarker) {
		return nil, false, nil
	}
	resp, ok := decodePayload(bs)
	return resp, ok, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, reservedMarker, ttl).Result()
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	payload, err := encodePayload(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(resp *CachedResponse) ([]byte, error) {
	hdrJSON, err := json.Marshal(resp.Header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(resp.Body))
	binary.BigEndian.PutUint32(out[0:4], uint32(resp.Status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], resp.Body)
	return out, nil
}

func decodePayload(bs []byte) (*CachedResponse, bool) {
	if len(bs) < 8 {
		return nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return nil, false
		}
	}
	return &CachedResponse{Status: status, Header: hdr, Body: bs[8+hlen:]}, true
}

// MemoryIdempotencyStore is the in-process fallback used when Redis is
// unavailable.  Entries are dropped lazily once expired.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	resp    *CachedResponse
	expires time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryIdempotencyStore) get(key string) (memEntry, bool) {
	e, ok := s.entries[key]
	if ok && s.now().After(e.expires) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return e, ok
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok || e.resp == nil {
		return nil, false, nil
	}
	return e.resp, true, nil
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(key); ok {
		return false, nil
	}
	s.entries[key] = memEntry{expires: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{resp: resp, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
