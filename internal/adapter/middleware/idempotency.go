package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// HeaderCaller carries the 0x address of the acting account. The API trusts
	// it as-is; authentication happens upstream.
	HeaderCaller    = "Ax-Caller"
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	// HeaderReplayed is set on responses served from the store.
	HeaderReplayed = "Ax-Idempotent-Replay"
)

// Rejection codes, in the same {error, code} shape the API uses.
const (
	CodeBadHeaders       = "IDEMPOTENCY_HEADERS"
	CodeInProgress       = "IDEMPOTENCY_IN_PROGRESS"
	CodeBodyMismatch     = "IDEMPOTENCY_BODY_MISMATCH"
	CodeStoreUnavailable = "IDEMPOTENCY_UNAVAILABLE"
)

type IdempotencyConfig struct {
	// TTL is how long a finished response stays replayable.
	TTL time.Duration
	// Hold bounds the in-progress reservation. Default 60s.
	Hold time.Duration
	// MaxSkew bounds |Ax-Request-At - now|. Default 10m.
	MaxSkew time.Duration
	// StoreTimeout bounds each reservation round trip. Default 2s.
	StoreTimeout time.Duration
	Prefix       string
	Now          func() time.Time
	Logger       *zerolog.Logger
}

func (c *IdempotencyConfig) defaults() {
	if c.Hold <= 0 {
		c.Hold = 60 * time.Second
	}
	if c.MaxSkew <= 0 {
		c.MaxSkew = 10 * time.Minute
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 2 * time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "idemp:ax:"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = &log.Logger
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func reject(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, errorBody{Error: msg, Code: code})
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

// Idempotency keys mutating requests by method, route, caller and Ax-Request-Id.
// A finished response is replayed byte for byte; a duplicate racing the original
// gets 409, as does a reused id with a different body. 5xx responses are not kept.
func Idempotency(rdb *redis.Client, cfg IdempotencyConfig) echo.MiddlewareFunc {
	cfg.defaults()
	st := store{rdb: rdb, prefix: cfg.Prefix}
	lg := cfg.Logger

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.TrimSpace(req.Header.Get(HeaderRequestID))
			if reqID == "" {
				return reject(c, http.StatusBadRequest, CodeBadHeaders, "missing "+HeaderRequestID)
			}
			if !validRequestID(reqID) {
				return reject(c, http.StatusBadRequest, CodeBadHeaders, "invalid "+HeaderRequestID+" format")
			}
			reqAt, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return reject(c, http.StatusBadRequest, CodeBadHeaders, err.Error())
			}
			now := cfg.Now().UTC()
			if reqAt.Before(now.Add(-cfg.MaxSkew)) || reqAt.After(now.Add(cfg.MaxSkew)) {
				return reject(c, http.StatusBadRequest, CodeBadHeaders, HeaderRequestAt+" too skewed")
			}
			caller := strings.TrimSpace(req.Header.Get(HeaderCaller))
			if caller == "" {
				return reject(c, http.StatusBadRequest, CodeBadHeaders, "missing "+HeaderCaller)
			}
			if !common.IsHexAddress(caller) {
				return reject(c, http.StatusBadRequest, CodeBadHeaders, "invalid "+HeaderCaller)
			}

			var body []byte
			if req.Body != nil {
				if body, err = io.ReadAll(req.Body); err != nil {
					return reject(c, http.StatusBadRequest, CodeBadHeaders, "unreadable body")
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			digest := bodyDigest(body)

			key := st.key(req.Method, c.Path(), callerKey(caller), strings.ToLower(reqID))
			pending := entry{
				InProgress:  true,
				BodySHA256:  digest,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   now,
			}
			ctx, cancel := context.WithTimeout(req.Context(), cfg.StoreTimeout)
			defer cancel()
			ok, err := st.reserve(ctx, key, pending, cfg.Hold)
			if err == nil && !ok {
				cur, lerr := st.load(ctx, key)
				switch {
				case errors.Is(lerr, redis.Nil):
					// the other holder expired between SETNX and GET
					ok, err = st.reserve(ctx, key, pending, cfg.Hold)
				case lerr != nil:
					lg.Warn().Err(lerr).Str("key", key).Msg("idempotency: load entry failed")
				case cur.BodySHA256 != "" && cur.BodySHA256 != digest:
					return reject(c, http.StatusConflict, CodeBodyMismatch, HeaderRequestID+" reused with different body")
				case cur.replayable():
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
			}
			if err != nil {
				lg.Warn().Err(err).Str("key", key).Msg("idempotency: reserve failed")
				return reject(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "idempotency store unavailable")
			}
			if !ok {
				return reject(c, http.StatusConflict, CodeInProgress, "request is already in progress")
			}

			rec := &respRecorder{w: c.Response().Writer, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the handler may have outlived ctx, so finish on a fresh one
			if rec.code >= http.StatusInternalServerError {
				if err := st.release(context.Background(), key); err != nil {
					lg.Warn().Err(err).Str("key", key).Msg("idempotency: release failed")
				}
				return nil
			}
			final := pending
			final.InProgress = false
			final.Code = rec.code
			final.Body = rec.buf.Bytes()
			final.CreatedAt = cfg.Now().UTC()
			if err := st.finish(context.Background(), key, final, cfg.TTL); err != nil {
				lg.Warn().Err(err).Str("key", key).Msg("idempotency: save final failed")
			}
			return nil
		}
	}
}
