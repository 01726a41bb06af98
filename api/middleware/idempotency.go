package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/catering-checkout/api/responses"
	"github.com/angelmondragon/catering-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/catering-checkout/pkg/errors"
	"github.com/angelmondragon/catering-checkout/pkg/logger"
	pkgredis "github.com/angelmondragon/catering-checkout/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	advanceIdempotencyTTL = 24 * time.Hour
	advanceScope          = "checkout-advance"
)

type advanceState string

const (
	advancePending advanceState = "pending"
	advanceDone    advanceState = "done"
)

// StepLookup reports the checkout step of the session addressed by the request.
type StepLookup func(r *http.Request) (enums.CheckoutStep, bool)

type advanceRecord struct {
	State       advanceState `json:"state"`
	RequestHash string       `json:"request_hash"`
	Status      int          `json:"status,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Body        string       `json:"body,omitempty"`
}

// AdvanceIdempotency guards POST .../next. Advancing from review places the order,
// so a session sitting at review must send an Idempotency-Key; earlier steps may
// omit it. A key, when sent, is claimed before the handler runs: a concurrent
// duplicate gets 409 and a later duplicate gets the stored response. Server errors
// release the claim so the shopper can retry with the same key.
func AdvanceIdempotency(store pkgredis.IdempotencyStore, step StepLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if atReview(r, step) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required to place the order"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(advanceScope+":"+chi.URLParam(r, "sessionId"), clientKey)

			claimed, err := claim(ctx, store, key, requestHash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(ctx, store, key, requestHash, w, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if err := store.Del(ctx, key); err != nil {
				logError(ctx, logg, "release idempotency claim", err)
				return
			}
			if rec.status >= http.StatusInternalServerError {
				return
			}
			done := advanceRecord{
				State:       advanceDone,
				RequestHash: requestHash,
				Status:      defaultStatus(rec.status),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.String(),
			}
			if err := put(ctx, store, key, done); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func atReview(r *http.Request, step StepLookup) bool {
	if step == nil {
		return false
	}
	current, ok := step(r)
	return ok && current == enums.CheckoutStepReview
}

func claim(ctx context.Context, store pkgredis.IdempotencyStore, key, requestHash string) (bool, error) {
	payload, err := json.Marshal(advanceRecord{State: advancePending, RequestHash: requestHash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(payload), advanceIdempotencyTTL)
}

func put(ctx context.Context, store pkgredis.IdempotencyStore, key string, record advanceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), advanceIdempotencyTTL)
	return err
}

func replay(ctx context.Context, store pkgredis.IdempotencyStore, key, requestHash string, w http.ResponseWriter, logg *logger.Logger) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released between the claim and the read; the first request failed
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "previous request with this key failed; retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	var record advanceRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != requestHash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State == advancePending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.WriteHeader(record.Status)
		_, _ = io.WriteString(w, record.Body)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
