package store

import (
	"context"
	"errors"
	"time"
)

type (
	// Store is the shared key-value store that holds every piece of state
	// that outlives a single execution. Implementations must make Reserve
	// and Admit atomic with respect to concurrent callers
	Store interface {
		Get(ctx context.Context, key string) (string, bool, error)
		SetWithTTL(
			ctx context.Context, key, value string, ttl time.Duration,
		) error
		IncrByFloat(
			ctx context.Context, key string, delta float64,
		) (float64, error)
		Expire(ctx context.Context, key string, ttl time.Duration) error

		SortedSetAdd(
			ctx context.Context, key string, score float64, member string,
		) error
		SortedSetPrune(
			ctx context.Context, key string, maxScore float64,
		) (int64, error)
		SortedSetCount(ctx context.Context, key string) (int64, error)

		Reserve(
			ctx context.Context, key string, amount, ceiling float64,
		) (*Reservation, error)
		Admit(ctx context.Context, req *AdmitRequest) (Admission, error)

		Ping(ctx context.Context) error
		Close() error
	}

	// Reservation is the outcome of a compare-and-increment against a
	// ceiling. Total is the counter value after the call; it is unchanged
	// when the reservation was refused
	Reservation struct {
		Total    float64
		Reserved bool
	}

	// AdmitRequest describes one sliding-window admission. Scores are
	// millisecond timestamps; entries at or below Cutoff are pruned before
	// counting
	AdmitRequest struct {
		WindowKey   string
		CounterKey  string
		Member      string
		Now         int64
		Cutoff      int64
		WindowLimit int
		DailyLimit  int
		WindowTTL   time.Duration
		CounterTTL  time.Duration
	}

	// Admission is the outcome of an AdmitRequest
	Admission int
)

const (
	Admitted      Admission = 1
	WindowLimited Admission = 0
	DailyLimited  Admission = -1
)

var (
	ErrUnexpectedReply = errors.New("unexpected store reply")
	ErrInvalidTTL      = errors.New("ttl must be positive")
)
