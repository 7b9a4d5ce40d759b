package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
)

// LinkRepository defines storage operations for short links.
// Lookups return (nil, nil) when nothing matches.
type LinkRepository interface {
	Create(ctx context.Context, link *domain.ShortLink) error
	GetByCode(ctx context.Context, code string) (*domain.ShortLink, error)
	GetByID(ctx context.Context, id string) (*domain.ShortLink, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	IncrementClicks(ctx context.Context, code string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.ShortLink, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	Stats(ctx context.Context) (*domain.LinkStats, error)
	Dump(ctx context.Context) ([]domain.ShortLink, error) // For migration
	Ping(ctx context.Context) error
}

// LinkCache is an optional read-through cache in front of code lookups.
// A miss is (nil, nil).
type LinkCache interface {
	Get(ctx context.Context, code string) (*domain.ShortLink, error)
	Set(ctx context.Context, link *domain.ShortLink, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

// ClickRecorder accepts click increments without blocking the caller.
type ClickRecorder interface {
	Record(code string)
}

// CreateLinkInput carries the caller-supplied fields for a new link
type CreateLinkInput struct {
	TargetURL string
	Code      *string
	OwnerID   *string
	Title     *string
	TTLHours  *uint32
}

// LinkService defines the redirection and allocation operations
type LinkService interface {
	Create(ctx context.Context, in CreateLinkInput) (*domain.ShortLink, error)
	Resolve(ctx context.Context, code string) (string, error)
	GetInfo(ctx context.Context, code string) (*domain.ShortLink, error)
	Delete(ctx context.Context, code string, requesterID *string) error
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]domain.ShortLink, int64, error)
	Stats(ctx context.Context) (*domain.LinkStats, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// RateLimiter gates calls per client key. Check returns a
// domain.KindRateLimited error when the key is over budget.
type RateLimiter interface {
	Check(key string) error
	Cleanup() int
}
