package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// DefaultCacheTTL bounds how long a resolved link stays cached.
	DefaultCacheTTL = time.Hour

	// MaxTTLHours caps expires_in_hours at ten years.
	MaxTTLHours = 10 * 365 * 24
)

// LinkService is the redirection and allocation engine.
type LinkService struct {
	repo      ports.LinkRepository
	clicks    ports.ClickRecorder
	cache     ports.LinkCache
	cacheTTL  time.Duration
	allocator *CodeAllocator

	generate     CodeGenerator
	codeLength   int
	maxURLLength int
	now          func() time.Time
}

type Option func(*LinkService)

func WithClock(now func() time.Time) Option {
	return func(s *LinkService) { s.now = now }
}

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *LinkService) { s.generate = gen }
}

func WithCodeLength(n int) Option {
	return func(s *LinkService) { s.codeLength = n }
}

func WithMaxURLLength(n int) Option {
	return func(s *LinkService) { s.maxURLLength = n }
}

// WithCache puts cache in front of code lookups on the redirect path.
func WithCache(cache ports.LinkCache, ttl time.Duration) Option {
	return func(s *LinkService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

func NewLinkService(repo ports.LinkRepository, clicks ports.ClickRecorder, opts ...Option) *LinkService {
	s := &LinkService{
		repo:         repo,
		clicks:       clicks,
		cacheTTL:     DefaultCacheTTL,
		generate:     GenerateCode,
		codeLength:   DefaultCodeLength,
		maxURLLength: DefaultMaxURLLength,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxURLLength <= 0 {
		s.maxURLLength = DefaultMaxURLLength
	}
	s.allocator = NewCodeAllocator(repo, s.generate, s.codeLength)
	return s
}

func (s *LinkService) Create(ctx context.Context, in ports.CreateLinkInput) (*domain.ShortLink, error) {
	target, err := ValidateTargetURL(in.TargetURL, s.maxURLLength)
	if err != nil {
		return nil, err
	}

	var title string
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if in.TTLHours != nil {
		if *in.TTLHours == 0 {
			return nil, domain.NewError(domain.KindInvalidInput, "expires_in_hours must be positive")
		}
		if *in.TTLHours > MaxTTLHours {
			return nil, domain.NewError(domain.KindInvalidInput, fmt.Sprintf("expires_in_hours must be at most %d", MaxTTLHours))
		}
		t := now.Add(time.Duration(*in.TTLHours) * time.Hour)
		expiresAt = &t
	}

	var link *domain.ShortLink
	for attempt := 1; ; attempt++ {
		code, err := s.allocator.Allocate(ctx, in.Code)
		if err != nil {
			return nil, err
		}

		link = &domain.ShortLink{
			ID:        uuid.NewString(),
			Code:      code,
			TargetURL: target,
			Title:     title,
			OwnerID:   in.OwnerID,
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.repo.Create(ctx, link)
		if err == nil {
			break
		}
		// A caller-supplied code is never swapped for another one.
		if !errors.Is(err, domain.ErrConflict) || in.Code != nil {
			return nil, err
		}
		if attempt >= MaxAllocationAttempts {
			return nil, &domain.Error{Kind: domain.KindAllocationExhausted, Message: domain.ErrAllocationExhausted.Message, Err: err}
		}
		log.Printf("short code %s was taken before insert, retrying", code)
	}

	stored, err := s.repo.GetByID(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("reload link %s: %w", link.ID, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("link %s missing after insert", link.ID)
	}

	log.Printf("created short link code=%s id=%s", stored.Code, stored.ID)
	return stored, nil
}

// Resolve returns the target URL for code and queues a click. Expired links
// are reported as not found.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", domain.ErrNotFound
	}
	if IsExpired(link.ExpiresAt, s.now()) {
		log.Printf("expired link requested: %s", code)
		return "", domain.ErrNotFound
	}

	s.clicks.Record(code)
	return link.TargetURL, nil
}

// GetInfo returns the stored record for code without counting a click.
func (s *LinkService) GetInfo(ctx context.Context, code string) (*domain.ShortLink, error) {
	return s.getLive(ctx, code)
}

// Delete removes the link for code. Owned links may only be deleted by their
// owner; ownerless links by anyone.
func (s *LinkService) Delete(ctx context.Context, code string, requesterID *string) error {
	link, err := s.getLive(ctx, code)
	if err != nil {
		return err
	}
	if link.OwnerID != nil && !link.OwnedBy(requesterID) {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, link.ID); err != nil {
		return fmt.Errorf("delete link %s: %w", link.ID, err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, code); err != nil {
			log.Printf("failed to evict cached link %s: %v", code, err)
		}
	}

	log.Printf("deleted short link code=%s id=%s", code, link.ID)
	return nil
}

// ListByOwner returns one page of ownerID's links, newest first, and the
// owner's total link count.
func (s *LinkService) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]domain.ShortLink, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := (page - 1) * limit

	links, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	return links, count, nil
}

func (s *LinkService) Stats(ctx context.Context) (*domain.LinkStats, error) {
	return s.repo.Stats(ctx)
}

// PurgeExpired deletes every link whose expiry has passed and returns the
// number removed.
func (s *LinkService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired links: %w", err)
	}
	if n > 0 {
		log.Printf("purged %d expired links", n)
	}
	return n, nil
}

func (s *LinkService) getLive(ctx context.Context, code string) (*domain.ShortLink, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if link == nil || IsExpired(link.ExpiresAt, s.now()) {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (s *LinkService) lookup(ctx context.Context, code string) (*domain.ShortLink, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, code)
		if err != nil {
			log.Printf("link cache read failed for %s: %v", code, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil || link == nil {
		return link, err
	}

	if s.cache != nil {
		ttl := s.cacheTTL
		if link.ExpiresAt != nil {
			if until := link.ExpiresAt.Sub(s.now()); until < ttl {
				ttl = until
			}
		}
		if ttl > 0 {
			if err := s.cache.Set(ctx, link, ttl); err != nil {
				log.Printf("link cache write failed for %s: %v", code, err)
			}
		}
	}
	return link, nil
}

var _ ports.LinkService = (*LinkService)(nil)
