package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortlink/internal/types"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks shortlink/internal/service Store

const DefaultMaxAttempts = 100

var (
	ErrAliasConflict       = errors.New("alias already exists")
	ErrGenerationExhausted = errors.New("unable to generate a unique short code")
	ErrNotFound            = errors.New("short code not found")
	ErrExpired             = errors.New("short link expired")
)

// Store is the persistence the shortener relies on. Get and
// IncrementAndTouch return a nil link and a nil error when the code does
// not exist.
type Store interface {
	// InsertIfAbsent writes link only if its code is free, as a single
	// atomic operation. It reports whether the write happened.
	InsertIfAbsent(ctx context.Context, link *types.ShortLink) (bool, error)
	Get(ctx context.Context, code string) (*types.ShortLink, error)
	// IncrementAndTouch atomically adds one click and sets the last access
	// time, returning the updated link.
	IncrementAndTouch(ctx context.Context, code string, now time.Time) (*types.ShortLink, error)
}

type AllocateRequest struct {
	TargetURL   string
	CustomAlias string
	ExpiresAt   *time.Time
	OwnerID     *string
}

type Shortener struct {
	store         Store
	generator     CodeGenerator
	maxAttempts   int
	enforceExpiry bool
	now           func() time.Time
}

type Option func(*Shortener)

func WithGenerator(g CodeGenerator) Option {
	return func(s *Shortener) { s.generator = g }
}

func WithMaxAttempts(n int) Option {
	return func(s *Shortener) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithExpiryEnforcement makes Resolve reject links whose expiry has passed.
// Off by default: expiry is stored but not checked.
func WithExpiryEnforcement(enforce bool) Option {
	return func(s *Shortener) { s.enforceExpiry = enforce }
}

func WithClock(now func() time.Time) Option {
	return func(s *Shortener) { s.now = now }
}

func NewShortener(store Store, opts ...Option) *Shortener {
	s := &Shortener{
		store:       store,
		generator:   NewGenerator(DefaultCodeLength),
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate stores a new link and returns its code. A custom alias is
// claimed as-is or fails with ErrAliasConflict; otherwise random codes are
// tried until one is free or the attempt budget runs out.
func (s *Shortener) Allocate(ctx context.Context, req AllocateRequest) (string, error) {
	link := &types.ShortLink{
		TargetURL: req.TargetURL,
		ExpiresAt: req.ExpiresAt,
		OwnerID:   req.OwnerID,
		CreatedAt: s.now().UTC(),
	}

	if alias := strings.TrimSpace(req.CustomAlias); alias != "" {
		link.Code = alias
		inserted, err := s.store.InsertIfAbsent(ctx, link)
		if err != nil {
			return "", fmt.Errorf("failed to insert alias %q: %w", alias, err)
		}
		if !inserted {
			return "", ErrAliasConflict
		}
		return alias, nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		link.Code = s.generator.Generate()
		if reservedCodes[link.Code] {
			slog.Debug("generated code shadows a route", "code", link.Code, "attempt", attempt)
			continue
		}
		inserted, err := s.store.InsertIfAbsent(ctx, link)
		if err != nil {
			return "", fmt.Errorf("failed to insert short code: %w", err)
		}
		if inserted {
			return link.Code, nil
		}
		slog.Debug("short code collision", "code", link.Code, "attempt", attempt)
	}

	slog.Warn("short code space exhausted", "attempts", s.maxAttempts)
	return "", ErrGenerationExhausted
}

// Resolve counts one access to code and returns its target URL.
func (s *Shortener) Resolve(ctx context.Context, code string) (string, error) {
	now := s.now().UTC()

	if s.enforceExpiry {
		// expires_at never changes after creation, so reading it first
		// cannot race with the increment below.
		link, err := s.GetRecord(ctx, code)
		if err != nil {
			return "", err
		}
		if link.ExpiredAt(now) {
			return "", ErrExpired
		}
	}

	link, err := s.store.IncrementAndTouch(ctx, code, now)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", code, err)
	}
	if link == nil {
		return "", ErrNotFound
	}
	return link.TargetURL, nil
}

// GetRecord returns the stored link without touching its counters.
func (s *Shortener) GetRecord(ctx context.Context, code string) (*types.ShortLink, error) {
	link, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", code, err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}
