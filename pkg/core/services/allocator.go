package services

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/ports"
)

const (
	// MaxAllocationAttempts bounds generate-and-check rounds per allocation.
	MaxAllocationAttempts = 10

	minCustomCodeLength = 3
	maxCustomCodeLength = 20
)

var customCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CodeAllocator hands out short codes that are not present in the store.
// The check is not atomic with the later insert; the store's unique
// constraint settles races.
type CodeAllocator struct {
	repo        ports.LinkRepository
	generate    CodeGenerator
	length      int
	maxAttempts int
}

func NewCodeAllocator(repo ports.LinkRepository, generate CodeGenerator, length int) *CodeAllocator {
	if generate == nil {
		generate = GenerateCode
	}
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &CodeAllocator{
		repo:        repo,
		generate:    generate,
		length:      length,
		maxAttempts: MaxAllocationAttempts,
	}
}

// Allocate returns candidate when it is well formed and free. With no
// candidate it generates codes until one is free or the attempt budget
// runs out.
func (a *CodeAllocator) Allocate(ctx context.Context, candidate *string) (string, error) {
	if candidate != nil {
		code := *candidate
		if err := ValidateCustomCode(code); err != nil {
			return "", err
		}
		exists, err := a.repo.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %q: %w", code, err)
		}
		if exists {
			return "", domain.NewError(domain.KindConflict, fmt.Sprintf("short code %q already exists", code))
		}
		return code, nil
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generate(a.length)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		exists, err := a.repo.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %q: %w", code, err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", &domain.Error{
		Kind:    domain.KindAllocationExhausted,
		Message: domain.ErrAllocationExhausted.Message,
		Err:     fmt.Errorf("%d attempts collided", a.maxAttempts),
	}
}

// ValidateCustomCode checks a caller-supplied code: 3 to 20 characters of
// letters, digits, '_' or '-'.
func ValidateCustomCode(code string) error {
	return validateCode(code, maxCustomCodeLength)
}

// ValidateStoredCode accepts any code the engine could have written: a custom
// code, or a generated one up to generatedLength characters.
func ValidateStoredCode(code string, generatedLength int) error {
	return validateCode(code, max(maxCustomCodeLength, generatedLength))
}

func validateCode(code string, maxLen int) error {
	if len(code) < minCustomCodeLength || len(code) > maxLen {
		return domain.NewError(domain.KindInvalidCode,
			fmt.Sprintf("short code must be %d-%d characters", minCustomCodeLength, maxLen))
	}
	if !customCodeRe.MatchString(code) {
		return domain.NewError(domain.KindInvalidCode, "short code may only contain letters, digits, '_' and '-'")
	}
	return nil
}
