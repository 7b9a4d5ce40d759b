package services

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/core/domain"
)

const (
	DefaultMaxURLLength = 2048
	maxTitleLength      = 200
)

// ValidateTargetURL trims raw and accepts absolute http and https URLs with a host, up to
// maxLen bytes.
func ValidateTargetURL(raw string, maxLen int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.NewError(domain.KindInvalidURL, "url is required")
	}
	if len(raw) > maxLen {
		return "", domain.NewError(domain.KindInvalidURL, fmt.Sprintf("url exceeds %d characters", maxLen))
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindInvalidURL, Message: "url could not be parsed", Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", domain.NewError(domain.KindInvalidURL, "url scheme must be http or https")
	}
	if parsed.Host == "" {
		return "", domain.NewError(domain.KindInvalidURL, "url must include a host")
	}
	return raw, nil
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLength {
		return domain.NewError(domain.KindInvalidInput, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}
	return nil
}
