// Package validate holds the input validators handlers run before touching
// the store. Each function returns a typed apperr error so failures carry
// their HTTP classification from the point they are detected.
package validate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/parley-chat/parley/internal/apperr"
)

const (
	GroupNameMin = 3
	GroupNameMax = 64
	ContentMax   = 4096
)

// GroupName trims and bounds-checks a group conversation name.
func GroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < GroupNameMin {
		return "", apperr.Validationf("group name must be at least %d characters", GroupNameMin).
			WithDetail("name", "too short")
	}
	if len(name) > GroupNameMax {
		return "", apperr.Validationf("group name must be at most %d characters", GroupNameMax).
			WithDetail("name", "too long")
	}
	return name, nil
}

// Content trims message text and enforces the length bound. Empty content is
// legal on its own; the content-or-image rule is checked at the call site
// because it spans two fields.
func Content(content string) (string, error) {
	content = strings.TrimSpace(content)
	if len(content) > ContentMax {
		return "", apperr.Validationf("message content must be at most %d characters", ContentMax).
			WithDetail("content", "too long")
	}
	return content, nil
}

// ImageURL accepts empty or an absolute http(s) URL.
func ImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validationf("image must be an http(s) URL").WithDetail("image", "invalid URL")
	}
	return nil
}

// ID parses a path or body identifier.
func ID(raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, apperr.Validationf("invalid id %q", raw)
	}
	return uint(n), nil
}

// Cursor parses the pagination cursor; empty means "from the newest".
func Cursor(raw string) (uint, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperr.Validationf("invalid cursor %q", raw).WithDetail("cursor", "must be a message id")
	}
	return uint(n), nil
}

// Limit parses a page size, applying the default and the hard cap.
func Limit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validationf("invalid limit %q", raw).WithDetail("limit", "must be a positive integer")
	}
	if n > max {
		return max, nil
	}
	return n, nil
}

// Offset parses a non-negative list offset.
func Offset(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validationf("invalid offset %q", raw)
	}
	return n, nil
}

// GroupMembers rejects a creator listed among the invited members and any
// duplicate ids. Existence and capacity are store concerns.
func GroupMembers(creatorID uint, memberIDs []uint) error {
	seen := make(map[uint]bool, len(memberIDs))
	for _, id := range memberIDs {
		if id == 0 {
			return apperr.Validationf("invalid member id 0")
		}
		if id == creatorID {
			return apperr.Validationf("creator must not appear in the member list")
		}
		if seen[id] {
			return apperr.Validationf("duplicate member id %d", id)
		}
		seen[id] = true
	}
	return nil
}
