// Package validation holds the input rules shared by pins and replies.
package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxBodyBytes bounds a pin or reply body on the server. The composer's
	// own limit is lower.
	MaxBodyBytes = 10000

	// MaxAuthorRunes matches the author_name column width.
	MaxAuthorRunes = 120
)

// CommentBody trims raw and checks it is non-empty and within MaxBodyBytes.
func CommentBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", fmt.Errorf("body is required")
	}
	if len(body) > MaxBodyBytes {
		return "", fmt.Errorf("body too long (max %d bytes)", MaxBodyBytes)
	}
	if !utf8.ValidString(body) {
		return "", fmt.Errorf("body must be valid UTF-8")
	}
	return body, nil
}

// AuthorName trims the display name. Blank is allowed and means anonymous.
func AuthorName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxAuthorRunes {
		return "", fmt.Errorf("author name too long (max %d characters)", MaxAuthorRunes)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("author name cannot contain control characters")
	}
	return name, nil
}

// Position checks that a pin position is a pair of finite numbers. Positions
// off the poster are stored as given.
func Position(x, y float64) error {
	if !finite(x) || !finite(y) {
		return fmt.Errorf("coordinates must be finite numbers")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
