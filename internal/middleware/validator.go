package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

// AllowedImageTypes are the image formats the image-risk providers accept.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ValidateImage checks size and sniffs the real content type, ignoring whatever the
// client claimed. It returns the sniffed MIME type.
func ValidateImage(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("image is %d bytes, limit is %d", len(data), maxBytes)
	}
	mime := http.DetectContentType(data)
	if !AllowedImageTypes[mime] {
		return "", fmt.Errorf("unsupported image type %s (allowed: jpeg, png, webp, gif)", mime)
	}
	return mime, nil
}

// MaxMessages bounds a conversation transcript.
const MaxMessages = 200

// ValidateMessages sanitizes every message and rejects oversized transcripts.
func ValidateMessages(messages []string) ([]string, error) {
	if len(messages) > MaxMessages {
		return nil, fmt.Errorf("too many messages: %d (max %d)", len(messages), MaxMessages)
	}
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, SanitizeString(m))
	}
	return out, nil
}

// ValidateNickname allows 1 to 32 printable characters.
func ValidateNickname(nick string) error {
	nick = SanitizeString(nick)
	if nick == "" {
		return fmt.Errorf("nickname cannot be empty")
	}
	if utf8.RuneCountInString(nick) > 32 {
		return fmt.Errorf("nickname is longer than 32 characters")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7
	}
	if days > 365 {
		return 365
	}
	return days
}
