package view

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// GravatarURL builds the avatar URL for a commenter's email address.
// Parameters match the blog's historical avatar setup: 100px, rating g,
// "retro" fallback for addresses without a gravatar.
func GravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))

	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=100&d=retro&r=g"
}
