package utils

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	RequestIDSize      = 16
	NotificationIDSize = 21

	notificationIDPrefix = "ntf_"
	maxRequestIDLength   = 64
)

func NanoID(size int) string {
	if size <= 0 {
		size = NotificationIDSize
	}

	return gonanoid.MustGenerate(idAlphabet, size)
}

func RequestID() string {
	return NanoID(RequestIDSize)
}

// NotificationID is prefixed so a delivery can be told apart from a request
// id when both show up in the same log line.
func NotificationID() string {
	return notificationIDPrefix + NanoID(NotificationIDSize)
}

// ValidRequestID reports whether a caller supplied request id is safe to
// echo into headers and logs: bounded length, alphanumerics plus - _ . only.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}

	return strings.IndexFunc(id, func(r rune) bool {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return false
		case r == '-', r == '_', r == '.':
			return false
		}
		return true
	}) < 0
}
