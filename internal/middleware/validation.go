package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateUserID validates a conversation userId path parameter.
func ValidateUserID(id string) error {
	if len(id) == 0 {
		return errors.New("userId cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("userId exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("userId must be valid UTF-8")
	}
	return nil
}

// ValidateMessageContent validates message content before delivery.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateID validates a uuid path parameter (labels, orders).
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid id format")
	}
	return nil
}
