package service

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid session data")
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrRecipeNotFound  = errors.New("recipe not found in session")
	ErrNotParticipant  = errors.New("user not in session")
)
