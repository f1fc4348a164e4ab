package unitofwork

import (
	"context"

	"ai-plantcare-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ContextEntryRepository() contract.ContextEntryRepository
}

// Factory builds a fresh UnitOfWork per request/turn so transactions never
// leak across goroutines.
type Factory func(ctx context.Context) UnitOfWork
