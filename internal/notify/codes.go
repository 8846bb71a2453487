package notify

import (
	"context"
	"log/slog"
)

// CodeSender delivers password reset codes.
type CodeSender interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogCodeSender writes the code to the log. Intended for development.
type LogCodeSender struct {
	Logger *slog.Logger
}

func (s LogCodeSender) SendResetCode(ctx context.Context, email, code string) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "password reset code issued", "email", email, "code", code)
	return nil
}
