package notify

import (
	"errors"

	"go.uber.org/zap"
)

// Notifier is the fire-and-forget notification surface. Messages carry a
// title and a description; nothing is returned to the caller and delivery is
// never acknowledged.
type Notifier interface {
	Success(title, description string)
	Error(title, description string)
	Info(title, description string)
}

// Log is a zap-backed Notifier. The browser shows toasts; the service logs
// the same messages structured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) (*Log, error) {
	if logger == nil {
		return nil, errors.New("unable to initialize notifier due to the missing logger dependency")
	}

	return &Log{logger: logger}, nil
}

func (l *Log) Success(title, description string) {
	l.logger.Info(title, zap.String("description", description), zap.String("kind", "success"))
}

func (l *Log) Error(title, description string) {
	l.logger.Error(title, zap.String("description", description), zap.String("kind", "error"))
}

func (l *Log) Info(title, description string) {
	l.logger.Info(title, zap.String("description", description), zap.String("kind", "info"))
}
