package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/logging"
	"github.com/linkit-hq/linkit-engine/pkg/models"
)

type logDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher returns a Dispatcher that only logs messages.
// It stands in for the chat platform in development when no bot token is configured.
func NewLogDispatcher(logger *zap.Logger) Dispatcher {
	return &logDispatcher{logger: logger.Named("notify-log")}
}

var _ Dispatcher = (*logDispatcher)(nil)

func (d *logDispatcher) Notify(_ context.Context, to models.ActorID, msg Message) bool {
	d.logger.Info("Outbound message",
		zap.Int64("to", int64(to)),
		zap.String("text", logging.TruncateString(msg.Text, 200)),
		zap.Bool("photo", msg.PhotoRef != ""),
		zap.Int("button_rows", len(msg.Buttons)))
	return true
}
