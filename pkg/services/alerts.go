package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/metrics"
	"github.com/linkit-hq/linkit-engine/pkg/models"
	"github.com/linkit-hq/linkit-engine/pkg/notify"
)

// OperatorAlerter reports fatal failures to the operator chat.
type OperatorAlerter interface {
	Alert(ctx context.Context, actor models.ActorID, conversationID int64, errorType string)
}

type operatorAlerter struct {
	adminChatID models.ActorID
	dispatcher  notify.Dispatcher
	renderer    *notify.Renderer
	logger      *zap.Logger
}

// NewOperatorAlerter creates an alerter. A zero adminChatID disables alerts.
func NewOperatorAlerter(adminChatID int64, dispatcher notify.Dispatcher, renderer *notify.Renderer, logger *zap.Logger) OperatorAlerter {
	return &operatorAlerter{
		adminChatID: models.ActorID(adminChatID),
		dispatcher:  dispatcher,
		renderer:    renderer,
		logger:      logger.Named("operator-alerts"),
	}
}

var _ OperatorAlerter = (*operatorAlerter)(nil)

func (a *operatorAlerter) Alert(ctx context.Context, actor models.ActorID, conversationID int64, errorType string) {
	if a.adminChatID == 0 {
		return
	}
	metrics.OperatorAlerts.Inc()
	// The triggering request may already be canceled; the alert should still go out.
	ctx = context.WithoutCancel(ctx)
	if !a.dispatcher.Notify(ctx, a.adminChatID, a.renderer.OperatorAlert(actor, conversationID, errorType)) {
		a.logger.Debug("Failed to send operator alert")
	}
}

// ErrorType names the innermost error's Go type, e.g. "*pgconn.PgError".
func ErrorType(err error) string {
	if err == nil {
		return "<nil>"
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
