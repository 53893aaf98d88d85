// Package notify delivers outbound messages to actors through the chat platform.
// Delivery is best effort: a failed send is logged and reported as false, never as an error.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

// Callback data prefixes carried by the accept/reject buttons.
const (
	CallbackAccept = "conn_accept"
	CallbackReject = "conn_reject"
)

// Button is one inline keyboard button.
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Message is a platform-neutral outbound message.
// When PhotoRef is set the text is sent as the photo caption.
type Message struct {
	Text     string
	PhotoRef string
	Buttons  [][]Button
}

// Dispatcher sends a message to an actor and reports whether delivery succeeded.
type Dispatcher interface {
	Notify(ctx context.Context, to models.ActorID, msg Message) bool
}

// DecisionButtons returns the accept/reject keyboard for a pending request.
func DecisionButtons(requestID uuid.UUID) [][]Button {
	return [][]Button{{
		{Text: "✅ Принять", Data: fmt.Sprintf("%s:%s", CallbackAccept, requestID)},
		{Text: "❌ Отклонить", Data: fmt.Sprintf("%s:%s", CallbackReject, requestID)},
	}}
}
