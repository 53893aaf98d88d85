package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/linkit-hq/linkit-engine/pkg/auth"
	"github.com/linkit-hq/linkit-engine/pkg/services"
)

const panicApology = `{"error":"internal_error","message":"Что-то пошло не так. Попробуй ещё раз чуть позже."}`

// Recover turns a handler panic into a 500 response and an operator alert.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recover(alerter services.OperatorAlerter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				logger.Error("Handler panic",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"))
				if alerter != nil {
					alerter.Alert(ctx, auth.GetActorIDFromContext(ctx), auth.GetConversationIDFromContext(ctx), "panic")
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(panicApology))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
