package http

import (
	"context"
	"time"
)

type ctxKey string

const (
	ctxKeyUserID  ctxKey = "user_id"
	ctxKeyReceipt ctxKey = "token_receipt"
)

// TokenReceipt is the typed record of a token issued while handling the
// current request. Authentication handlers fill it in when they set the
// access-token cookie; the session pipeline reads it during post-processing
// instead of re-parsing serialized Set-Cookie headers.
type TokenReceipt struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

func (tr *TokenReceipt) set(userID, accessToken string, expiresAt time.Time) {
	tr.UserID = userID
	tr.AccessToken = accessToken
	tr.ExpiresAt = expiresAt
}

// UserIDFromContext returns the identity the session pipeline attached to the
// request, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ctxKeyUserID).(string)
	return userID, ok && userID != ""
}

func contextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

func contextWithReceipt(ctx context.Context, tr *TokenReceipt) context.Context {
	return context.WithValue(ctx, ctxKeyReceipt, tr)
}

func receiptFromContext(ctx context.Context) *TokenReceipt {
	tr, _ := ctx.Value(ctxKeyReceipt).(*TokenReceipt)
	return tr
}
