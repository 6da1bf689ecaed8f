package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestDataKey contextKey = "request_data"

// RequestData is what auth middleware extracts from a verified token.
type RequestData struct {
	UserID uuid.UUID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) (*RequestData, bool) {
	rd, ok := ctx.Value(requestDataKey).(*RequestData)
	if !ok || rd == nil {
		return nil, false
	}
	return rd, true
}
