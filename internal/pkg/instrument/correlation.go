package instrument

import "context"

type correlationIDKey struct{}

// SetCorrelationID stores the request or message correlation id in ctx.
func SetCorrelationID(ctx context.Context, cID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, cID)
}

// GetCorrelationID returns the correlation id stored in ctx, or "".
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	cID, _ := ctx.Value(correlationIDKey{}).(string)
	return cID
}
