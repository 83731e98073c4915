package instrument

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	ctx := SetCorrelationID(context.Background(), "c-123")
	assert.Equal(t, "c-123", GetCorrelationID(ctx))
	assert.Empty(t, GetCorrelationID(context.Background()))
}

func TestMaskValue(t *testing.T) {
	t.Parallel()

	keys := MaskKeys([]string{" Email ", "phone", ""})
	got := MaskValue(map[string]any{
		"user_id": 7,
		"email":   "ana@example.com",
		"recipients": []any{
			map[string]any{"Phone": "+6281200000000"},
		},
	}, keys)

	assert.Equal(t, map[string]any{
		"user_id": 7,
		"email":   "***",
		"recipients": []any{
			map[string]any{"Phone": "***"},
		},
	}, got)
}

func TestMaskAttr(t *testing.T) {
	t.Parallel()

	keys := MaskKeys([]string{"device_token"})

	assert.Equal(t, "***", maskAttr(slog.String("device_token", "abc"), keys).Value.String())
	assert.Equal(t, `{"device_token":"***"}`, maskAttr(slog.String("body", `{"device_token":"abc"}`), keys).Value.String())
	assert.Equal(t, "plain", maskAttr(slog.String("body", "plain"), keys).Value.String())
}

func TestNewNoop(t *testing.T) {
	t.Parallel()

	ins := NewNoop()
	_, span := ins.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}
