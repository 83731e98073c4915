package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
modules:
  notification:
    workers: 7
    fetch_timeout_seconds: 4
    cron: "*/15 * * * *"
    consumer_names: "notification_dispatch_requested_worker, ,other"
    rate_per_second:
      email: "10"
      sms: "2"
authz:
  policies:
    - "admin, /api/v1/notification/dispatch, POST"
    - "admin, /api/v1/notification/attempts, GET"
`

func TestViperFromBytes(t *testing.T) {
	t.Parallel()

	cfg, err := NewViperFromBytes("yaml", []byte(sample), WithDefaults(map[string]any{
		"modules.notification.send_timeout_seconds": 10,
		"modules.notification.workers":              5,
	}))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.GetInt("modules.notification.workers"))
	assert.Equal(t, 4*time.Second, cfg.GetSecond("modules.notification.fetch_timeout_seconds"))
	assert.Equal(t, 10*time.Second, cfg.GetSecond("modules.notification.send_timeout_seconds"))
	assert.Equal(t, "*/15 * * * *", cfg.GetString("modules.notification.cron"))
	assert.Equal(t, []string{"notification_dispatch_requested_worker", "other"}, cfg.GetArray("modules.notification.consumer_names"))
	assert.Len(t, cfg.GetArray("authz.policies"), 2)
	assert.Equal(t, map[string]string{"email": "10", "sms": "2"}, cfg.GetMap("modules.notification.rate_per_second"))
	assert.Empty(t, cfg.GetArray("missing.key"))
}

func TestViperFromBytes_TypeRequired(t *testing.T) {
	t.Parallel()

	_, err := NewViperFromBytes(" ", []byte(sample))
	require.ErrorIs(t, err, ErrConfigTypeRequired)
}

func TestViperEnvOverride(t *testing.T) {
	t.Setenv("IRNOTIFY_MODULES_NOTIFICATION_SMS_API_KEY", "from-env")

	cfg, err := NewViperFromBytes("yaml", []byte("modules:\n  notification:\n    sms:\n      api_key: from-file\n"), WithEnvPrefix("IRNOTIFY"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GetString("modules.notification.sms.api_key"))
}
