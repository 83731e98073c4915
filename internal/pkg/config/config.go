package config

import (
	"io"
	"time"
)

// Config is the read side of the service configuration.
//
// Missing keys yield the zero value of the requested type. Durations are stored
// as whole numbers and scaled by the getter that reads them.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint16(key string) uint16
	GetFloat64(key string) float64

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads a "<a>,<b>,..." value, or a yaml list. Blank elements are dropped.
	GetArray(key string) []string

	// GetMap reads a "<k1>:<v1>,<k2>:<v2>" value, or a yaml mapping.
	GetMap(key string) map[string]string
}
