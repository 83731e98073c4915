package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type preferenceInput struct {
	Channel       string   `validate:"required,channel"`
	LookaheadDays int      `validate:"min=1,max=90"`
	Sectors       []string `validate:"dive,notblank"`
}

func TestV10Validator(t *testing.T) {
	t.Parallel()

	v, err := NewV10Validator()
	require.NoError(t, err)

	require.NoError(t, v.Validate(preferenceInput{Channel: "email", LookaheadDays: 2, Sectors: []string{"Energy"}}))

	err = v.Validate(preferenceInput{Channel: "fax", LookaheadDays: 0, Sectors: []string{" "}})
	require.Error(t, err)

	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Channel must be one of email, sms, desktop, mobile", verr.Values()["channel"])
	assert.Contains(t, verr.Values(), "lookahead_days")
	assert.Contains(t, verr.Values(), "sectors[0]")
}
