package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewayplane/gatewayplane/internal/api/models"
)

func TestTimestamp_MarshalsUTC(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	ts := models.Timestamp(time.Date(2026, 3, 1, 13, 30, 0, 999, berlin))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-03-01T12:30:00Z"`, string(data))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var ts models.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2026-03-01T12:30:00+02:00"`), &ts))
	assert.True(t, ts.Time().Equal(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)))

	var untouched models.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &untouched))
	assert.True(t, untouched.Time().IsZero())

	assert.Error(t, json.Unmarshal([]byte(`1700000000`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}
