package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedemptionMetadata_WithVoidPreservesExtra(t *testing.T) {
	meta := RedemptionMetadata{Extra: map[string]any{"foo": "bar"}}
	at := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

	merged := meta.WithVoid(at, "staff-1", "wrong drink")

	assert.Equal(t, "bar", merged.Extra["foo"])
	assert.Equal(t, "staff-1", merged.VoidedBy)
	assert.Equal(t, "wrong drink", merged.VoidReason)
	require.NotNil(t, merged.VoidedAt)
	assert.Equal(t, at, *merged.VoidedAt)

	// The original is untouched.
	assert.Nil(t, meta.VoidedAt)
	assert.Empty(t, meta.VoidReason)
}

func TestRedemptionMetadata_WithVoidCopiesExtraMap(t *testing.T) {
	meta := RedemptionMetadata{Extra: map[string]any{"foo": "bar"}}
	merged := meta.WithVoid(time.Now(), "staff-1", "x")

	merged.Extra["foo"] = "mutated"
	assert.Equal(t, "bar", meta.Extra["foo"])
}

func TestRedemptionMetadata_JSONRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	meta := RedemptionMetadata{
		VoidedAt:   &at,
		VoidedBy:   "staff-1",
		VoidReason: "x",
		Extra:      map[string]any{"foo": "bar"},
	}

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "bar", flat["foo"])
	assert.Equal(t, "staff-1", flat["voided_by"])
	assert.Equal(t, "x", flat["void_reason"])

	var decoded RedemptionMetadata
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "bar", decoded.Extra["foo"])
	assert.Equal(t, "staff-1", decoded.VoidedBy)
	require.NotNil(t, decoded.VoidedAt)
	assert.True(t, decoded.VoidedAt.Equal(at))
	// Recognized keys never leak into Extra.
	assert.NotContains(t, decoded.Extra, "voided_by")
}

func TestRedemptionMetadata_ScanValue(t *testing.T) {
	meta := RedemptionMetadata{Extra: map[string]any{"note": "comped"}}

	value, err := meta.Value()
	require.NoError(t, err)

	var scanned RedemptionMetadata
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, "comped", scanned.Extra["note"])

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned.Extra)
}

func TestDaySet(t *testing.T) {
	s := NewDaySet(1, 3, 7)

	assert.True(t, s.Has(1))
	assert.False(t, s.Has(2))
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(0))
	assert.False(t, s.Has(8))
	assert.Equal(t, []int{1, 3, 7}, s.Days())
	assert.False(t, s.IsEmpty())
	assert.True(t, NewDaySet().IsEmpty())

	// Out of range days are dropped.
	assert.True(t, NewDaySet(0, 8, -1).IsEmpty())
}

func TestDaySet_JSONRoundTrip(t *testing.T) {
	s := NewDaySet(2, 5)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, "[2,5]", string(data))

	var decoded DaySet
	require.NoError(t, json.Unmarshal([]byte("[5,2]"), &decoded))
	assert.Equal(t, s, decoded)
}
