package bso

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRaw(t *testing.T, data map[string]any) Raw {
	t.Helper()
	raw, err := NewRaw(data)
	require.NoError(t, err)
	return raw
}

func TestNewRaw_RejectsNonScalar(t *testing.T) {
	for _, v := range []any{
		[]string{"non", "scalar", "value"},
		map[string]any{"a": 1},
		true,
		struct{}{},
	} {
		_, err := NewRaw(map[string]any{"payload": v})
		assert.ErrorIs(t, err, ErrNonScalar, "value %#v", v)
	}
}

func TestNewRaw_DropsNil(t *testing.T) {
	raw := mustRaw(t, map[string]any{"id": "a", "payload": nil})
	assert.Equal(t, Raw{"id": "a"}, raw)
}

func TestValidate_Empty(t *testing.T) {
	ok, reason := Check(Raw{})
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidate_UnknownField(t *testing.T) {
	_, err := Validate(mustRaw(t, map[string]any{"boooo": "", "id": "x"}))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "boooo", verr.Field)

	ok, _ := Check(Raw{"parentid": "p"})
	assert.False(t, ok, "parentid is not a wire field")
}

func TestValidate_ID(t *testing.T) {
	tests := []struct {
		name string
		id   any
		ok   bool
	}{
		{"simple", "abc123", true},
		{"max length", strings.Repeat("x", 64), true},
		{"spaces and symbols", " {~}! ", true},
		{"empty", "", false},
		{"too long", strings.Repeat("bigid", 30), false},
		{"non ascii", "I AM A ☃", false},
		{"trailing newline", "abc\n", false},
		{"control char", "a\tb", false},
		{"not a string", 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Check(Raw{"id": tt.id})
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, "invalid id", reason)
			}
		})
	}
}

func TestValidate_SortIndex(t *testing.T) {
	rec, err := Validate(Raw{"sortindex": "12"})
	require.NoError(t, err)
	require.NotNil(t, rec.SortIndex)
	assert.Equal(t, int64(12), *rec.SortIndex)

	rec, err = Validate(Raw{"sortindex": "9999"})
	require.NoError(t, err)
	assert.Equal(t, int64(9999), *rec.SortIndex)

	rec, err = Validate(Raw{"sortindex": json.Number("-999999999")})
	require.NoError(t, err)
	assert.Equal(t, int64(MinSortIndex), *rec.SortIndex)

	for _, bad := range []any{9999999999, "9999999999", -1000000000, "ok", "1.5"} {
		ok, reason := Check(Raw{"sortindex": bad})
		assert.False(t, ok, "sortindex %v", bad)
		assert.Equal(t, "invalid sortindex", reason)
	}
}

func TestValidate_TTL(t *testing.T) {
	rec, err := Validate(Raw{"ttl": 3600})
	require.NoError(t, err)
	require.NotNil(t, rec.TTL)
	assert.Equal(t, int64(3600), *rec.TTL)

	for _, bad := range []any{"bouh", -1} {
		ok, reason := Check(Raw{"ttl": bad})
		assert.False(t, ok)
		assert.Equal(t, "invalid ttl", reason)
	}

	rec, err = Validate(Raw{"ttl": 31537000})
	require.NoError(t, err, "over-large ttl is dropped, not rejected")
	assert.Nil(t, rec.TTL)
	_, present := rec.Raw()["ttl"]
	assert.False(t, present)
}

func TestValidate_Payload(t *testing.T) {
	rec, err := Validate(Raw{"payload": strings.Repeat("X", 30000)})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), rec.PayloadSize)

	ok, reason := Check(Raw{"payload": strings.Repeat("X", 300000)})
	assert.False(t, ok)
	assert.Equal(t, "payload too large", reason)

	ok, reason = Check(Raw{"payload": 42})
	assert.False(t, ok)
	assert.Equal(t, "payload not a string", reason)

	// size is in UTF-8 bytes, not characters
	rec, err = Validate(Raw{"payload": "héllo ☃"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.PayloadSize)

	// client supplied sizes are not trusted
	rec, err = Validate(Raw{"payload": "hello", "payload_size": 9000})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.PayloadSize)
}

func TestValidate_Modified(t *testing.T) {
	rec, err := Validate(Raw{"modified": "1700000000.25"})
	require.NoError(t, err)
	assert.Equal(t, 1700000000.25, *rec.Modified)

	ok, reason := Check(Raw{"modified": "yesterday"})
	assert.False(t, ok)
	assert.Equal(t, "invalid modified", reason)
}

func TestValidate_FirstFailureWins(t *testing.T) {
	_, err := Validate(Raw{"id": "", "ttl": -1, "sortindex": "nope"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldID, verr.Field)

	_, err = Validate(Raw{"ttl": -1, "sortindex": "nope"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldTTL, verr.Field)
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	raw := Raw{"sortindex": "5", "ttl": 99999999, "payload": "abc"}
	before := Raw{"sortindex": "5", "ttl": 99999999, "payload": "abc"}

	_, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw)
}

func TestValidate_Revalidation(t *testing.T) {
	raw := mustRaw(t, map[string]any{
		"id":         "abc123",
		"collection": "history",
		"sortindex":  "5",
		"modified":   1700000000.5,
		"payload":    "hello",
		"ttl":        json.Number("3600"),
	})

	first, err := Validate(raw)
	require.NoError(t, err)

	second, err := Validate(first.Raw())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-validation changed the record (-first +second):\n%s", diff)
	}
	assert.Equal(t, "abc123", second.ID)
	assert.Equal(t, "history", second.Collection)
	assert.Equal(t, "hello", *second.Payload)
	assert.Equal(t, int64(5), second.PayloadSize)
}

func TestRecord_StringOmitsPayload(t *testing.T) {
	payload := "secret"
	s := Record{ID: "a", Payload: &payload, PayloadSize: 6}.String()
	assert.NotContains(t, s, "secret")
	assert.Contains(t, s, `"payload_size":6`)
}
