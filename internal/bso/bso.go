// Package bso validates and normalizes Basic Storage Objects, the item
// records exchanged with sync clients, before they reach storage.
//
// A BSO arrives as a flat mapping of field name to scalar value. Validate
// checks it against the wire contract and returns a typed Record; the input
// mapping is never modified.
package bso

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field names accepted on the wire.
const (
	FieldID          = "id"
	FieldCollection  = "collection"
	FieldSortIndex   = "sortindex"
	FieldModified    = "modified"
	FieldPayload     = "payload"
	FieldPayloadSize = "payload_size"
	FieldTTL         = "ttl"
)

const (
	// MaxTTL is one year in seconds. Larger ttls are dropped, not rejected.
	MaxTTL = 31536000
	// MaxPayloadSize is the largest accepted payload in UTF-8 bytes.
	MaxPayloadSize = 256 * 1024
	MaxSortIndex   = 999999999
	MinSortIndex   = -999999999
)

var fields = map[string]struct{}{
	FieldID:          {},
	FieldCollection:  {},
	FieldSortIndex:   {},
	FieldModified:    {},
	FieldPayload:     {},
	FieldPayloadSize: {},
	FieldTTL:         {},
}

// printable ASCII, 1 to 64 characters
var validID = regexp.MustCompile(`^[ -~]{1,64}$`)

// ErrNonScalar is returned by NewRaw for composite values.
var ErrNonScalar = errors.New("bso fields must be scalar values")

// Raw is an unvalidated BSO as received from a client.
type Raw map[string]any

// NewRaw copies data into a Raw, dropping nil values. Values must be strings,
// integers, floats or json.Number; anything else fails immediately.
func NewRaw(data map[string]any) (Raw, error) {
	raw := make(Raw, len(data))
	for name, value := range data {
		if value == nil {
			continue
		}
		if !isScalar(value) {
			return nil, fmt.Errorf("%w: field %q has type %T", ErrNonScalar, name, value)
		}
		raw[name] = value
	}
	return raw, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// ValidationError describes the first rule a BSO failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Record is a validated, normalized BSO. Optional fields are nil when absent.
type Record struct {
	ID         string
	Collection string
	SortIndex  *int64
	// Modified is float seconds as sent by the client, not yet rounded.
	Modified    *float64
	Payload     *string
	PayloadSize int64
	TTL         *int64
}

// Raw returns the normalized mapping for r. Validating it again yields r.
func (r Record) Raw() Raw {
	raw := Raw{}
	if r.ID != "" {
		raw[FieldID] = r.ID
	}
	if r.Collection != "" {
		raw[FieldCollection] = r.Collection
	}
	if r.SortIndex != nil {
		raw[FieldSortIndex] = *r.SortIndex
	}
	if r.Modified != nil {
		raw[FieldModified] = *r.Modified
	}
	if r.Payload != nil {
		raw[FieldPayload] = *r.Payload
		raw[FieldPayloadSize] = r.PayloadSize
	}
	if r.TTL != nil {
		raw[FieldTTL] = *r.TTL
	}
	return raw
}

// String renders r without its payload.
func (r Record) String() string {
	raw := r.Raw()
	delete(raw, FieldPayload)
	b, _ := json.Marshal(raw)
	return "BSO(" + string(b) + ")"
}

// Check reports whether raw is valid and, if not, why.
func Check(raw Raw) (bool, string) {
	if _, err := Validate(raw); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Validate applies the wire rules to raw in order and returns the first
// failure as a *ValidationError.
func Validate(raw Raw) (Record, error) {
	var rec Record

	var unknown []string
	for name := range raw {
		if _, ok := fields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Record{}, invalid(unknown[0], fmt.Sprintf("unknown field %q", unknown[0]))
	}

	if v, ok := raw[FieldID]; ok {
		id, isString := v.(string)
		if !isString || !validID.MatchString(id) || strings.HasSuffix(id, "\n") {
			return Record{}, invalid(FieldID, "invalid id")
		}
		rec.ID = id
	}

	if v, ok := raw[FieldTTL]; ok {
		ttl, ok := toInt(v)
		if !ok || ttl < 0 {
			return Record{}, invalid(FieldTTL, "invalid ttl")
		}
		// Clients that cached a server-assigned ttl send it back; treat an
		// over-large value as absent.
		if ttl <= MaxTTL {
			rec.TTL = &ttl
		}
	}

	if v, ok := raw[FieldSortIndex]; ok {
		idx, ok := toInt(v)
		if !ok || idx > MaxSortIndex || idx < MinSortIndex {
			return Record{}, invalid(FieldSortIndex, "invalid sortindex")
		}
		rec.SortIndex = &idx
	}

	if v, ok := raw[FieldPayload]; ok {
		payload, isString := v.(string)
		if !isString || !utf8.ValidString(payload) {
			return Record{}, invalid(FieldPayload, "payload not a string")
		}
		size := int64(len(payload))
		if size > MaxPayloadSize {
			return Record{}, invalid(FieldPayload, "payload too large")
		}
		rec.Payload = &payload
		rec.PayloadSize = size
	}

	if v, ok := raw[FieldModified]; ok {
		modified, ok := toFloat(v)
		if !ok {
			return Record{}, invalid(FieldModified, "invalid modified")
		}
		rec.Modified = &modified
	}

	if v, ok := raw[FieldCollection]; ok {
		rec.Collection = fmt.Sprint(v)
	}

	return rec, nil
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}
	return 0, false
}

func uintToInt(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

// floatToInt truncates toward zero.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		i, ok := toInt(v)
		if !ok {
			return 0, false
		}
		f = float64(i)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
