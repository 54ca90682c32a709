package models

import (
	"fmt"
	"reflect"

	"github.com/dmitrijs2005/syncstore/internal/common"
)

// Operator is a filter comparison.
type Operator string

const (
	OpEq Operator = "="
	OpNe Operator = "<>"
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
	OpIn Operator = "IN"
)

func (op Operator) valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn:
		return true
	}
	return false
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindTime
)

// filterable item columns and the value kind they compare against
var filterKinds = map[Field]fieldKind{
	FieldID:            kindString,
	FieldParentID:      kindString,
	FieldPredecessorID: kindString,
	FieldSortIndex:     kindInt,
	FieldModified:      kindTime,
	FieldPayloadSize:   kindInt,
	FieldTTL:           kindInt,
}

// Filter is one (field, operator, value) condition. Filters in a query are
// combined with AND. OpIn takes a non-empty slice; other operators take a
// scalar. Values for FieldModified are float seconds.
type Filter struct {
	Field Field
	Op    Operator
	Value any
}

// Args validates f and returns its bind values with modified timestamps
// converted by encode. Invalid field/operator/value combinations return
// common.ErrInvalidFilter.
func (f Filter) Args(encode func(float64) int64) ([]any, error) {
	kind, ok := filterKinds[f.Field]
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not filterable", common.ErrInvalidFilter, f.Field)
	}
	if !f.Op.valid() {
		return nil, fmt.Errorf("%w: unknown operator %q", common.ErrInvalidFilter, f.Op)
	}

	if f.Op != OpIn {
		v, err := filterValue(kind, f.Value, encode)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", common.ErrInvalidFilter, f.Field, f.Op, err)
		}
		return []any{v}, nil
	}

	rv := reflect.ValueOf(f.Value)
	if f.Value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: %s IN needs a list", common.ErrInvalidFilter, f.Field)
	}
	if rv.Len() == 0 {
		return nil, fmt.Errorf("%w: %s IN needs at least one value", common.ErrInvalidFilter, f.Field)
	}
	args := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := filterValue(kind, rv.Index(i).Interface(), encode)
		if err != nil {
			return nil, fmt.Errorf("%w: %s IN: %v", common.ErrInvalidFilter, f.Field, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func filterValue(kind fieldKind, v any, encode func(float64) int64) (any, error) {
	switch kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		return s, nil
	case kindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, fmt.Errorf("want integer, got %T", v)
	default:
		switch n := v.(type) {
		case float64:
			return encode(n), nil
		case float32:
			return encode(float64(n)), nil
		case int:
			return encode(float64(n)), nil
		case int64:
			return encode(float64(n)), nil
		}
		return nil, fmt.Errorf("want seconds, got %T", v)
	}
}
