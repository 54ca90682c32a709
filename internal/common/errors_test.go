package common

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError_HidesBackendDetail(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.7:5432: connection refused")
	err := &StoreError{Op: "get item", Err: cause}

	assert.Equal(t, "storage unavailable: get item", err.Error())
	assert.NotContains(t, err.Error(), "10.0.0.7")
}

func TestStoreError_Matching(t *testing.T) {
	err := fmt.Errorf("set items: %w", &StoreError{Op: "upsert", Err: sql.ErrConnDone})

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, ErrorNotFound)

	var se *StoreError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "upsert", se.Op)
}
