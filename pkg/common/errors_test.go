package common

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorClassification(t *testing.T) {
	err := fmt.Errorf("apply: %w", NewValidationError("team", "unknown"))

	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "apply: invalid team: unknown", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "team", ve.Field)
}

func TestMatchFinishedIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrMatchFinished))
	assert.False(t, IsValidation(ErrNotFound))
}

func TestStorageErrorKeepsCause(t *testing.T) {
	err := StorageError("upsert match 3", sql.ErrConnDone)

	assert.True(t, errors.Is(err, ErrStorageFailed))
	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.Contains(t, err.Error(), "upsert match 3")
}
