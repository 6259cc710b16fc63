package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("product %d", 42)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "product 42")
}

func TestWrapStore(t *testing.T) {
	assert.NoError(t, WrapStore("noop", nil))

	cause := errors.New("connection refused")
	err := WrapStore("query products", cause)

	var se *StoreError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "query products", se.Op)
	assert.True(t, errors.Is(err, cause))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("price", "must be >= 0")

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "price", ve.Field)
	assert.Equal(t, "invalid price: must be >= 0", err.Error())
}

func TestIsCategory(t *testing.T) {
	assert.True(t, IsCategory("jeans"))
	assert.True(t, IsCategory("Gaming consoles"))
	assert.False(t, IsCategory("gaming consoles"))
	assert.False(t, IsCategory("boats"))
}
