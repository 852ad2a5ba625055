package errs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationErrorListsIssues(t *testing.T) {
	err := NewValidation("cart validation failed",
		FieldIssue{Field: "p1", Reason: "out_of_stock"},
		FieldIssue{Field: "p2", Reason: "price_drift"},
	)
	assert.Equal(t, "cart validation failed: p1: out_of_stock; p2: price_drift", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsConflict(err))
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{Shortfalls: []Shortfall{
		{ProductID: "p1", Required: 5, Available: 2},
		{ProductID: "p2", Required: 1, Available: 0},
	}}
	assert.Equal(t, "insufficient stock: p1 need 5 have 2; p2 need 1 have 0", err.Error())
	assert.True(t, IsInsufficientStock(err))
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	// 分类判断必须穿透 pkg/errors 的包装链
	wrapped := errors.Wrap(NewConflict("order", "state changed"), "confirm failed")
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))

	wrapped = errors.Wrap(NewNotFound("coupon", "SAVE10"), "resolve")
	assert.True(t, IsNotFound(wrapped))
}

func TestExternalErrorUnwraps(t *testing.T) {
	cause := assert.AnError
	err := NewExternal("payment_gateway", cause)
	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "payment_gateway")
}
