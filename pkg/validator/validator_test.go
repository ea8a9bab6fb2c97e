package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	VariantID string `validate:"required"`
	Quantity  int    `validate:"required,gte=1"`
	UnitPrice int64  `validate:"gte=0"`
}

func TestValidate_Passes(t *testing.T) {
	req := addItemRequest{VariantID: "v-1", Quantity: 2, UnitPrice: 1500}
	assert.NoError(t, Validate(req))
}

func TestValidate_RequiredField(t *testing.T) {
	req := addItemRequest{Quantity: 1}
	err := Validate(req)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "VariantID")
	assert.Equal(t, "is required", valErr.Fields()["VariantID"])
}

func TestValidate_RangeFields(t *testing.T) {
	req := addItemRequest{VariantID: "v-1", Quantity: 0, UnitPrice: -5}
	err := Validate(req)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "UnitPrice")
	assert.Contains(t, valErr.Error(), "field '")
}
