package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeValueTypeValidate(t *testing.T) {
	cases := []struct {
		typ AttributeValueType
		v   string
		ok  bool
	}{
		{ValueTypePricePerKg, "3.50", true},
		{ValueTypePricePerKg, "3.505", false},
		{ValueTypePricePerPiece, "-1", false},
		{ValueTypeQuantity, "10", true},
		{ValueTypeQuantity, "1.5", false},
		{ValueTypeWeight, "0.25", true},
		{ValueTypeDate, "2024-06-01", true},
		{ValueTypeDate, "01/06/2024", false},
		{ValueTypeAvailable, "true", true},
		{ValueTypeAvailable, "maybe", false},
		{ValueTypePlace, "Kyoto, north field", true},
		{ValueTypePlace, "0123456789012345678901234567890123456789012345678901", false},
		{AttributeValueType("COLOR"), "red", false},
	}
	for _, tc := range cases {
		err := tc.typ.Validate(tc.v)
		if tc.ok {
			assert.NoError(t, err, "%s %q", tc.typ, tc.v)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAttributeValue, "%s %q", tc.typ, tc.v)
		}
	}
}

func TestAttributeValueTypeHelpers(t *testing.T) {
	assert.True(t, ValueTypePricePerKg.IsPrice())
	assert.False(t, ValueTypeQuantity.IsPrice())
	assert.True(t, ValueTypeWeight.IsNumeric())
	assert.False(t, ValueTypeDate.IsNumeric())
	assert.Equal(t, "KG", ValueTypePricePerKg.QuantityType())
	assert.Equal(t, "PIECE", ValueTypePricePerPiece.QuantityType())
	assert.False(t, AttributeValueType("X").IsValid())
}
