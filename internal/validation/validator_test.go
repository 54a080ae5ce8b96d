package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
)

type sample struct {
	Purpose string  `json:"purpose" validate:"required,oneof=residence gap_investment"`
	Salary  float64 `json:"salary" validate:"gt=0"`
	Limit   int     `json:"limit" validate:"omitempty,max=20"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Purpose: "residence", Salary: 5000}))

	err := Struct(sample{Purpose: "rent", Limit: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "purpose must be one of: residence gap_investment", fields["purpose"])
	assert.Equal(t, "salary must be greater than 0", fields["salary"])
	assert.Equal(t, "limit must be at most 20", fields["limit"])
}
