package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type createUserPayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(createUserPayload{Name: "ada", Email: "ada@example.com"})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(createUserPayload{Email: "not-an-email"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)

	fields := []string{failures[0].Field, failures[1].Field}
	require.ElementsMatch(t, []string{"name", "email"}, fields)
	require.Contains(t, err.Error(), "failed on")
}
