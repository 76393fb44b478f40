package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowsync/pkg/errors"
)

type sampleRequest struct {
	Kind string `validate:"required,oneof=query llm"`
	Text string `validate:"max=4"`
}

func TestValidateStruct_MapsOntoErrorTaxonomy(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Text: "too long"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	appErr := errors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
	assert.Contains(t, appErr.Message, "kind is required")
	assert.Contains(t, appErr.Message, "text exceeds the maximum of 4")
}

func TestValidateStruct_PassesValidInput(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sampleRequest{Kind: "query", Text: "ok"}))
}
