package cpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		input    string
		expected CpeType
	}{
		{"ANY", TypeAny},
		{"h", TypeHardware},
		{"o", TypeOperatingSystem},
		{"a", TypeApplication},
		{"hardware", TypeHardware},
	}

	for _, c := range cases {
		parsed, err := ParseType(c.input)
		require.NoError(t, err, "input %q", c.input)
		assert.Equal(t, c.expected, parsed, "input %q", c.input)
	}
}

func TestParseTypeErrors(t *testing.T) {
	_, err := ParseType("")
	require.Error(t, err)
	assert.Equal(t, "No chars for type", err.Error())

	_, err = ParseType("x")
	require.Error(t, err)
	assert.Equal(t, "could not convert 'x' to cpe type", err.Error())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "ANY", TypeAny.String())
	assert.Equal(t, "h", TypeHardware.String())
	assert.Equal(t, "o", TypeOperatingSystem.String())
	assert.Equal(t, "a", TypeApplication.String())
}
