package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "cv.pdf", SafeFilename("cv.pdf"))
	assert.Equal(t, "cv.pdf", SafeFilename("../../etc/cv.pdf"))
	assert.Equal(t, "cv.pdf", SafeFilename(`C:\Users\jane\cv.pdf`))
	assert.Equal(t, "resume.pdf", SafeFilename(""))
	assert.Equal(t, "resume.pdf", SafeFilename(".."))
	assert.Equal(t, "jane doe.pdf", SafeFilename("jane doe.pdf"))
}

func TestParseOptional(t *testing.T) {
	f, err := ParseOptionalFloat("")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = ParseOptionalFloat(" 1250000.5 ")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, 1250000.5, *f)

	_, err = ParseOptionalFloat("abc")
	assert.Error(t, err)

	i, err := ParseOptionalInt("30")
	require.NoError(t, err)
	require.NotNil(t, i)
	assert.Equal(t, 30, *i)

	i, err = ParseOptionalInt("  ")
	require.NoError(t, err)
	assert.Nil(t, i)
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", *StringPtr("x"))
}
