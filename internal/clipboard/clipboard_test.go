package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInProcessFallbackRoundTrips(t *testing.T) {
	b := &Board{}
	require := assert.New(t)

	require.NoError(b.WriteText("hello world"))
	got, err := b.ReadText()
	require.NoError(err)
	require.Equal("hello world", got)
}

func TestReadTextEmptyByDefault(t *testing.T) {
	b := &Board{}
	got, err := b.ReadText()
	assert.NoError(t, err)
	assert.Equal(t, "", got)
}
