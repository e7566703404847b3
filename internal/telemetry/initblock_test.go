package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitBlock_Drain(t *testing.T) {
	var b InitBlock

	_, ok := b.DrainIfNonEmpty()
	assert.False(t, ok)

	b.Push("one")
	b.Push("")
	b.Push("three")
	assert.Equal(t, 3, b.Len())

	text, ok := b.DrainIfNonEmpty()
	assert.True(t, ok)
	assert.Equal(t, "one\n\nthree", text)
	assert.Equal(t, 0, b.Len())

	_, ok = b.DrainIfNonEmpty()
	assert.False(t, ok)
}

func TestInitBlock_Forget(t *testing.T) {
	var b InitBlock
	b.Push("one")
	b.Forget()
	_, ok := b.DrainIfNonEmpty()
	assert.False(t, ok)
}
