package scratch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffersPresetsSized(t *testing.T) {
	emb := Embedded()
	assert.Equal(t, 8*1024, cap(emb.Read))
	assert.Equal(t, 4*1024, cap(emb.XML))

	desk := Desktop()
	assert.Equal(t, 64*1024, cap(desk.Read))
	assert.Equal(t, 32*1024, cap(desk.XML))

	custom := Custom(100, 200)
	assert.Equal(t, 100, cap(custom.Read))
	assert.Equal(t, 200, cap(custom.XML))
}

func TestBuffersClearPreservesCapacity(t *testing.T) {
	b := Custom(16, 16)
	b.Read = append(b.Read, 1, 2, 3)
	b.GrowText([]byte("hello"))
	capBefore := cap(b.Read)

	b.Clear()

	assert.Equal(t, 0, len(b.Read))
	assert.Equal(t, capBefore, cap(b.Read))
	assert.Equal(t, []byte{}, b.GrowText(nil))
}

func TestChunkAllocatorCapsOutstanding(t *testing.T) {
	a := NewChunkAllocator(1024, 2)

	c1, ok := a.Acquire()
	require.True(t, ok)
	c2, ok := a.Acquire()
	require.True(t, ok)
	_, ok = a.Acquire()
	assert.False(t, ok, "acquiring beyond max should report unavailable")

	a.Release(c1)
	c3, ok := a.Acquire()
	assert.True(t, ok)
	assert.Equal(t, 0, len(c3))
	assert.Equal(t, 2, a.InUse())

	a.Release(c2)
	a.Release(c3)
	assert.Equal(t, 0, a.InUse())
}

func TestChunkAllocatorReleaseClearsChunk(t *testing.T) {
	a := NewChunkAllocator(4, 1)
	c, ok := a.Acquire()
	require.True(t, ok)
	c = append(c, 9, 9, 9, 9)
	a.Release(c)

	c2, ok := a.Acquire()
	require.True(t, ok)
	assert.Equal(t, 0, len(c2))
	assert.Equal(t, 4, cap(c2))
}

func TestPageContextElementStack(t *testing.T) {
	p := NewPageContext(1024)
	p.PushElement("body")
	p.PushElement("p")
	assert.Equal(t, []string{"body", "p"}, p.ElementStack)

	p.PopElement()
	assert.Equal(t, []string{"body"}, p.ElementStack)

	p.PopElement()
	p.PopElement() // no-op, stack already empty
	assert.Empty(t, p.ElementStack)
}

func TestPageContextBoundedTextAccumulation(t *testing.T) {
	p := NewPageContext(5)
	p.AppendText([]byte("hello world"))
	assert.Equal(t, "hello", string(p.Text()))
	assert.True(t, p.Truncated())

	p.ResetText()
	assert.Empty(t, p.Text())
	assert.False(t, p.Truncated())
}
