package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type eventEngineHandle struct{ name string }

func TestArena_SetAndGetValue(t *testing.T) {
	a := newContextArena()

	_, ok := ArenaValue[eventEngineHandle](a)
	assert.False(t, ok)

	a = SetArenaValue(a, eventEngineHandle{name: "ee-1"})
	v, ok := ArenaValue[eventEngineHandle](a)
	assert.True(t, ok)
	assert.Equal(t, "ee-1", v.name)

	// Distinct types never collide on the same Arena.
	a = SetArenaValue(a, 42)
	n, ok := ArenaValue[int](a)
	assert.True(t, ok)
	assert.Equal(t, 42, n)
	v, ok = ArenaValue[eventEngineHandle](a)
	assert.True(t, ok)
	assert.Equal(t, "ee-1", v.name)
}
