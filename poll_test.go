package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoll_Constructors(t *testing.T) {
	r := Ready(7)
	assert.True(t, r.Ready())
	assert.False(t, r.Pending())
	assert.False(t, r.Cancelled())
	v, ok := r.Value()
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	p := PendingPoll[int]()
	assert.True(t, p.Pending())
	_, ok = p.Value()
	assert.False(t, ok)

	c := Cancelled[int]()
	assert.True(t, c.Cancelled())
	_, ok = c.Value()
	assert.False(t, ok)
}
