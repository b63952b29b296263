package engine

import (
	"testing"

	"github.com/ftahirops/killa/model"
	"github.com/stretchr/testify/assert"
)

func TestFreeze_Transitions(t *testing.T) {
	var f Freeze
	assert.False(t, f.Enabled())

	assert.False(t, f.Offer(&model.Snapshot{}), "disabled freeze does not buffer")
	pending, changed := f.Disable()
	assert.Nil(t, pending)
	assert.False(t, changed, "disable while disabled is a no-op")

	assert.True(t, f.Enable())
	assert.True(t, f.Enabled())
	assert.Nil(t, f.Pending())

	s1 := &model.Snapshot{Rows: []model.Row{{PID: 1}}}
	s2 := &model.Snapshot{Rows: []model.Row{{PID: 2}}}
	assert.True(t, f.Offer(s1))
	assert.True(t, f.Offer(s2))
	assert.Same(t, s2, f.Pending(), "latest snapshot wins")

	assert.False(t, f.Enable(), "enable while enabled is a no-op")
	assert.Same(t, s2, f.Pending(), "no-op enable keeps pending")

	pending, changed = f.Disable()
	assert.True(t, changed)
	assert.Same(t, s2, pending)
	assert.False(t, f.Enabled())
	assert.Nil(t, f.Pending())
}

func TestFreeze_DisableWithoutPending(t *testing.T) {
	var f Freeze
	f.Enable()
	pending, changed := f.Disable()
	assert.True(t, changed)
	assert.Nil(t, pending)
}
