package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/patchbridge/pkg/plugins"
)

func TestHandles(t *testing.T) {
	h := NewHandles()

	assert.Equal(t, int64(0), h.Put(nil))
	assert.Equal(t, 0, h.Len())

	a := &plugins.Instance{MainClass: "example.com/a.Plugin"}
	b := &plugins.Instance{MainClass: "example.com/b.Plugin"}
	ha := h.Put(a)
	hb := h.Put(b)
	assert.NotZero(t, ha)
	assert.NotEqual(t, ha, hb)
	assert.Equal(t, 2, h.Len())

	assert.Same(t, a, h.Get(ha))
	assert.Nil(t, h.Get(0))
	assert.Nil(t, h.Get(hb+100))

	assert.Same(t, a, h.Delete(ha))
	assert.Nil(t, h.Get(ha))
	assert.Nil(t, h.Delete(ha))

	hc := h.Put(a)
	assert.Greater(t, hc, hb, "handles are never reused")

	drained := h.Drain()
	assert.ElementsMatch(t, []*plugins.Instance{a, b}, drained)
	assert.Equal(t, 0, h.Len())
}
