package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveRegexp(t *testing.T) {
	assert.Equal(t, "Living room", RemoveRegexp("Plug Living room", "plug"))
	assert.Equal(t, "kitchen", RemoveRegexp("plug kitchen", "plug"))
	assert.Equal(t, "kitchen", RemoveRegexp("kitchen plug", "plug"))
	assert.Equal(t, "Kitchen Plug", RemoveRegexp("Kitchen Plug", ""))
	assert.Equal(t, "Kitchen", RemoveRegexp("Kitchen Bulb", "(plug|bulb)"))
	assert.Equal(t, "kitchen", RemoveRegexp("bulb_kitchen", "(plug|bulb)_"))
}

func TestPrettyPrint(t *testing.T) {
	assert.Equal(t, `{"alias":"kitchen"}`, PrettyPrint(map[string]string{"alias": "kitchen"}))
}
