package rnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func muteFrame(controller byte, zone byte) []byte {
	frame := make([]byte, frameLength)
	frame[0] = 0xF0
	frame[1] = controller
	frame[5] = zone
	frame[12] = 0xF1
	frame[13] = 0x40
	return frame
}

func TestMatches(t *testing.T) {
	matcher := NewMuteZoneMatcher(3, 1)

	assert.True(t, matcher.Matches(muteFrame(0, 2)))
	assert.False(t, matcher.Matches(muteFrame(1, 2)), "other controller")
	assert.False(t, matcher.Matches(muteFrame(0, 3)), "other zone")

	frame := muteFrame(0, 2)
	frame[13] = 0x41
	assert.False(t, matcher.Matches(frame), "not a mute frame")

	assert.False(t, matcher.Matches(muteFrame(0, 2)[:13]), "short frame")
	assert.False(t, matcher.Matches(nil))
}

func TestProcessReportsNoUpdate(t *testing.T) {
	matcher := NewMuteZoneMatcher(3, 1)

	_, ok := matcher.Process(muteFrame(0, 2))
	assert.False(t, ok)
	_, ok = matcher.Process(muteFrame(5, 5))
	assert.False(t, ok)
}
