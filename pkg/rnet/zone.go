// Package rnet recognizes zone state frames of the Russound RNET protocol.
//
// Frame layout of a mute zone notification (14 bytes):
//
//	offset 0   0xF0 start of message
//	offset 1   controller id, zero based
//	offset 5   zone id, zero based
//	offset 12  0xF1
//	offset 13  0x40
package rnet

const (
	frameLength  = 14
	startOfFrame = 0xF0
	frameMarker  = 0xF1
	muteMarker   = 0x40
)

// ZoneStateUpdate is a state change of a zone decoded from a frame.
type ZoneStateUpdate struct {
	Zone       int
	Controller int
	Channel    string
	Value      string
}

// MuteZoneMatcher matches the mute notification of one zone on one
// controller. Zone and controller are numbered from 1.
type MuteZoneMatcher struct {
	zone       int
	controller int
}

func NewMuteZoneMatcher(zone int, controller int) *MuteZoneMatcher {
	return &MuteZoneMatcher{zone: zone, controller: controller}
}

// Matches reports whether the frame is a mute notification for the zone.
func (m *MuteZoneMatcher) Matches(frame []byte) bool {
	if len(frame) < frameLength {
		return false
	}
	return frame[0] == startOfFrame &&
		frame[12] == frameMarker &&
		frame[13] == muteMarker &&
		int(frame[1]) == m.controller-1 &&
		int(frame[5]) == m.zone-1
}

// Process never reports an update: the offset of the mute flag in the frame
// is not known.
// TODO: decode the mute flag once a captured mute frame shows its offset.
func (m *MuteZoneMatcher) Process(frame []byte) (ZoneStateUpdate, bool) {
	return ZoneStateUpdate{}, false
}
