package tplink

// Sysinfo is the normalized status of a TP-Link Smart Home device. A new
// Sysinfo is built for every payload and is not modified afterwards.
//
// The device class specific blocks (Plug, Dimmer, Bulb, RangeExtender) are
// nil unless the payload contained the fields they are built from.
type Sysinfo struct {
	ErrCode int
	ErrMsg  string

	SwVer      string
	HwVer      string
	Model      string
	DeviceId   string
	HwId       string
	OemId      string
	FwId       string
	Alias      string
	DevName    string
	IconHash   string
	ActiveMode string
	Type       string
	Mac        string
	RSSI       int
	Latitude   float64
	Longitude  float64

	Plug          *Plug
	Dimmer        *Dimmer
	Bulb          *Bulb
	RangeExtender *RangeExtender

	// System is the nested system info of range extenders.
	System *Sysinfo
}

// Err returns a *DeviceError when the device answered with an error code.
func (s *Sysinfo) Err() error {
	if s.ErrCode == 0 {
		return nil
	}
	return &DeviceError{Code: s.ErrCode, Message: s.ErrMsg}
}

// ActualSysinfo returns the system info independent of the device. Range
// extenders report it one level deeper than the other devices.
func (s *Sysinfo) ActualSysinfo() *Sysinfo {
	if s.System == nil {
		return s
	}
	return s.System
}

// SignalStrength returns the 2.4GHz rssi for range extenders and the top
// level rssi for every other device.
func (s *Sysinfo) SignalStrength() int {
	if s.RangeExtender != nil && s.RangeExtender.Wireless != nil {
		return s.RangeExtender.Wireless.W2gRssi
	}
	return s.RSSI
}

// LightState returns the light state of a bulb, ok is false when the payload
// had none. When the bulb reported a default on state, that state is returned
// with the power flag of the bulb so an off bulb still reports the color it
// resumes with.
func (s *Sysinfo) LightState() (LightState, bool) {
	if s.Bulb == nil || s.Bulb.lightState == nil {
		return LightState{}, false
	}
	return effectiveLightState(*s.Bulb.lightState, s.Bulb.defaultOnState), true
}

func effectiveLightState(state LightState, defaultOnState *LightState) LightState {
	if defaultOnState == nil {
		return state
	}
	merged := *defaultOnState
	merged.OnOff = state.OnOff
	return merged
}

// Class derives the kind of device from the blocks present in the payload.
func (s *Sysinfo) Class() DeviceClass {
	switch {
	case s.RangeExtender != nil:
		return ClassRangeExtender
	case s.Bulb != nil:
		return ClassBulb
	case s.Dimmer != nil:
		return ClassDimmer
	case s.Plug != nil:
		return ClassPlug
	default:
		return ClassUnknown
	}
}

// PowerState returns the on/off state of the device whatever its class.
func (s *Sysinfo) PowerState() (OnOff, bool) {
	if s.RangeExtender != nil && s.RangeExtender.Plug != nil {
		return s.RangeExtender.Plug.RelayStatus, true
	}
	if state, ok := s.LightState(); ok {
		return state.OnOff, true
	}
	if s.Plug != nil {
		return s.Plug.RelayState, true
	}
	return Off, false
}

// RelayPowerState maps the relay_state field: 1 is on, anything else off.
func RelayPowerState(relayState int) OnOff {
	return relayState == 1
}

// LedIndicatorState maps the led_off field. 1 means the led is forced off.
func LedIndicatorState(ledOff int) OnOff {
	return ledOff != 1
}

// LedStatusState maps the led_status field of range extenders. The firmware
// reports "ON" when the led is off.
func LedStatusState(ledStatus string) OnOff {
	return ledStatus != "ON"
}
