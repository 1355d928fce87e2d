package tplink

import (
	"fmt"
	"strings"
)

// OnOff is the power or indicator state reported by a device.
type OnOff bool

const (
	On  OnOff = true
	Off OnOff = false
)

func (o OnOff) String() string {
	if o {
		return "ON"
	}
	return "OFF"
}

type DeviceClass string

const (
	ClassUnknown       DeviceClass = "unknown"
	ClassPlug          DeviceClass = "plug"
	ClassDimmer        DeviceClass = "dimmer"
	ClassBulb          DeviceClass = "bulb"
	ClassRangeExtender DeviceClass = "range_extender"
)

// DeviceError is the error envelope a device returns in place of its status.
type DeviceError struct {
	Code    int
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device returned error code %d: %s", e.Code, e.Message)
}

// CtrlProtocols is the control protocol advertised by bulbs.
type CtrlProtocols struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

func (p CtrlProtocols) String() string {
	return "name:" + p.Name + ", version:" + p.Version
}

// LightState holds the color and brightness of a bulb.
type LightState struct {
	OnOff      OnOff
	Mode       string
	Hue        int
	Saturation int
	ColorTemp  int
	Brightness int
}

// Plug is the switch part of plugs, switches and dimmers.
type Plug struct {
	RelayState OnOff
	// LedOff is the state of the indicator led, ON unless the device forces
	// it off.
	LedOff  OnOff
	OnTime  int64
	Feature string
}

// Features splits the feature string, e.g. "TIM:ENE" for an HS110.
func (p *Plug) Features() []string {
	if p.Feature == "" {
		return nil
	}
	return strings.Split(p.Feature, ":")
}

// Dimmer holds the dimmer specific system info.
type Dimmer struct {
	Brightness int
}

// Bulb holds the bulb specific system info.
type Bulb struct {
	IsFactory bool
	DiscoVer  string
	Protocol  *CtrlProtocols

	lightState     *LightState
	defaultOnState *LightState
}

// ProtocolName returns the name of the control protocol or "" when the bulb
// did not report one.
func (b *Bulb) ProtocolName() string {
	if b.Protocol == nil {
		return ""
	}
	return b.Protocol.Name
}

func (b *Bulb) ProtocolVersion() string {
	if b.Protocol == nil {
		return ""
	}
	return b.Protocol.Version
}

// RangeExtenderPlug is the status of the plug as set in the range extender
// products.
type RangeExtenderPlug struct {
	Feature     string
	RelayStatus OnOff
}

// RangeExtenderWireless is the status of the range extended Wi-Fi.
type RangeExtenderWireless struct {
	W2gRssi int `mapstructure:"w2g_rssi"`
}

// RangeExtender holds the fields only range extenders report. The actual
// system info of the device is nested in Sysinfo.System.
type RangeExtender struct {
	LedStatus OnOff
	Plug      *RangeExtenderPlug
	Wireless  *RangeExtenderWireless
}
