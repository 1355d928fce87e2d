package dsmr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnknownChannel is the M-Bus channel of meters that are not connected
// through M-Bus, e.g. the main electricity meter.
const UnknownChannel = -1

// ErrInvalidArgument is returned when a descriptor is built without a meter
// type.
var ErrInvalidArgument = errors.New("invalid argument")

type MeterType string

const (
	MeterTypeUnknown          MeterType = ""
	MeterTypeDevice           MeterType = "device"
	MeterTypeElectricity      MeterType = "electricity"
	MeterTypeGas              MeterType = "gas"
	MeterTypeWater            MeterType = "water"
	MeterTypeHeat             MeterType = "heat"
	MeterTypeCooling          MeterType = "cooling"
	MeterTypeSlaveElectricity MeterType = "slave_electricity"
	MeterTypeM3               MeterType = "m3"
)

var meterTypes = []MeterType{
	MeterTypeDevice,
	MeterTypeElectricity,
	MeterTypeGas,
	MeterTypeWater,
	MeterTypeHeat,
	MeterTypeCooling,
	MeterTypeSlaveElectricity,
	MeterTypeM3,
}

// ParseMeterType returns the meter type with the given name, ignoring case.
func ParseMeterType(name string) (MeterType, error) {
	for _, meterType := range meterTypes {
		if strings.EqualFold(string(meterType), name) {
			return meterType, nil
		}
	}
	return MeterTypeUnknown, fmt.Errorf("%w: unknown meter type '%s'", ErrInvalidArgument, name)
}

func (t MeterType) known() bool {
	for _, meterType := range meterTypes {
		if t == meterType {
			return true
		}
	}
	return false
}

func (t MeterType) String() string {
	if t == MeterTypeUnknown {
		return "unknown"
	}
	return string(t)
}

// MeterDescriptor identifies a meter by its type and M-Bus channel. Two
// descriptors are equal when both are the same, so the struct can be used
// with == and as a map key.
type MeterDescriptor struct {
	meterType MeterType
	channel   int
}

// NewMeterDescriptor creates a descriptor for a meter of the given type
// connected to the given M-Bus channel. The type must be one of the known
// meter types, any channel is accepted.
func NewMeterDescriptor(meterType MeterType, channel int) (MeterDescriptor, error) {
	if meterType == MeterTypeUnknown {
		return MeterDescriptor{}, fmt.Errorf("%w: meter type is not set", ErrInvalidArgument)
	}
	if !meterType.known() {
		return MeterDescriptor{}, fmt.Errorf("%w: unknown meter type '%s'", ErrInvalidArgument, string(meterType))
	}
	return MeterDescriptor{meterType: meterType, channel: channel}, nil
}

func (d MeterDescriptor) MeterType() MeterType {
	return d.meterType
}

func (d MeterDescriptor) Channel() int {
	return d.channel
}

// ChannelId returns the channel as a string, or "default" for meters on the
// unknown channel.
func (d MeterDescriptor) ChannelId() string {
	if d.channel == UnknownChannel {
		return "default"
	}
	return strconv.Itoa(d.channel)
}

func (d MeterDescriptor) Equal(other MeterDescriptor) bool {
	return d.meterType == other.meterType && d.channel == other.channel
}

func (d MeterDescriptor) String() string {
	return fmt.Sprintf("[Meter type: %s, channel: %d]", d.meterType, d.channel)
}
