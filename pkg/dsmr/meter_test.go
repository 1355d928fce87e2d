package dsmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeterDescriptor(t *testing.T) {
	descriptor, err := NewMeterDescriptor(MeterTypeGas, 3)
	require.NoError(t, err)
	assert.Equal(t, MeterTypeGas, descriptor.MeterType())
	assert.Equal(t, 3, descriptor.Channel())
	assert.Equal(t, "[Meter type: gas, channel: 3]", descriptor.String())

	_, err = NewMeterDescriptor(MeterTypeUnknown, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewMeterDescriptor(MeterType("steam"), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewMeterDescriptor(MeterType("GAS"), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument, "only the canonical names are known")

	descriptor, err = NewMeterDescriptor(MeterTypeWater, -42)
	require.NoError(t, err, "negative channels are accepted")
	assert.Equal(t, "-42", descriptor.ChannelId())
}

func TestChannelId(t *testing.T) {
	descriptor, err := NewMeterDescriptor(MeterTypeElectricity, UnknownChannel)
	require.NoError(t, err)
	assert.Equal(t, "default", descriptor.ChannelId())

	descriptor, err = NewMeterDescriptor(MeterTypeElectricity, 3)
	require.NoError(t, err)
	assert.Equal(t, "3", descriptor.ChannelId())
}

func TestEquality(t *testing.T) {
	a, _ := NewMeterDescriptor(MeterTypeGas, 1)
	b, _ := NewMeterDescriptor(MeterTypeGas, 1)
	c, _ := NewMeterDescriptor(MeterTypeGas, 2)
	d, _ := NewMeterDescriptor(MeterTypeWater, 1)

	assert.True(t, a.Equal(b))
	assert.True(t, a == b)
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))

	seen := map[MeterDescriptor]string{a: "first"}
	seen[b] = "second"
	assert.Len(t, seen, 1)
	assert.Equal(t, "second", seen[a])
}

func TestParseMeterType(t *testing.T) {
	meterType, err := ParseMeterType("Gas")
	require.NoError(t, err)
	assert.Equal(t, MeterTypeGas, meterType)

	meterType, err = ParseMeterType("slave_electricity")
	require.NoError(t, err)
	assert.Equal(t, MeterTypeSlaveElectricity, meterType)

	_, err = ParseMeterType("steam")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseMeterType("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "unknown", MeterTypeUnknown.String())
}
