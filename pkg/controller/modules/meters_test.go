package modules

import (
	"testing"

	"github.com/gaetancollaud/tplink-mqtt/pkg/dsmr"
	"github.com/gaetancollaud/tplink-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt/mqtttest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetersModule(t *testing.T) (*MetersModule, *mqtttest.Client) {
	cfg := newTestConfig()
	mqttClient := mqtttest.NewClient("tplink")
	discovery := homeassistant.NewHomeAssistantDiscovery(mqttClient, &cfg.HomeAssistant)
	module := NewMetersModule(mqttClient, nil, discovery, cfg).(*MetersModule)
	require.NoError(t, module.Start())
	return module, mqttClient
}

func TestMeterReadingPublished(t *testing.T) {
	module, mqttClient := newMetersModule(t)

	delivered := mqttClient.Deliver("tplink/meters/gas/1/reading", []byte(`{"volume":1234.5,"valve":1}`))
	require.Equal(t, 1, delivered)

	assertPublished(t, mqttClient, "tplink/meters/gas/1/volume/state", "1234.5")
	assertPublished(t, mqttClient, "tplink/meters/gas/1/valve/state", "1")

	discovery, ok := mqttClient.Last("homeassistant/sensor/meter_gas_1/volume/config")
	require.True(t, ok)
	assert.Contains(t, discovery, `"state_topic":"tplink/meters/gas/1/volume/state"`)
	assert.Len(t, module.meters, 1)
}

func TestMeterDefaultChannel(t *testing.T) {
	module, mqttClient := newMetersModule(t)

	mqttClient.Deliver("tplink/meters/electricity/default/reading", []byte(`{"power_delivered":0.42}`))
	mqttClient.Deliver("tplink/meters/electricity/default/reading", []byte(`{"power_delivered":0.5}`))

	assertPublished(t, mqttClient, "tplink/meters/electricity/default/power_delivered/state", "0.5")

	descriptor, err := dsmr.NewMeterDescriptor(dsmr.MeterTypeElectricity, dsmr.UnknownChannel)
	require.NoError(t, err)
	assert.Contains(t, module.meters, descriptor)
	assert.Len(t, module.meters, 1)
}

func TestMeterSameTypeOtherChannel(t *testing.T) {
	module, mqttClient := newMetersModule(t)

	mqttClient.Deliver("tplink/meters/water/1/reading", []byte(`{"volume":1}`))
	mqttClient.Deliver("tplink/meters/water/2/reading", []byte(`{"volume":2}`))
	mqttClient.Deliver("tplink/meters/WATER/2/reading", []byte(`{"volume":3}`))

	assert.Len(t, module.meters, 2)
	assertPublished(t, mqttClient, "tplink/meters/water/2/volume/state", "3")
}

func TestMeterInvalidReading(t *testing.T) {
	module, mqttClient := newMetersModule(t)
	failed := testutil.ToFloat64(payloadsFailed.WithLabelValues(metersModule))

	mqttClient.Deliver("tplink/meters/unicorn/1/reading", []byte(`{"volume":1}`))
	mqttClient.Deliver("tplink/meters/gas/first/reading", []byte(`{"volume":1}`))
	mqttClient.Deliver("tplink/meters/gas/1/reading", []byte(`{"volume":"a lot"}`))

	assert.Empty(t, mqttClient.Published())
	assert.Empty(t, module.meters)
	assert.Equal(t, failed+3, testutil.ToFloat64(payloadsFailed.WithLabelValues(metersModule)))
}

func TestMeterHomeAssistantEntities(t *testing.T) {
	module, mqttClient := newMetersModule(t)
	mqttClient.Deliver("tplink/meters/heat/3/reading", []byte(`{"energy":10,"flow":2}`))

	configs, err := module.GetHomeAssistantEntities("meter_heat_3")
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "energy", configs[0].ObjectId)
	assert.Equal(t, "flow", configs[1].ObjectId)
	assert.Equal(t, "Meter heat 3 energy", configs[0].Config.GetName())

	_, err = module.GetHomeAssistantEntities("meter_heat_4")
	assert.Error(t, err)
}

func TestDescriptorFromTopic(t *testing.T) {
	descriptor, err := descriptorFromTopic("prefix/meters/slave_electricity/4/reading")
	require.NoError(t, err)
	assert.Equal(t, dsmr.MeterTypeSlaveElectricity, descriptor.MeterType())
	assert.Equal(t, 4, descriptor.Channel())

	_, err = descriptorFromTopic("reading")
	assert.Error(t, err)
}

func TestMeterReadingKeyStaysInMeterTopic(t *testing.T) {
	module, mqttClient := newMetersModule(t)
	failed := testutil.ToFloat64(payloadsFailed.WithLabelValues(metersModule))

	payloads := []string{
		`{"../../../devices/Living_room/power":0}`,
		`{"volume":1,"..":2}`,
		`{"":1}`,
		`{"total volume":1}`,
		`{"volume/total":1}`,
	}
	for _, payload := range payloads {
		mqttClient.Deliver("tplink/meters/gas/1/reading", []byte(payload))
	}

	assert.Empty(t, mqttClient.Published())
	assert.Empty(t, module.meters)
	assert.Equal(t, failed+float64(len(payloads)), testutil.ToFloat64(payloadsFailed.WithLabelValues(metersModule)))
}
