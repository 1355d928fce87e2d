package homeassistant

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt/mqtttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entitiesFunc func(deviceId string) ([]DiscoveryConfig, error)

func (f entitiesFunc) GetHomeAssistantEntities(deviceId string) ([]DiscoveryConfig, error) {
	return f(deviceId)
}

func rssiEntity(deviceId string) ([]DiscoveryConfig, error) {
	return []DiscoveryConfig{{
		Domain:   Sensor,
		DeviceId: deviceId,
		ObjectId: "rssi",
		Config: &SensorConfig{
			BaseConfig: BaseConfig{
				Device: Device{
					Identifiers: []string{deviceId},
					Name:        "Plug living",
				},
				Name:     "Plug living rssi",
				UniqueId: deviceId + "_rssi",
			},
			StateTopic: "tplink/devices/plug/rssi/state",
		},
	}}, nil
}

func TestPublishDevice(t *testing.T) {
	mqttClient := mqtttest.NewClient("tplink")
	hass := NewHomeAssistantDiscovery(mqttClient, &config.ConfigHomeAssistant{
		DiscoveryEnabled:     true,
		DiscoveryTopicPrefix: "homeassistant",
		RemoveRegexpFromName: "plug ",
		Retain:               true,
	})

	require.NoError(t, hass.PublishDevice("8006", entitiesFunc(rssiEntity)))
	require.NoError(t, hass.PublishDevice("8006", entitiesFunc(rssiEntity)), "second call is a no-op")

	published := mqttClient.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "homeassistant/sensor/8006/rssi/config", published[0].Topic)
	assert.True(t, published[0].Retained)

	var document map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(published[0].Payload), &document))
	assert.Equal(t, "living rssi", document["name"])
	assert.Equal(t, true, document["retain"])
	assert.Equal(t, "all", document["availability_mode"])
	device := document["device"].(map[string]interface{})
	assert.Equal(t, "TP-Link", device["manufacturer"])
	availability := document["availability"].([]interface{})
	require.Len(t, availability, 1)
	assert.Equal(t, "tplink/server/status", availability[0].(map[string]interface{})["topic"])
}

func TestPublishDeviceDisabled(t *testing.T) {
	mqttClient := mqtttest.NewClient("tplink")
	hass := NewHomeAssistantDiscovery(mqttClient, &config.ConfigHomeAssistant{DiscoveryEnabled: false})

	require.NoError(t, hass.PublishDevice("8006", entitiesFunc(rssiEntity)))
	assert.Empty(t, mqttClient.Published())
}

func TestPublishDeviceError(t *testing.T) {
	mqttClient := mqtttest.NewClient("tplink")
	hass := NewHomeAssistantDiscovery(mqttClient, &config.ConfigHomeAssistant{DiscoveryEnabled: true})

	err := hass.PublishDevice("8006", entitiesFunc(func(string) ([]DiscoveryConfig, error) {
		return nil, errors.New("unknown device")
	}))
	assert.Error(t, err)
	assert.Empty(t, mqttClient.Published())
}

func TestPublishDeviceInvalidTopicLevels(t *testing.T) {
	mqttClient := mqtttest.NewClient("tplink")
	hass := NewHomeAssistantDiscovery(mqttClient, &config.ConfigHomeAssistant{
		DiscoveryEnabled:     true,
		DiscoveryTopicPrefix: "homeassistant",
	})

	for _, objectId := range []string{"", "..", "../../devices/plug/power"} {
		err := hass.PublishDevice("8006", entitiesFunc(func(deviceId string) ([]DiscoveryConfig, error) {
			configs, _ := rssiEntity(deviceId)
			configs[0].ObjectId = objectId
			return configs, nil
		}))
		assert.Error(t, err, objectId)
	}
	assert.Empty(t, mqttClient.Published())
}
