package homeassistant

import (
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/tplink-mqtt/pkg/utils"
)

type Domain string

const (
	Sensor       Domain = "sensor"
	BinarySensor Domain = "binary_sensor"
)

const manufacturer = "TP-Link"

type DiscoveryConfig struct {
	Domain   Domain
	DeviceId string
	ObjectId string
	Config   MqttConfig
}

type HomeAssistantDiscoveryInterface interface {
	// Returns the list of Home Assistant MQTT entities for one device the
	// module has seen.
	GetHomeAssistantEntities(deviceId string) ([]DiscoveryConfig, error)
}

type HomeAssistantDiscovery struct {
	mqttClient mqtt.Client
	config     *config.ConfigHomeAssistant

	published map[string]bool
	mutex     sync.Mutex
}

func NewHomeAssistantDiscovery(mqttClient mqtt.Client, config *config.ConfigHomeAssistant) *HomeAssistantDiscovery {
	return &HomeAssistantDiscovery{
		mqttClient: mqttClient,
		config:     config,
		published:  map[string]bool{},
	}
}

// prepare updates the configs with the attributes shared by all entities.
func (hass *HomeAssistantDiscovery) prepare(configs []DiscoveryConfig) []DiscoveryConfig {
	systemAvailability := Availability{
		Topic:               hass.mqttClient.ServerStatusTopic(),
		PayloadAvailable:    mqtt.Online,
		PayloadNotAvailable: mqtt.Offline,
	}
	for _, config := range configs {
		entityName := config.Config.GetName()
		config.Config.
			SetName(
				utils.RemoveRegexp(
					entityName,
					hass.config.RemoveRegexpFromName)).
			SetRetain(hass.config.Retain).
			AddAvailability(systemAvailability).
			SetAvailabilityMode("all")
		device := config.Config.GetDevice()
		device.Manufacturer = manufacturer
	}
	return configs
}

// PublishDevice publishes the discovery messages of a device the first time
// it is seen. Later calls for the same device id do nothing.
func (hass *HomeAssistantDiscovery) PublishDevice(deviceId string, source HomeAssistantDiscoveryInterface) error {
	if !hass.config.DiscoveryEnabled {
		return nil
	}
	hass.mutex.Lock()
	defer hass.mutex.Unlock()
	if hass.published[deviceId] {
		return nil
	}

	configs, err := source.GetHomeAssistantEntities(deviceId)
	if err != nil {
		return fmt.Errorf("error building discovery configs for device '%s': %w", deviceId, err)
	}
	for _, config := range configs {
		if !mqtt.ValidTopicLevel(config.DeviceId) || !mqtt.ValidTopicLevel(config.ObjectId) {
			return fmt.Errorf("invalid discovery topic levels '%s/%s' for device '%s'", config.DeviceId, config.ObjectId, deviceId)
		}
	}
	for _, config := range hass.prepare(configs) {
		payload, err := json.Marshal(config.Config)
		if err != nil {
			return fmt.Errorf("error serializing dicovery config to JSON: %w", err)
		}
		if err := hass.mqttClient.PublishRaw(hass.discoveryTopic(config), payload, true); err != nil {
			return fmt.Errorf("error publishing discovery message to MQTT: %w", err)
		}
	}
	hass.published[deviceId] = true
	return nil
}

func (hass *HomeAssistantDiscovery) discoveryTopic(config DiscoveryConfig) string {
	return path.Join(
		hass.config.DiscoveryTopicPrefix,
		string(config.Domain),
		config.DeviceId,
		config.ObjectId,
		"config")
}
