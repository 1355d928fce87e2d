package modules

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	mqtt_base "github.com/eclipse/paho.mqtt.golang"
	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/dsmr"
	"github.com/gaetancollaud/tplink-mqtt/pkg/feed"
	"github.com/gaetancollaud/tplink-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt"
	"github.com/rs/zerolog/log"
)

const (
	meters       string = "meters"
	reading      string = "reading"
	metersModule string = "meters"
)

type meterEntry struct {
	descriptor dsmr.MeterDescriptor
	keys       map[string]bool
}

// Meters Module publishes the readings of DSMR meters. Readings arrive as a
// JSON object of numbers on meters/<type>/<channel>/reading and every value
// is published on meters/<type>/<channel id>/<key>/state.
type MetersModule struct {
	mqttClient mqtt.Client
	discovery  *homeassistant.HomeAssistantDiscovery

	meters map[dsmr.MeterDescriptor]*meterEntry
	mutex  sync.Mutex
}

func (c *MetersModule) Start() error {
	topic := path.Join(meters, "+", "+", reading)
	log.Trace().Str("topic", topic).Msg("Subscribing for topic.")
	return c.mqttClient.Subscribe(topic, func(client mqtt_base.Client, message mqtt_base.Message) {
		payloadsReceived.WithLabelValues(metersModule, "mqtt").Inc()
		if err := c.onReading(message.Topic(), message.Payload()); err != nil {
			payloadsFailed.WithLabelValues(metersModule).Inc()
			log.Error().
				Str("topic", message.Topic()).
				Err(err).
				Msg("Error handling meter reading.")
		}
	})
}

func (c *MetersModule) Stop() error {
	return nil
}

func (c *MetersModule) onReading(topic string, payload []byte) error {
	descriptor, err := descriptorFromTopic(topic)
	if err != nil {
		return err
	}
	values := map[string]float64{}
	if err := json.Unmarshal(payload, &values); err != nil {
		return fmt.Errorf("error parsing reading of meter %s: %w", descriptor, err)
	}
	for key := range values {
		if !validReadingKey(key) {
			return fmt.Errorf("invalid reading key '%s' for meter %s", key, descriptor)
		}
	}

	c.mutex.Lock()
	entry, ok := c.meters[descriptor]
	if !ok {
		log.Info().Str("meter", descriptor.String()).Msg("New meter found")
		entry = &meterEntry{descriptor: descriptor, keys: map[string]bool{}}
		c.meters[descriptor] = entry
	}
	for key := range values {
		entry.keys[key] = true
	}
	c.mutex.Unlock()

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		valueStr := strconv.FormatFloat(values[key], 'f', -1, 64)
		if err := c.mqttClient.Publish(meterTopic(descriptor, key), valueStr); err != nil {
			return fmt.Errorf("error publishing reading '%s' of meter %s: %w", key, descriptor, err)
		}
		statesPublished.WithLabelValues(metersModule).Inc()
	}

	if err := c.discovery.PublishDevice(meterDeviceId(descriptor), c); err != nil {
		log.Error().Err(err).Str("meter", descriptor.String()).Msg("Error publishing Home Assistant discovery")
	}
	return nil
}

// descriptorFromTopic reads the meter type and channel from the two levels
// before "reading". The channel is a number or "default".
func descriptorFromTopic(topic string) (dsmr.MeterDescriptor, error) {
	levels := strings.Split(topic, "/")
	if len(levels) < 3 {
		return dsmr.MeterDescriptor{}, fmt.Errorf("unexpected meter topic '%s'", topic)
	}
	meterType, err := dsmr.ParseMeterType(levels[len(levels)-3])
	if err != nil {
		return dsmr.MeterDescriptor{}, err
	}
	channelLevel := levels[len(levels)-2]
	channel := dsmr.UnknownChannel
	if channelLevel != "default" {
		channel, err = strconv.Atoi(channelLevel)
		if err != nil {
			return dsmr.MeterDescriptor{}, fmt.Errorf("invalid meter channel '%s': %w", channelLevel, err)
		}
	}
	return dsmr.NewMeterDescriptor(meterType, channel)
}

// validReadingKey accepts keys that are used as is for one topic level and
// as Home Assistant object id.
func validReadingKey(key string) bool {
	return mqtt.ValidTopicLevel(key) && mqtt.NormalizeForTopicName(key) == key
}

func meterTopic(descriptor dsmr.MeterDescriptor, key string) string {
	return path.Join(meters, string(descriptor.MeterType()), descriptor.ChannelId(), key, mqtt.State)
}

func meterDeviceId(descriptor dsmr.MeterDescriptor) string {
	return "meter_" + string(descriptor.MeterType()) + "_" + descriptor.ChannelId()
}

func (c *MetersModule) GetHomeAssistantEntities(deviceId string) ([]homeassistant.DiscoveryConfig, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for descriptor, entry := range c.meters {
		if meterDeviceId(descriptor) != deviceId {
			continue
		}
		name := "Meter " + descriptor.MeterType().String() + " " + descriptor.ChannelId()
		keys := make([]string, 0, len(entry.keys))
		for key := range entry.keys {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		configs := []homeassistant.DiscoveryConfig{}
		for _, key := range keys {
			configs = append(configs, homeassistant.DiscoveryConfig{
				Domain:   homeassistant.Sensor,
				DeviceId: deviceId,
				ObjectId: key,
				Config: &homeassistant.SensorConfig{
					BaseConfig: homeassistant.BaseConfig{
						Device: homeassistant.Device{
							Identifiers: []string{deviceId},
							Model:       "DSMR " + descriptor.MeterType().String(),
							Name:        name,
						},
						Name:     name + " " + key,
						UniqueId: deviceId + "_" + key,
					},
					StateTopic: c.mqttClient.GetFullTopic(meterTopic(descriptor, key)),
					StateClass: "measurement",
					Icon:       "mdi:meter-electric",
				},
			})
		}
		return configs, nil
	}
	return nil, fmt.Errorf("no meter found for '%s'", deviceId)
}

func NewMetersModule(mqttClient mqtt.Client, feedClient feed.Client, discovery *homeassistant.HomeAssistantDiscovery, config *config.Config) Module {
	return &MetersModule{
		mqttClient: mqttClient,
		discovery:  discovery,
		meters:     map[dsmr.MeterDescriptor]*meterEntry{},
	}
}

func init() {
	Register("meters", NewMetersModule)
}
