package modules

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"

	mqtt_base "github.com/eclipse/paho.mqtt.golang"
	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/feed"
	"github.com/gaetancollaud/tplink-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/tplink-mqtt/pkg/tplink"
	"github.com/gaetancollaud/tplink-mqtt/pkg/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	devices       string = "devices"
	sysinfo       string = "sysinfo"
	devicesModule string = "devices"
	feedId        string = "devices"
)

// Channels published for a device.
const (
	channelPower          string = "power"
	channelRssi           string = "rssi"
	channelLed            string = "led"
	channelBrightness     string = "brightness"
	channelOnTime         string = "on_time"
	channelLightMode      string = "light_mode"
	channelLightHue       string = "light_hue"
	channelLightSat       string = "light_saturation"
	channelLightColorTemp string = "light_color_temp"
	channelLightBright    string = "light_brightness"
	channelFeatures       string = "features"
	channelProtocol       string = "protocol"
)

type channelValue struct {
	channel string
	value   string
}

// Device Module receives the status payloads of TP-Link devices, either on
// the MQTT topic devices/<id>/sysinfo or from the feed, and publishes the
// normalized values on one state topic per channel.
type DeviceModule struct {
	mqttClient mqtt.Client
	feedClient feed.Client
	discovery  *homeassistant.HomeAssistantDiscovery

	normalizeDeviceName bool

	lastSeen map[string]*tplink.Sysinfo
	mutex    sync.Mutex
}

func (c *DeviceModule) Start() error {
	topic := path.Join(devices, "+", sysinfo)
	log.Trace().Str("topic", topic).Msg("Subscribing for topic.")
	if err := c.mqttClient.Subscribe(topic, func(client mqtt_base.Client, message mqtt_base.Message) {
		deviceId := deviceIdFromTopic(message.Topic())
		payloadsReceived.WithLabelValues(devicesModule, "mqtt").Inc()
		if err := c.onPayload(deviceId, message.Payload()); err != nil {
			log.Error().
				Str("topic", message.Topic()).
				Err(err).
				Msg("Error handling MQTT Message.")
		}
	}); err != nil {
		return fmt.Errorf("error subscribing to '%s': %w", topic, err)
	}

	if c.feedClient != nil {
		if err := c.feedClient.Subscribe(feedId, func(message feed.Message) {
			payloadsReceived.WithLabelValues(devicesModule, "feed").Inc()
			if err := c.onPayload(message.Device, message.Sysinfo); err != nil {
				log.Error().
					Str("device", message.Device).
					Err(err).
					Msg("Error handling feed message.")
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *DeviceModule) Stop() error {
	if c.feedClient != nil {
		if err := c.feedClient.Unsubscribe(feedId); err != nil {
			return err
		}
	}
	return nil
}

func (c *DeviceModule) onPayload(sourceId string, payload []byte) error {
	info, err := tplink.ParseResponse(payload)
	if err != nil {
		payloadsFailed.WithLabelValues(devicesModule).Inc()
		return fmt.Errorf("error parsing status of '%s': %w", sourceId, err)
	}
	if err := info.Err(); err != nil {
		payloadsFailed.WithLabelValues(devicesModule).Inc()
		return fmt.Errorf("device '%s' answered with an error: %w", sourceId, err)
	}

	actual := info.ActualSysinfo()
	deviceId := actual.DeviceId
	if deviceId == "" {
		deviceId = sourceId
	}
	log.Debug().
		Str("device", deviceId).
		Str("alias", actual.Alias).
		Str("class", string(info.Class())).
		Msg("Status received")
	log.Trace().Str("sysinfo", utils.PrettyPrint(info)).Msg("Normalized status")

	c.mutex.Lock()
	c.lastSeen[deviceId] = info
	c.mutex.Unlock()

	name, err := c.deviceName(actual.Alias, deviceId)
	if err != nil {
		payloadsFailed.WithLabelValues(devicesModule).Inc()
		return err
	}
	for _, state := range deviceStates(info) {
		if err := c.mqttClient.Publish(c.deviceStateTopic(name, state.channel), state.value); err != nil {
			return fmt.Errorf("error publishing device '%s' value: %w", name, err)
		}
		statesPublished.WithLabelValues(devicesModule).Inc()
	}

	if err := c.discovery.PublishDevice(deviceId, c); err != nil {
		log.Error().Err(err).Str("device", deviceId).Msg("Error publishing Home Assistant discovery")
	}
	return nil
}

// deviceStates flattens a status into the channel values to publish. Only
// the channels the device reported are returned.
func deviceStates(info *tplink.Sysinfo) []channelValue {
	states := []channelValue{}
	if power, ok := info.PowerState(); ok {
		states = append(states, channelValue{channelPower, power.String()})
	}
	states = append(states, channelValue{channelRssi, strconv.Itoa(info.SignalStrength())})

	if info.RangeExtender != nil {
		states = append(states, channelValue{channelLed, info.RangeExtender.LedStatus.String()})
	} else if info.Plug != nil {
		states = append(states, channelValue{channelLed, info.Plug.LedOff.String()})
	}
	if info.Plug != nil {
		states = append(states, channelValue{channelOnTime, strconv.FormatInt(info.Plug.OnTime, 10)})
		if features := info.Plug.Features(); len(features) > 0 {
			states = append(states, channelValue{channelFeatures, strings.Join(features, ",")})
		}
	}
	if info.Dimmer != nil {
		states = append(states, channelValue{channelBrightness, strconv.Itoa(info.Dimmer.Brightness)})
	}
	if light, ok := info.LightState(); ok {
		states = append(states,
			channelValue{channelLightMode, light.Mode},
			channelValue{channelLightHue, strconv.Itoa(light.Hue)},
			channelValue{channelLightSat, strconv.Itoa(light.Saturation)},
			channelValue{channelLightColorTemp, strconv.Itoa(light.ColorTemp)},
			channelValue{channelLightBright, strconv.Itoa(light.Brightness)},
		)
	}
	if info.Bulb != nil && info.Bulb.ProtocolName() != "" {
		protocol := strings.TrimSpace(info.Bulb.ProtocolName() + " " + info.Bulb.ProtocolVersion())
		states = append(states, channelValue{channelProtocol, protocol})
	}
	return states
}

// deviceName returns the topic level of a device: its alias, or its id when
// the alias is empty or nothing is left of it once normalized.
func (c *DeviceModule) deviceName(alias string, deviceId string) (string, error) {
	for _, name := range []string{alias, deviceId} {
		if c.normalizeDeviceName {
			name = mqtt.NormalizeForTopicName(name)
		}
		if mqtt.ValidTopicLevel(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no usable topic name for device '%s'", deviceId)
}

func (c *DeviceModule) deviceStateTopic(deviceName string, channel string) string {
	return path.Join(devices, deviceName, channel, mqtt.State)
}

// deviceIdFromTopic extracts <id> from <prefix>/devices/<id>/sysinfo.
func deviceIdFromTopic(topic string) string {
	levels := strings.Split(topic, "/")
	if len(levels) < 2 {
		return ""
	}
	return levels[len(levels)-2]
}

func (c *DeviceModule) GetHomeAssistantEntities(deviceId string) ([]homeassistant.DiscoveryConfig, error) {
	c.mutex.Lock()
	info, ok := c.lastSeen[deviceId]
	c.mutex.Unlock()
	if !ok {
		return nil, fmt.Errorf("no status received for device '%s'", deviceId)
	}

	actual := info.ActualSysinfo()
	name := actual.Alias
	if name == "" {
		name = deviceId
	}
	topicName, err := c.deviceName(actual.Alias, deviceId)
	if err != nil {
		return nil, err
	}
	// Home Assistant only accepts [a-zA-Z0-9_-] in node ids.
	nodeId := mqtt.NormalizeForTopicName(deviceId)
	if nodeId == "" {
		return nil, fmt.Errorf("no usable discovery node id for device '%s'", deviceId)
	}
	device := homeassistant.Device{
		Identifiers: []string{deviceId},
		Model:       actual.Model,
		Name:        name,
		SwVersion:   actual.SwVer,
		HwVersion:   actual.HwVer,
	}
	if actual.Mac != "" {
		device.Connections = [][2]string{{"mac", actual.Mac}}
	}
	title := cases.Title(language.English)
	entityName := func(channel string) string {
		return name + " " + title.String(strings.ReplaceAll(channel, "_", " "))
	}

	configs := []homeassistant.DiscoveryConfig{}
	for _, state := range deviceStates(info) {
		base := homeassistant.BaseConfig{
			Device:   device,
			Name:     entityName(state.channel),
			UniqueId: nodeId + "_" + state.channel,
		}
		stateTopic := c.mqttClient.GetFullTopic(c.deviceStateTopic(topicName, state.channel))
		switch state.channel {
		case channelPower, channelLed:
			entity := &homeassistant.BinarySensorConfig{
				BaseConfig: base,
				StateTopic: stateTopic,
				PayloadOn:  tplink.On.String(),
				PayloadOff: tplink.Off.String(),
				Icon:       "mdi:power",
			}
			if state.channel == channelLed {
				entity.EntityCategory = "diagnostic"
				entity.Icon = "mdi:led-on"
			}
			configs = append(configs, homeassistant.DiscoveryConfig{
				Domain:   homeassistant.BinarySensor,
				DeviceId: nodeId,
				ObjectId: state.channel,
				Config:   entity,
			})
		case channelRssi:
			configs = append(configs, homeassistant.DiscoveryConfig{
				Domain:   homeassistant.Sensor,
				DeviceId: nodeId,
				ObjectId: state.channel,
				Config: &homeassistant.SensorConfig{
					BaseConfig:        base,
					StateTopic:        stateTopic,
					UnitOfMeasurement: "dBm",
					DeviceClass:       "signal_strength",
					StateClass:        "measurement",
					EntityCategory:    "diagnostic",
				},
			})
		case channelBrightness, channelLightBright:
			configs = append(configs, homeassistant.DiscoveryConfig{
				Domain:   homeassistant.Sensor,
				DeviceId: nodeId,
				ObjectId: state.channel,
				Config: &homeassistant.SensorConfig{
					BaseConfig:        base,
					StateTopic:        stateTopic,
					UnitOfMeasurement: "%",
					StateClass:        "measurement",
					Icon:              "mdi:brightness-percent",
				},
			})
		case channelFeatures, channelProtocol:
			configs = append(configs, homeassistant.DiscoveryConfig{
				Domain:   homeassistant.Sensor,
				DeviceId: nodeId,
				ObjectId: state.channel,
				Config: &homeassistant.SensorConfig{
					BaseConfig:     base,
					StateTopic:     stateTopic,
					EntityCategory: "diagnostic",
					Icon:           "mdi:information-outline",
				},
			})
		}
	}
	return configs, nil
}

func NewDeviceModule(mqttClient mqtt.Client, feedClient feed.Client, discovery *homeassistant.HomeAssistantDiscovery, config *config.Config) Module {
	return &DeviceModule{
		mqttClient:          mqttClient,
		feedClient:          feedClient,
		discovery:           discovery,
		normalizeDeviceName: config.Mqtt.NormalizeDeviceName,
		lastSeen:            map[string]*tplink.Sysinfo{},
	}
}

func init() {
	Register("devices", NewDeviceModule)
}
