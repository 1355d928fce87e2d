package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ConfigMqtt struct {
	MqttUrl             string
	Username            string
	Password            string
	TopicPrefix         string
	NormalizeDeviceName bool
	Retain              bool
	QoS                 byte
}
type ConfigFeed struct {
	Url string
}
type ConfigHomeAssistant struct {
	DiscoveryEnabled     bool
	DiscoveryTopicPrefix string
	RemoveRegexpFromName string
	Retain               bool
}
type HealthCheckConfig struct {
	Enabled bool
	Port    int
}
type Config struct {
	Mqtt            ConfigMqtt
	Feed            ConfigFeed
	HomeAssistant   ConfigHomeAssistant
	HealthCheck     HealthCheckConfig
	DebugServerAddr string
	LogLevel        string
}

const (
	undefined                               string = "__undefined__"
	deprecated                              string = "__deprecated__"
	envKeyMqttUrl                           string = "mqtt_url"
	envKeyMqttUsername                      string = "mqtt_username"
	envKeyMqttPassword                      string = "mqtt_password"
	envKeyMqttTopicFormat                   string = "mqtt_topic_format"
	envKeyMqttTopicPrefix                   string = "mqtt_topic_prefix"
	envKeyMqttNormalizeTopicName            string = "mqtt_normalize_device_name"
	envKeyMqttRetain                        string = "mqtt_retain"
	envKeyMqttQoS                           string = "mqtt_qos"
	envKeyFeedUrl                           string = "feed_url"
	envKeyLogLevel                          string = "log_level"
	envKeyDebugServerAddr                   string = "debug_server_addr"
	envKeyHealthCheckEnabled                string = "health_check_enabled"
	envKeyHealthCheckPort                   string = "health_check_port"
	envKeyHomeAssistantDiscoveryEnabled     string = "home_assistant_discovery_enabled"
	envKeyHomeAssistantDiscoveryPrefix      string = "home_assistant_discovery_prefix"
	envKeyHomeAssistantRemoveRegexpFromName string = "home_assistant_remove_regexp_from_name"
)

var defaultConfig = map[string]interface{}{
	envKeyMqttUrl:                           undefined,
	envKeyMqttUsername:                      "",
	envKeyMqttPassword:                      "",
	envKeyMqttTopicPrefix:                   "tplink",
	envKeyMqttTopicFormat:                   deprecated,
	envKeyMqttNormalizeTopicName:            true,
	envKeyMqttRetain:                        false,
	envKeyMqttQoS:                           0,
	envKeyFeedUrl:                           "",
	envKeyLogLevel:                          "INFO",
	envKeyDebugServerAddr:                   ":6060",
	envKeyHealthCheckEnabled:                false,
	envKeyHealthCheckPort:                   8080,
	envKeyHomeAssistantDiscoveryEnabled:     false,
	envKeyHomeAssistantDiscoveryPrefix:      "homeassistant",
	envKeyHomeAssistantRemoveRegexpFromName: "",
}

// ReadConfig returns a Config read from config.yaml in the working directory
// and overridden by env variables.
func ReadConfig() (*Config, error) {
	return readConfig(viper.New(), ".")
}

func readConfig(v *viper.Viper, configPath string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	for key, value := range defaultConfig {
		if value != undefined && value != deprecated {
			v.SetDefault(key, value)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional, everything can come from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ReadInConfig error: %w", err)
		}
	}

	// Check for deprecated and undefined fields.
	for fieldName, defaultValue := range defaultConfig {
		if defaultValue == deprecated && v.IsSet(fieldName) {
			return nil, fmt.Errorf("deprecated field found in config: %s", fieldName)
		}
		if defaultValue == undefined && !v.IsSet(fieldName) {
			return nil, fmt.Errorf("required field not found in config: %s", fieldName)
		}
	}

	qos := v.GetInt(envKeyMqttQoS)
	if qos < 0 || qos > 2 {
		return nil, fmt.Errorf("invalid value for %s: %d, expected 0, 1 or 2", envKeyMqttQoS, qos)
	}

	config := &Config{
		Mqtt: ConfigMqtt{
			MqttUrl:             v.GetString(envKeyMqttUrl),
			Username:            v.GetString(envKeyMqttUsername),
			Password:            v.GetString(envKeyMqttPassword),
			TopicPrefix:         v.GetString(envKeyMqttTopicPrefix),
			NormalizeDeviceName: v.GetBool(envKeyMqttNormalizeTopicName),
			Retain:              v.GetBool(envKeyMqttRetain),
			QoS:                 byte(qos),
		},
		Feed: ConfigFeed{
			Url: v.GetString(envKeyFeedUrl),
		},
		HomeAssistant: ConfigHomeAssistant{
			DiscoveryEnabled:     v.GetBool(envKeyHomeAssistantDiscoveryEnabled),
			DiscoveryTopicPrefix: v.GetString(envKeyHomeAssistantDiscoveryPrefix),
			RemoveRegexpFromName: v.GetString(envKeyHomeAssistantRemoveRegexpFromName),
			Retain:               v.GetBool(envKeyMqttRetain),
		},
		HealthCheck: HealthCheckConfig{
			Enabled: v.GetBool(envKeyHealthCheckEnabled),
			Port:    v.GetInt(envKeyHealthCheckPort),
		},
		DebugServerAddr: v.GetString(envKeyDebugServerAddr),
		LogLevel:        v.GetString(envKeyLogLevel),
	}

	return config, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("{MqttUrl:%s TopicPrefix:%s Feed:%s LogLevel:%s}\n",
		c.Mqtt.MqttUrl, c.Mqtt.TopicPrefix, c.Feed.Url, c.LogLevel)
}
