package controller

import (
	"fmt"

	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/controller/modules"
	"github.com/gaetancollaud/tplink-mqtt/pkg/feed"
	"github.com/gaetancollaud/tplink-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	mqttClient mqtt.Client
	// Optional, nil when no feed url is configured.
	feedClient feed.Client

	modules map[string]modules.Module
}

func NewController(config *config.Config) *Controller {
	mqttOptions := mqtt.NewClientOptions().
		SetMqttUrl(config.Mqtt.MqttUrl).
		SetUsername(config.Mqtt.Username).
		SetPassword(config.Mqtt.Password).
		SetTopicPrefix(config.Mqtt.TopicPrefix).
		SetRetain(config.Mqtt.Retain).
		SetQoS(config.Mqtt.QoS)
	mqttClient := mqtt.NewClient(mqttOptions)

	var feedClient feed.Client
	if config.Feed.Url != "" {
		feedClient = feed.NewClient(config.Feed.Url)
	}

	return newController(mqttClient, feedClient, config)
}

func newController(mqttClient mqtt.Client, feedClient feed.Client, config *config.Config) *Controller {
	discovery := homeassistant.NewHomeAssistantDiscovery(mqttClient, &config.HomeAssistant)
	controller := Controller{
		mqttClient: mqttClient,
		feedClient: feedClient,
		modules:    map[string]modules.Module{},
	}

	for name, builder := range modules.Modules {
		module := builder(mqttClient, feedClient, discovery, config)
		controller.modules[name] = module
	}

	return &controller
}

// MqttClient gives access to the client, used by the health check.
func (c *Controller) MqttClient() mqtt.Client {
	return c.mqttClient
}

func (c *Controller) Start() error {
	log.Info().Msg("Starting controller.")
	if err := c.mqttClient.Connect(); err != nil {
		return fmt.Errorf("error connecting to MQTT client: %w", err)
	}
	if c.feedClient != nil {
		if err := c.feedClient.Connect(); err != nil {
			return fmt.Errorf("error connecting to feed: %w", err)
		}
	}

	for name, module := range c.modules {
		log.Info().Str("module", name).Msg("Starting module.")
		if err := module.Start(); err != nil {
			return fmt.Errorf("error starting module '%s': %w", name, err)
		}
	}

	return nil
}

func (c *Controller) Stop() error {
	log.Info().Msg("Stopping controller.")

	for name, module := range c.modules {
		log.Info().Str("module", name).Msg("Stopping module.")
		if err := module.Stop(); err != nil {
			return fmt.Errorf("error stopping module '%s': %w", name, err)
		}
	}

	if c.feedClient != nil {
		if err := c.feedClient.Disconnect(); err != nil {
			return fmt.Errorf("error disconnecting from feed: %w", err)
		}
	}
	if err := c.mqttClient.Disconnect(); err != nil {
		return fmt.Errorf("error disconnecting to MQTT client: %w", err)
	}

	return nil
}
