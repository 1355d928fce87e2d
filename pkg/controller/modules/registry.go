package modules

import (
	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/feed"
	"github.com/gaetancollaud/tplink-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt"
)

// Interface for the different modules of the bridge.
type Module interface {
	Start() error
	Stop() error
}

// ModuleBuilder builds a module. The feed client is nil when no feed is
// configured.
type ModuleBuilder func(mqtt.Client, feed.Client, *homeassistant.HomeAssistantDiscovery, *config.Config) Module

// Register stores a builder function into the registy for external access.
// Register() can be called from init() on a module in this package and will
// automatically register a module.
func Register(name string, builder ModuleBuilder) {
	Modules[name] = builder
}

var Modules = map[string]ModuleBuilder{}
