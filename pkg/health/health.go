package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/mqtt"
	"github.com/go-chi/chi/v5"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

type Health interface {
	Start() error
	Stop() error
}

type health struct {
	config     config.HealthCheckConfig
	mqttClient mqtt.Client
	health     *healthgo.Health

	server *http.Server
}

func NewHealth(config config.HealthCheckConfig, mqttClient mqtt.Client) (Health, error) {
	h, err := healthgo.New(healthgo.WithComponent(healthgo.Component{
		Name:    "tplink-mqtt",
		Version: "v1.0",
	}))
	if err != nil {
		return nil, fmt.Errorf("unable to create health check: %w", err)
	}

	err = h.Register(healthgo.Config{
		Name:      "mqtt",
		Timeout:   time.Second * 2,
		SkipOnErr: false,
		Check:     mqttCheck(mqttClient),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to register MQTT healthcheck: %w", err)
	}

	return &health{
		config:     config,
		mqttClient: mqttClient,
		health:     h,
	}, nil
}

func mqttCheck(mqttClient mqtt.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		raw := mqttClient.RawClient()
		if raw != nil && raw.IsConnectionOpen() {
			log.Trace().Msg("MQTT client is connected")
			return nil
		}
		return errors.New("MQTT client is not connected")
	}
}

func (h *health) Start() error {
	listenAddr := fmt.Sprintf("0.0.0.0:%d", h.config.Port)
	h.server = &http.Server{Addr: listenAddr, Handler: h.service()}
	go func() {
		log.Info().Msgf("Starting health check server on %s", listenAddr)
		err := h.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Unable to start health check server")
		}
	}()
	return nil
}

func (h *health) Stop() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("Health check server stopped")
	return nil
}

func (h *health) service() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.health.HandlerFunc)
	r.Get("/health/ready", h.health.HandlerFunc)
	r.Get("/health/live", h.health.HandlerFunc)
	return r
}
