package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gaetancollaud/tplink-mqtt/pkg/config"
	"github.com/gaetancollaud/tplink-mqtt/pkg/controller"
	"github.com/gaetancollaud/tplink-mqtt/pkg/debug"
	"github.com/gaetancollaud/tplink-mqtt/pkg/health"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevels = map[string]zerolog.Level{
	"TRACE": zerolog.TraceLevel,
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := config.ReadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error found when reading the config.")
	}

	if level, ok := logLevels[config.LogLevel]; ok {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", config.LogLevel).Msg("Unknown log level, keeping INFO")
	}
	log.Debug().Str("config", config.String()).Msg("Config loaded")

	log.Info().Msg("Starting TP-Link MQTT!")

	// Add profiling server for live profile of the program.
	debugServerExitDone := &sync.WaitGroup{}
	debugServerExitDone.Add(1)
	srv, isReady := debug.StartDebugServer(config.DebugServerAddr, debugServerExitDone)

	// Initialize controller responsible for all the bridge logic.
	controller := controller.NewController(config)
	if err := controller.Start(); err != nil {
		log.Fatal().Err(err).Msg("Error on starting the controller")
	}
	isReady.Store(true)

	var healthServer health.Health
	if config.HealthCheck.Enabled {
		healthServer, err = health.NewHealth(config.HealthCheck, controller.MqttClient())
		if err != nil {
			log.Fatal().Err(err).Msg("Error on creating the health check")
		}
		if err := healthServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("Error on starting the health check")
		}
	}

	// Subscribe for interruption happening during execution.
	exitSignal := make(chan os.Signal, 2)
	signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)
	<-exitSignal

	if healthServer != nil {
		if err := healthServer.Stop(); err != nil {
			log.Error().Err(err).Msg("Error when stopping the health check")
		}
	}

	// Gracefully stop all the modules loops and logic.
	log.Info().Msg("Shutting down controller...")
	if err := controller.Stop(); err != nil {
		log.Fatal().Err(err).Msg("Error when stopping the controller")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down debug server...")
	if err := srv.Shutdown(ctx); err != nil {
		panic(err) // failure/timeout shutting down the server gracefully.
	}

	debugServerExitDone.Wait()
	log.Info().Msg("Done exiting.")
}
