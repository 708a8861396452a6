package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/Jojo-A/has-marstek-local-api/internal/adapter/actor"
	"github.com/Jojo-A/has-marstek-local-api/internal/adapter/netmon"
	"github.com/Jojo-A/has-marstek-local-api/internal/config"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/actor"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/server"
	"github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	logger.Info("starting", zap.String("version", versioninfo.Short()))

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// UDP client, shared by the device actor and discovery
	client, err := marstek.NewClient(logger)
	if err != nil {
		panic(err)
	}

	identity, address, err := resolveDevice(cfg, client, logger)
	if err != nil {
		panic(err)
	}

	var mqttProvider actor.MQTTActorProvider
	if cfg.MQTT.Host != "" {
		mqttProvider = func(stream *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewMQTTActor(cfg, stream, logger)
		}
	}

	netMonitor := netmon.NewMonitor(cfg.Scanner.NetworkCheckInterval(), logger)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, func(stream *eventstream.EventStream) *adactor.DeviceActor {
			return adactor.NewDeviceActor(client, identity, address,
				cfg.Device.RequestDelay(), cfg.Device.RequestTimeout(),
				cfg.Device.FailuresBeforeUnavailable, stream, logger)
		}, mqttProvider, client, netMonitor, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

// resolveDevice turns the configured host or BLE MAC into the identity
// and address the device actor starts with. With no host configured the
// device is located by broadcast discovery before anything else runs.
func resolveDevice(cfg *config.Config, client *marstek.Client, logger *zap.Logger) (domain.DeviceIdentity, domain.DeviceAddress, error) {
	if cfg.Device.Host != "" {
		identity := domain.NewDeviceIdentity(cfg.Device.BLEMAC)
		address := domain.DeviceAddress(fmt.Sprintf("%s:%d", cfg.Device.Host, cfg.Device.Port))
		return identity, address, nil
	}

	wanted := domain.NewDeviceIdentity(cfg.Device.BLEMAC)
	logger.Info("no host configured, discovering device", zap.String("ble_mac", cfg.Device.BLEMAC))

	hits, err := client.Discover(int(cfg.Device.Port), cfg.Scanner.DiscoveryWait())
	if err != nil {
		return "", "", err
	}
	for _, hit := range hits {
		if hit.Info.BLEMAC != nil && domain.NewDeviceIdentity(*hit.Info.BLEMAC) == wanted {
			logger.Info("device discovered", zap.String("address", hit.Addr))
			return wanted, domain.DeviceAddress(hit.Addr), nil
		}
	}
	return "", "", fmt.Errorf("device %s not found on the local network", cfg.Device.BLEMAC)
}

func initConfig() (*config.Config, error) {

	// alias PORT => MARSTEK_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("MARSTEK_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("marstek")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	if cfg.MQTT.Host != "" {
		baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.BaseTopic = baseTopic
	}

	// check bounds
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("device.port", marstek.DefaultPort)
	viper.SetDefault("device.request_delay", 3)
	viper.SetDefault("device.request_timeout", 10)
	viper.SetDefault("device.failures_before_unavailable", 3)
	viper.SetDefault("polling.fast_interval", 30)
	viper.SetDefault("polling.medium_interval", 60)
	viper.SetDefault("polling.slow_interval", 300)
	viper.SetDefault("scanner.sweep_interval", 300)
	viper.SetDefault("scanner.discovery_wait", 3)
	viper.SetDefault("scanner.network_check_interval", 30)
	viper.SetDefault("command.action_charge_power", 800)
	viper.SetDefault("command.action_discharge_power", 800)
	viper.SetDefault("command.socket_limit_enabled", false)
	viper.SetDefault("mqtt.base_topic", "marstek")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
