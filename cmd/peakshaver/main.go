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

	adactor "peakshaver/internal/adapter/actor"
	"peakshaver/internal/config"
	"peakshaver/internal/core/actor"
	"peakshaver/internal/core/domain"
	"peakshaver/internal/server"
	"peakshaver/internal/util/actorutil"
	"peakshaver/pkg/hass"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
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

// tickScheduler drives the periodic control cycle through quartz, and
// can be rescheduled at runtime when the update interval changes.
type tickScheduler struct {
	sched  quartz.Scheduler
	root   *pactor.RootContext
	master *pactor.PID
	jobKey *quartz.JobKey
}

func newTickScheduler(root *pactor.RootContext, master *pactor.PID) *tickScheduler {
	return &tickScheduler{
		sched:  quartz.NewStdScheduler(),
		root:   root,
		master: master,
		jobKey: quartz.NewJobKey("control_tick"),
	}
}

func (t *tickScheduler) Start(ctx context.Context, seconds uint) error {
	t.sched.Start(ctx)
	return t.schedule(seconds)
}

func (t *tickScheduler) Reschedule(seconds uint) error {
	if err := t.sched.DeleteJob(t.jobKey); err != nil {
		return err
	}
	return t.schedule(seconds)
}

func (t *tickScheduler) Stop() {
	t.sched.Stop()
}

func (t *tickScheduler) schedule(seconds uint) error {
	if seconds == 0 {
		seconds = config.DEFAULT_UPDATE_INTERVAL_SECS
	}
	tickJob := job.NewFunctionJob(func(_ context.Context) (int, error) {
		t.root.Send(t.master, domain.ControlTickRequest{})
		return 0, nil
	})
	detail := quartz.NewJobDetail(tickJob, t.jobKey)
	trigger := quartz.NewSimpleTrigger(time.Duration(seconds) * time.Second)
	return t.sched.ScheduleJob(detail, trigger)
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

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, hassActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	// periodic control tick
	ticker := newTickScheduler(ctx, pid)
	if err := ticker.Start(context.Background(), cfg.Options.Advanced.UpdateIntervalSeconds); err != nil {
		panic(err)
	}
	defer ticker.Stop()

	server := server.NewServer(*cfg, ctx, pid, ticker.Reschedule)
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

func initConfig() (*config.Config, error) {

	// alias PORT => PEAKSHAVER_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("PEAKSHAVER_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("peakshaver")
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
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check connection params
	if cfg.HomeAssistant.WebsocketURL == "" {
		return nil, errors.New("config param homeassistant.websocket_url is required")
	}
	if cfg.HomeAssistant.AccessToken == "" {
		return nil, errors.New("config param homeassistant.access_token is required")
	}

	// check entity options
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func hassActorProvider(cfg *config.Config, logger *zap.Logger) actor.HassActorProvider {
	return func() *adactor.HassActor {
		client := hass.NewWebsocketClient(cfg.HomeAssistant.WebsocketURL, cfg.HomeAssistant.AccessToken, 10*time.Second, logger)
		return adactor.NewHassActor(client, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "peakshaver")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("battery_controls.max_charge_power_w", config.DEFAULT_MAX_CHARGE_POWER_W)
	viper.SetDefault("battery_controls.max_discharge_power_w", config.DEFAULT_MAX_DISCHARGE_POWER_W)
	viper.SetDefault("advanced.update_interval_seconds", config.DEFAULT_UPDATE_INTERVAL_SECS)
	viper.SetDefault("advanced.verbose_logging", true)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.HomeAssistant.AccessToken = "*redacted*"
	slog.Info("Using", "config", cfg)
}
