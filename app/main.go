package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"

	"github.com/agora-labs/gatekeeper/domain"
	gatekeeperlog "github.com/agora-labs/gatekeeper/log"
)

func main() {
	configPath := flag.String("config", "config.json", "config file location")

	hostName := flag.String("host", "gatekeeper", "the name of the host")

	isDebug := flag.Bool("debug", false, "debug mode")
	if *isDebug {
		log.Println("Service RUN on DEBUG mode")
	}

	// Parse the command-line arguments
	flag.Parse()

	fmt.Println("configPath", *configPath)
	fmt.Println("hostName", *hostName)

	viper.SetConfigFile(*configPath)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	// Unmarshal the config into your Config struct
	config := domain.DefaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Println("Error unmarshalling config:", err)
		return
	}

	// Handle SIGINT and SIGTERM signals to initiate shutdown
	exitChan := make(chan os.Signal, 1)
	signal.Notify(exitChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		if err := recover(); err != nil {
			log.Println(err)
			exitChan <- syscall.SIGTERM
		}
	}()

	if config.OTEL != nil && config.OTEL.DSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			ServerName:  *hostName,
			Dsn:         config.OTEL.DSN,
			SampleRate:  config.OTEL.SampleRate,
			Debug:       *isDebug,
			Environment: config.OTEL.Environment,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		defer sentry.Flush(2 * time.Second)

		sentry.CaptureMessage("Gatekeeper started")
	}

	// logger
	logger, err := gatekeeperlog.NewLogger(config.LoggerIsProduction, config.LoggerFilename, config.LoggerLevel)
	if err != nil {
		panic(fmt.Errorf("error while creating logger: %s", err))
	}
	logger.Info("Starting gatekeeper")

	// Use context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	gatekeeperServer, err := NewGatekeeperServer(ctx, config, logger)
	if err != nil {
		panic(err)
	}

	go func() {
		<-exitChan
		cancel() // Trigger shutdown

		err := gatekeeperServer.Shutdown(context.Background())
		if err != nil {
			log.Fatal(err)
		}

		os.Exit(0)
	}()

	if err := gatekeeperServer.Start(ctx); err != nil {
		panic(err)
	}
}
