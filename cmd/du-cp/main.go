package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distributed-unit/internal/app"
	"distributed-unit/pkg/config"

	"github.com/urfave/cli/v2"
)

const stopTimeout = 10 * time.Second

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to YAML configuration `file`",
		Value:   "config/config.yml",
	}

	du := &cli.App{
		Name:  "du-cp",
		Usage: "gNB-DU control plane: F1AP towards the gNB-CU",
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Connect to the CU and serve UEs",
				Flags:  []cli.Flag{configFlag},
				Action: runStart,
			},
			{
				Name:   "check-config",
				Usage:  "Validate a configuration file and exit",
				Flags:  []cli.Flag{configFlag},
				Action: runCheckConfig,
			},
		},
		Version: "v0.1.0",
	}

	if err := du.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func runStart(c *cli.Context) error {
	svc, err := app.New(c.String("config"))
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := svc.Start(); err != nil {
		_ = svc.Stop(context.Background())
		return fmt.Errorf("start service: %w", err)
	}

	return waitForShutdown(svc)
}

func runCheckConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d cells, CU at %s)\n", c.String("config"), len(cfg.DU.Cells), cfg.F1AP.CUEndpoint())
	return nil
}

func waitForShutdown(svc *app.App) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	fmt.Println("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := svc.Stop(ctx); err != nil {
		return fmt.Errorf("graceful stop failed: %w", err)
	}
	fmt.Println("distributed-unit stopped")
	return nil
}
