package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/config"
	"github.com/matheus3301/walink/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "walink.toml", "path to config file")
	instanceFlag := flag.String("instance", "", "host only this instance")
	debugFlag := flag.Bool("debug", false, "debug logging (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Defaults()
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if *instanceFlag != "" {
		inst, ok := cfg.Instance(*instanceFlag)
		if !ok {
			inst = config.Instance{ID: *instanceFlag}
		}
		cfg.Instances = []config.Instance{inst}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	app.Run()
}
