package daemon

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/api"
	"github.com/matheus3301/walink/internal/client"
	"github.com/matheus3301/walink/internal/config"
	"github.com/matheus3301/walink/internal/logging"
	"github.com/matheus3301/walink/internal/session"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config     *config.Config
	SocketPath string // optional override for testing; empty = config or default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideInstances,
			provideRegistry,
			provideService,
			provideMetrics,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.Config.SessionPath), "", p.Config.Debug)
}

// provideInstances opens every configured instance. A failure closes the
// ones already opened so their locks are released.
func provideInstances(p Params, logger *zap.Logger) ([]*Instance, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	instances := make([]*Instance, 0, len(p.Config.Instances))
	for _, ic := range p.Config.Instances {
		inst, err := openInstance(context.Background(), p.Config, ic.ID, logger)
		if err != nil {
			for _, opened := range instances {
				err = errors.Join(err, opened.close())
			}
			return nil, fmt.Errorf("open instance %s: %w", ic.ID, err)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func provideRegistry(instances []*Instance) (*client.Registry, error) {
	reg := client.NewRegistry()
	for _, inst := range instances {
		if err := reg.Add(inst.Client); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func provideService(reg *client.Registry, logger *zap.Logger) *api.Service {
	return api.NewService(reg, logger)
}

func provideMetrics(p Params, logger *zap.Logger) *MetricsServer {
	return NewMetricsServer(p.Config.MetricsAddr, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, ms *MetricsServer, instances []*Instance, reg *client.Registry, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if err := ms.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}

			for _, inst := range instances {
				inst.watch()
				// Connect pairs when no credentials exist; QR codes reach
				// walinkctl through the events stream.
				go func(inst *Instance) {
					if err := inst.Client.Connect(); err != nil {
						inst.log.Error("connect failed", zap.Error(err))
					}
				}(inst)
			}
			logger.Info("daemon started", zap.Strings("instances", reg.IDs()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			ms.Stop(ctx)
			for _, inst := range instances {
				reg.Remove(inst.ID)
				if err := inst.close(); err != nil {
					inst.log.Warn("error closing instance", zap.Error(err))
				}
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
