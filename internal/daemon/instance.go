package daemon

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/client"
	"github.com/matheus3301/walink/internal/config"
	"github.com/matheus3301/walink/internal/lidstore"
	"github.com/matheus3301/walink/internal/lock"
	"github.com/matheus3301/walink/internal/session"
	"github.com/matheus3301/walink/internal/wa"
)

// DeviceName is shown in the phone's linked devices list.
const DeviceName = "walink"

// Instance is one hosted client with the resources it owns: the instance
// lock, the transport adapter and the identity snapshot database.
type Instance struct {
	ID     string
	Client *client.Client

	adapter *wa.Adapter
	lock    *lock.Lock
	ids     *lidstore.DB
	log     *zap.Logger
	unwatch func()

	// restored is set once the snapshot was loaded; only then may the
	// cache overwrite it.
	restored bool
}

// openInstance locks the instance directory, opens its credential store
// and restores the identity cache from the last snapshot.
func openInstance(ctx context.Context, cfg *config.Config, id string, logger *zap.Logger) (*Instance, error) {
	opts, err := cfg.ClientOptions(id)
	if err != nil {
		return nil, err
	}
	log := logger.With(zap.String("instance", id))

	if err := session.EnsureDir(opts.SessionPath, id); err != nil {
		return nil, fmt.Errorf("instance %s: %w", id, err)
	}
	log.Info("acquiring instance lock")
	lk, err := lock.Acquire(opts.SessionPath, id)
	if err != nil {
		return nil, err
	}
	inst := &Instance{ID: id, lock: lk, log: log}

	adapter, err := wa.NewAdapter(ctx, wa.Options{
		InstanceID:  id,
		SessionPath: opts.SessionPath,
		Debug:       opts.Debug,
		DeviceName:  DeviceName,
	}, logger)
	if err != nil {
		return nil, errors.Join(err, inst.close())
	}
	inst.adapter = adapter

	c, err := client.New(opts, adapter, logger)
	if err != nil {
		return nil, errors.Join(err, inst.close())
	}
	inst.Client = c

	ids, err := lidstore.Open(session.IdentityDBPath(opts.SessionPath, id))
	if err != nil {
		return nil, errors.Join(err, inst.close())
	}
	inst.ids = ids
	result, err := ids.Migrate()
	if err != nil {
		return nil, errors.Join(err, inst.close())
	}
	if result.Changed {
		log.Info("identity migrations applied", zap.Uint("version", result.Version))
	}
	mappings, err := ids.Load()
	if err != nil {
		return nil, errors.Join(err, inst.close())
	}
	c.ImportMappings(mappings)
	inst.restored = true

	log.Info("instance opened",
		zap.Bool("logged_in", adapter.IsLoggedIn()),
		zap.Int("identity_mappings", len(mappings)),
	)
	return inst, nil
}

// watch snapshots the identity cache every time the session becomes
// ready, so a crash loses at most one session's worth of mappings.
func (i *Instance) watch() {
	ch, unsub := i.Client.Subscribe(bus.KindReady, 4)
	i.unwatch = unsub
	go func() {
		for range ch {
			if err := i.saveIdentities(); err != nil {
				i.log.Warn("identity snapshot failed", zap.Error(err))
			}
		}
	}()
}

func (i *Instance) saveIdentities() error {
	mappings := i.Client.ExportMappings()
	if err := i.ids.Save(mappings); err != nil {
		return err
	}
	i.log.Debug("identity snapshot saved", zap.Int("mappings", len(mappings)))
	return nil
}

// close saves the identity snapshot and releases everything the instance
// holds. It tolerates a partially opened instance.
func (i *Instance) close() error {
	if i.unwatch != nil {
		i.unwatch()
	}
	var errs []error
	if i.restored {
		errs = append(errs, i.saveIdentities())
	}
	if i.Client != nil {
		i.Client.Dispose()
	}
	if i.ids != nil {
		errs = append(errs, i.ids.Close())
	}
	if i.adapter != nil {
		errs = append(errs, i.adapter.Close())
	}
	if i.lock != nil {
		errs = append(errs, i.lock.Release())
	}
	return errors.Join(errs...)
}
