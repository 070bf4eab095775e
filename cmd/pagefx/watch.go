package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"pagefx/internal/config"
	"pagefx/internal/observability/pprof"
	"pagefx/internal/runtime/supervisor"
	logx "pagefx/pkg/logx"
)

const stopTimeout = 5 * time.Second

func watch(c *cli.Context) error {
	if configPath == "" {
		return errors.New("watch needs --config")
	}
	fs := afero.NewOsFs()
	m := config.NewManager(fs, configPath)
	m.UseEnv(true)
	cfg, err := m.Load()
	if err != nil {
		return err
	}
	set, err := config.Resolve(cfg)
	if err != nil {
		return err
	}

	svc, log := logx.NewService(set.Log)
	defer svc.Close()
	m.SetLogger(log.With(logx.String("component", "config")))
	m.SetValidator(func(_ context.Context, next *config.Config) error {
		_, err := config.Resolve(next)
		return err
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(ctx,
		supervisor.WithLogger(log.With(logx.String("component", "supervisor"))),
		supervisor.WithCancelOnError(true))

	debug := pprof.New(log.With(logx.String("component", "pprof")))
	debug.Apply(ctx, set.Pprof)
	defer debug.Stop(context.Background())

	updates := m.Subscribe(4)
	defer m.Unsubscribe(updates)
	sup.GoRestart("config.watch", m.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))

	rerun := func(ctx context.Context, set *config.Settings) {
		doc, err := loadPage(fs, pagePath, set)
		if err != nil {
			log.Error("page scan failed", logx.String("page", pagePath), logx.Err(err))
			return
		}
		rep, err := runSession(ctx, set, doc, log, false)
		if err != nil {
			log.Warn("simulation stopped", logx.Err(err))
		}
		if rep != nil {
			_ = rep.Format(os.Stdout)
		}
	}

	sup.Go("simulate", func(ctx context.Context) error {
		rerun(ctx, set)
		sdNotify(log, daemon.SdNotifyReady)

		current := cfg
		for {
			select {
			case <-ctx.Done():
				return nil
			case next, ok := <-updates:
				if !ok {
					return nil
				}
				sdNotify(log, daemon.SdNotifyReloading)
				changed, fields := config.SummarizeConfigChange(current, next)
				fields = append(fields, logx.String("sections", strings.Join(changed, ",")))
				log.Info("config reloaded", fields...)
				current = next

				nset, err := config.Resolve(next)
				if err != nil {
					// The validator resolved it already; this only trips on env drift.
					log.Warn("config rejected", logx.Err(err))
					sdNotify(log, daemon.SdNotifyReady)
					continue
				}
				svc.Apply(nset.Log)
				debug.Apply(ctx, nset.Pprof)
				rerun(ctx, nset)
				sdNotify(log, daemon.SdNotifyReady)
			}
		}
	})

	log.Info("watching config", logx.String("path", configPath), logx.String("page", pagePath))
	<-sup.Context().Done()
	sdNotify(log, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return sup.Stop(stopCtx)
}

// sdNotify reports state to systemd when running under a notify unit.
func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
