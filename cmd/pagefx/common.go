package main

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"pagefx/internal/config"
	"pagefx/internal/page"
	"pagefx/internal/render"
	"pagefx/internal/sim"
	logx "pagefx/pkg/logx"
)

var (
	configPath string
	pagePath   string
	realtime   bool

	commonFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "config file, yaml or json (defaults apply when omitted)",
			EnvVar:      "PAGEFX_CONFIG",
			Destination: &configPath,
		},
		cli.StringFlag{
			Name:        "page, p",
			Value:       "index.html",
			Usage:       "html page to scan",
			EnvVar:      "PAGEFX_PAGE",
			Destination: &pagePath,
		},
	}

	realtimeFlag = cli.BoolFlag{
		Name:        "realtime, r",
		Usage:       "run against the wall clock and draw counters as progress bars",
		Destination: &realtime,
	}
)

// loadConfig reads the config file, or starts from an empty one when no
// path is given. Environment overrides apply either way.
func loadConfig(fs afero.Fs, path string) (*config.Config, *config.Settings, error) {
	var cfg *config.Config
	if path == "" {
		cfg = &config.Config{}
		if err := config.ApplyEnv(cfg); err != nil {
			return nil, nil, err
		}
	} else {
		m := config.NewManager(fs, path)
		m.UseEnv(true)
		var err error
		if cfg, err = m.Load(); err != nil {
			return nil, nil, err
		}
	}
	set, err := config.Resolve(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, set, nil
}

func loadPage(fs afero.Fs, path string, set *config.Settings) (*page.Document, error) {
	return page.ScanFile(fs, path, page.Selectors{RevealClasses: set.RevealClasses})
}

func runSession(ctx context.Context, set *config.Settings, doc *page.Document, log logx.Logger, live bool) (*sim.Report, error) {
	opts := sim.Options{Settings: set, Document: doc, Logger: log, Realtime: live}
	if live {
		opts.Sink = render.NewLog(log.With(logx.String("component", "render")))
		opts.Terminal = render.NewTerminal(ctx, os.Stdout)
	}
	s, err := sim.New(opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
