package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	logx "pagefx/pkg/logx"
)

func simulate(c *cli.Context) error {
	fs := afero.NewOsFs()
	_, set, err := loadConfig(fs, configPath)
	if err != nil {
		return err
	}
	svc, log := logx.NewService(set.Log)
	defer svc.Close()

	doc, err := loadPage(fs, pagePath, set)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := runSession(ctx, set, doc, log, realtime)
	if rep != nil {
		if ferr := rep.Format(os.Stdout); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
