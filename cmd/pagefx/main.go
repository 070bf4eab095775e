package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var version = "dev"

func Execute(args []string) error {
	app := cli.App{
		Name:      "pagefx",
		Usage:     "viewport-triggered page effects, simulated",
		Version:   version,
		UsageText: "pagefx <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:    "simulate",
				Aliases: []string{"sim"},
				Usage:   "replay the configured scroll script against a page and print the report",
				Action:  simulate,
				Flags:   append([]cli.Flag{realtimeFlag}, commonFlags...),
			},
			{
				Name:   "watch",
				Usage:  "re-run the simulation whenever the config file changes",
				Action: watch,
				Flags:  commonFlags,
			},
			{
				Name:   "scan",
				Usage:  "list the elements a page exposes to the runtime",
				Action: scan,
				Flags:  commonFlags,
			},
			{
				Name:   "check-form",
				Usage:  "validate an email address and phone number with the site rules",
				Action: checkForm,
				Flags:  checkFormFlags,
			},
		},
	}
	return app.Run(args)
}

func main() {
	if err := Execute(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pagefx: %s\n", err.Error())
		os.Exit(1)
	}
}
