package main

import (
	"fmt"

	"github.com/urfave/cli"

	"pagefx/internal/widgets"
)

var (
	formEmail string
	formPhone string

	checkFormFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "email, e",
			Usage:       "email address to check",
			Destination: &formEmail,
		},
		cli.StringFlag{
			Name:        "phone",
			Usage:       "phone number to check",
			Destination: &formPhone,
		},
	}
)

func checkForm(c *cli.Context) error {
	values := map[string]string{}
	if c.IsSet("email") {
		values["email"] = formEmail
	}
	if c.IsSet("phone") {
		values["phone"] = formPhone
	}
	if len(values) == 0 {
		return cli.ShowCommandHelp(c, c.Command.Name)
	}
	errs := widgets.ValidateForm(values)
	for _, e := range errs {
		fmt.Println(e.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d invalid field(s)", len(errs))
	}
	fmt.Println("ok")
	return nil
}
