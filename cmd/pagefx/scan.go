package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"pagefx/internal/page"
	"pagefx/internal/viewport"
)

func scan(c *cli.Context) error {
	fs := afero.NewOsFs()
	_, set, err := loadConfig(fs, configPath)
	if err != nil {
		return err
	}
	doc, err := loadPage(fs, pagePath, set)
	if err != nil {
		return err
	}
	printDocument(os.Stdout, doc)
	return nil
}

func printDocument(w io.Writer, doc *page.Document) {
	fmt.Fprintf(w, "title: %s\n", doc.Title)
	fmt.Fprintf(w, "elements: %d\n", len(doc.Elements))

	fmt.Fprintf(w, "\ncounters (%d):\n", len(doc.Counters))
	for _, c := range doc.Counters {
		if c.Err != nil {
			fmt.Fprintf(w, "  %-24s %q  skipped: %v\n", c.ID, c.Raw, c.Err)
			continue
		}
		fmt.Fprintf(w, "  %-24s %d\n", c.ID, c.Target)
	}

	fmt.Fprintf(w, "\nreveals (%d):\n", len(doc.Reveals))
	for _, id := range doc.Reveals {
		classes := ""
		if el, ok := doc.Lookup(id); ok {
			classes = strings.Join(el.Classes, " ")
		}
		fmt.Fprintf(w, "  %-24s %s\n", id, classes)
	}

	fmt.Fprintf(w, "\nimages (%d):\n", len(doc.Images))
	for _, im := range doc.Images {
		fmt.Fprintf(w, "  %-24s %s\n", im.ID, im.Src)
	}

	fmt.Fprintf(w, "\nforms (%d):\n", len(doc.Forms))
	for _, f := range doc.Forms {
		names := make([]string, 0, len(f.Fields))
		for _, fl := range f.Fields {
			names = append(names, fl.Name)
		}
		fmt.Fprintf(w, "  %-24s action=%q submit=%s fields=[%s]\n", f.ID, f.Action, f.Submit, strings.Join(names, ","))
	}

	fmt.Fprintf(w, "\nwidgets:\n")
	fmt.Fprintf(w, "  faq items      %d\n", len(doc.FAQ))
	fmt.Fprintf(w, "  course cards   %d\n", len(doc.Courses))
	fmt.Fprintf(w, "  filter buttons %d\n", len(doc.Filters))
	fmt.Fprintf(w, "  anchors        %d\n", len(doc.Anchors))
	for _, nav := range []struct {
		name string
		id   viewport.ElementID
	}{
		{"navbar", doc.Navbar},
		{"back-to-top", doc.BackToTop},
		{"menu button", doc.MenuButton},
		{"nav menu", doc.NavMenu},
	} {
		id := string(nav.id)
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "  %-14s %s\n", nav.name, id)
	}
}
