package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/net/html"

	"github.com/pthm/suit"
)

func runInspect(args []string, w io.Writer) error {
	var common commonFlags
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	common.add(fs)

	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	_, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	rt, err := loadPage(path, suit.WithLogger(logger))
	if err != nil {
		return err
	}

	n := printTree(w, rt.Document().Root(), 0)
	if n == 0 {
		fmt.Fprintln(w, "no containers")
	}
	return nil
}

// printTree writes one line per container or region below n and returns
// how many containers it printed.
func printTree(w io.Writer, n *html.Node, depth int) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		next := depth
		switch {
		case suit.IsContainer(c):
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describeContainer(c))
			count++
			next++
		case suit.IsRegion(c):
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describeRegion(c))
			next++
		}
		count += printTree(w, c, next)
	}
	return count
}

func describeContainer(n *html.Node) string {
	var b strings.Builder
	name := suit.TemplateName(n)
	if name == "" {
		name = "(unnamed)"
	}
	b.WriteString("container " + name)
	if suit.IsLoaded(n) {
		b.WriteString(" loaded")
	}
	if deps := suit.Dependencies(n); len(deps) > 0 {
		b.WriteString(" deps=" + strings.Join(deps, ","))
	}
	return b.String()
}

func describeRegion(n *html.Node) string {
	var b strings.Builder
	b.WriteString("region")
	if name := suit.RegionName(n); name != "" {
		b.WriteString(" " + name)
	}
	if deps := suit.Dependencies(n); len(deps) > 0 {
		b.WriteString(" deps=" + strings.Join(deps, ","))
	}
	return b.String()
}
