package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/pthm/suit"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "inspect":
		if err := runInspect(args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "affected":
		if err := runAffected(args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("suit version %s\n", version)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `suit - widget runtime inspector

Usage:
  suit <command> [arguments]

Commands:
  inspect [--config f] page.html
        Print the containers and regions of a page as a tree
  affected [--config f] [--env bootstrap.json] --result result.json page.html
        Seed the environment, merge a request result and print what refreshes
  version               Print version
  help                  Show this help

Options:
  --config              YAML configuration (log_level, adopt_new_keys, bootstrap, secret)

Examples:
  suit inspect page.html
  suit affected --env env.json --result response.json page.html`)
}

// commonFlags are accepted by every command reading a page.
type commonFlags struct {
	config string
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "path to YAML configuration")
}

// setup loads the configuration and builds the logger it asks for.
func (c *commonFlags) setup() (*suit.Config, *zap.Logger, error) {
	cfg := suit.DefaultConfig()
	if c.config != "" {
		var err error
		if cfg, err = suit.LoadConfig(c.config); err != nil {
			return nil, nil, err
		}
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// parse parses args and returns the single positional page path.
func parse(fs *pflag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", errors.New("expected exactly one page file")
	}
	return fs.Arg(0), nil
}

// loadPage parses the page file into a runtime.
func loadPage(path string, opts ...suit.Option) (*suit.Runtime, error) {
	markup, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return suit.NewFromMarkup(string(markup), opts...)
}
