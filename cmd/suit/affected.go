package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/pthm/suit"
	"github.com/pthm/suit/lib/encoding"
)

func runAffected(args []string, w io.Writer) error {
	var common commonFlags
	var envPath, resultPath string
	fs := pflag.NewFlagSet("affected", pflag.ContinueOnError)
	common.add(fs)
	fs.StringVar(&envPath, "env", "", "bootstrap payload (default: bootstrap from config)")
	fs.StringVar(&resultPath, "result", "", "JSON response of a completed request")

	path, err := parse(fs, args)
	if err != nil {
		return err
	}
	if resultPath == "" {
		return errors.New("--result is required")
	}
	cfg, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if envPath == "" {
		envPath = cfg.Bootstrap
	}
	if envPath == "" {
		return errors.New("--env is required when the config has no bootstrap")
	}

	rt, err := loadPage(path, suit.WithConfig(cfg), suit.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := seed(rt.Env(), cfg, envPath); err != nil {
		return err
	}

	body, err := os.ReadFile(resultPath)
	if err != nil {
		return err
	}
	comp, err := suit.ParseCompletion(body)
	if err != nil {
		return err
	}

	changed := rt.Env().Merge(comp.Result)
	if len(changed) == 0 {
		fmt.Fprintln(w, "no changes")
		return nil
	}
	fmt.Fprintf(w, "changed: %s\n", strings.Join(changed, ", "))

	targets := rt.Dependents(changed)
	if len(targets) == 0 {
		fmt.Fprintln(w, "nothing to refresh")
		return nil
	}
	for _, t := range targets {
		name := suit.TemplateName(t.Container)
		if t.Region != "" {
			fmt.Fprintf(w, "refresh %s region %s (%s)\n", name, t.Region, strings.Join(t.Keys, ", "))
		} else {
			fmt.Fprintf(w, "refresh %s (%s)\n", name, strings.Join(t.Keys, ", "))
		}
	}
	return nil
}

// seed loads the bootstrap file, opening it as a sealed token when the
// configuration carries a secret.
func seed(env *suit.EnvironmentStore, cfg *suit.Config, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if cfg.Secret == "" {
		return env.Seed(payload)
	}
	enc, err := encoding.NewEncoder([]byte(cfg.Secret))
	if err != nil {
		return err
	}
	return env.SeedSealed(enc, strings.TrimSpace(string(payload)))
}
