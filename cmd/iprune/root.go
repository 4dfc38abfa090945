package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luojun96/iprune/prune"
	"github.com/luojun96/iprune/registry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks failures that are the caller's fault: they print usage
// and exit with exitUsage before any request is made.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

type cli struct {
	cmd       *cobra.Command
	v         *viper.Viper
	stdout    io.Writer
	stderr    io.Writer
	helpShown bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	c := &cli{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
	}

	c.cmd = &cobra.Command{
		Use:   "iprune",
		Short: "List and delete images of a Docker registry",
		Long: `iprune lists every repository:tag of a Docker registry with its manifest
digest, or deletes one repository:tag together with the layers its manifest
references. Storage is only reclaimed once the registry garbage collector runs.`,
		Example:       "  iprune -s https://129.157.181.199:5000 -u admin -p p@ssword -d name:1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 {
				return &usageError{errors.New("no flags given")}
			}
			return c.execute(cmd.Context())
		},
	}

	flags := c.cmd.Flags()
	flags.StringP("server", "s", "", "Docker registry URL, http:// or https://")
	flags.StringP("username", "u", "", "Docker registry user name")
	flags.StringP("password", "p", "", "Docker registry user's password")
	flags.StringP("delete", "d", "", "delete a specific image, name:tag format")
	flags.StringSliceP("exclude", "e", nil, "repository to leave out of the listing, repeatable")
	flags.BoolP("dry-run", "n", false, "print what --delete would remove without deleting")
	flags.IntP("concurrency", "c", 1, "repositories resolved in parallel while listing")
	flags.BoolP("verbose", "v", false, "turn on debug logging")

	c.cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})
	c.cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		c.helpShown = true
		fmt.Fprint(c.stderr, cmd.UsageString())
	})
	c.cmd.SetOut(stdout)
	c.cmd.SetErr(stderr)

	return c
}

// bindCredentials lets IPRUNE_USERNAME and IPRUNE_PASSWORD stand in for
// -u and -p. No other setting is read from the environment.
func (c *cli) bindCredentials() error {
	c.v.SetEnvPrefix("IPRUNE")
	for _, key := range []string{"username", "password"} {
		if err := c.v.BindPFlag(key, c.cmd.Flags().Lookup(key)); err != nil {
			return fmt.Errorf("binding --%s: %w", key, err)
		}
		if err := c.v.BindEnv(key); err != nil {
			return fmt.Errorf("binding %s environment: %w", key, err)
		}
	}
	return nil
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{}
	}
	c := newCLI(stdout, stderr)
	c.cmd.SetArgs(args)

	err := c.cmd.ExecuteContext(ctx)
	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "Error: %v\n%s", err, c.cmd.UsageString())
		return exitUsage
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	case c.helpShown:
		return exitUsage
	}
	return exitOK
}

func (c *cli) execute(ctx context.Context) error {
	if err := c.bindCredentials(); err != nil {
		return err
	}
	flags := c.cmd.Flags()
	server, _ := flags.GetString("server")
	cfg := registry.Config{
		Server:   server,
		Username: c.v.GetString("username"),
		Password: c.v.GetString("password"),
	}
	if cfg.Server == "" {
		return &usageError{errors.New("--server is required")}
	}
	reg, err := registry.NewRegistry(cfg)
	if err != nil {
		return &usageError{err}
	}

	var repo, tag string
	deleting := flags.Changed("delete")
	if deleting {
		image, _ := flags.GetString("delete")
		if repo, tag, err = prune.ParseImage(image); err != nil {
			return &usageError{err}
		}
	}

	verbose, _ := flags.GetBool("verbose")
	concurrency, _ := flags.GetInt("concurrency")
	exclude, _ := flags.GetStringSlice("exclude")
	dryRun, _ := flags.GetBool("dry-run")

	log := newLogger(c.stderr, verbose)
	reg.Log = log
	p := prune.NewPruner(reg, c.stdout, log, prune.Options{
		Concurrency: concurrency,
		Exclude:     exclude,
		DryRun:      dryRun,
	})

	if deleting {
		log.WithFields(logrus.Fields{"repository": repo, "tag": tag}).Debug("deleting image")
		if _, err := p.Delete(ctx, repo, tag); err != nil {
			log.Error(err)
		}
		return nil
	}

	if err := p.List(ctx); err != nil {
		log.Error(err)
	}
	return nil
}
