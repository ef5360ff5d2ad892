package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"contesthub/internal/app"
	"contesthub/internal/config"
	"contesthub/internal/localstore"
	"contesthub/internal/logging"
	"contesthub/internal/model"
	"contesthub/internal/session"
	"contesthub/internal/validation"
)

var errNotLoggedIn = errors.New("not logged in: run `hubctl login` first")

// cli carries what every command needs. Tests fill storage and configure to
// run commands against a mock backend.
type cli struct {
	configPath string
	verbose    bool

	storage   localstore.Storage
	configure func(*config.App)

	app   *app.App
	out   io.Writer
	input *bufio.Reader
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "hubctl",
		Short: "Command-line dashboard for school competitions",
		Long: `hubctl drives the contesthub stores from a terminal.

Log in once; the session is persisted (file or redis, see SESSION_BACKEND)
and reused by later invocations and by hubsync.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config profile; environment variables override it")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(c.sessionCommands()...)
	root.AddCommand(c.domainCommands()...)
	root.AddCommand(c.teamsCmd(), c.chatCmd())
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg := config.Load()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(c.configPath); err != nil {
			return err
		}
	}
	if c.configure != nil {
		c.configure(&cfg)
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	} else if cfg.LogLevel == "" || cfg.LogLevel == "info" {
		// Store logs go to stderr; keep the default output for results.
		cfg.LogLevel = "warn"
	}

	a, err := app.New(cfg, app.Options{
		Logger:  logging.New(cmd.ErrOrStderr(), cfg.LogLevel),
		Storage: c.storage,
	})
	if err != nil {
		return err
	}
	if err := a.Start(cmd.Context()); err != nil {
		// cobra skips PersistentPostRunE when this hook fails.
		return errors.Join(err, a.Close())
	}
	c.app = a
	c.out = cmd.OutOrStdout()
	c.input = bufio.NewReader(cmd.InOrStdin())
	return nil
}

func (c *cli) identity() (*model.Identity, error) {
	id := c.app.Session.Identity()
	if id == nil {
		return nil, errNotLoggedIn
	}
	return id, nil
}

func (c *cli) admin() (*model.Identity, error) {
	id, err := c.identity()
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		return nil, errors.New("this command needs an admin account")
	}
	return id, nil
}

// prompt prints label and reads one trimmed line.
func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	line, err := c.input.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// result prints a session result and turns a failure into an error.
func (c *cli) result(res session.Result) error {
	if res.Success {
		if res.Message != "" {
			fmt.Fprintln(c.out, good(res.Message))
		}
		return nil
	}
	c.fields(res.Errors)
	return errors.New(res.Message)
}

func (c *cli) fields(fields validation.FieldErrors) {
	for _, k := range sortedKeys(fields) {
		fmt.Fprintf(c.out, "  %s: %s\n", k, fields[k])
	}
}

// fail prints field errors carried by err and returns it.
func (c *cli) fail(err error) error {
	c.fields(validation.Fields(err))
	return err
}
