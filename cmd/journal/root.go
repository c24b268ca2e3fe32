package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-journal/internal/config"
	"github.com/tbourn/go-journal/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli carries state shared by the subcommands.
type cli struct {
	envFile string
	cfg     config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:           "journal",
		Short:         "A private journal with mood tracking and reflections.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file read before the environment")

	addServe(cmd, c)
	addApp(cmd, c)
	addConfirm(cmd, c)
	addVersion(cmd)
	return cmd
}

// load reads the dotenv file, if present, then the environment. Variables
// already set win over the file.
func (c *cli) load() error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	c.cfg = cfg
	return nil
}
