package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-journal/internal/console"
	"github.com/tbourn/go-journal/internal/sysutil"
)

func addConfirm(topLevel *cobra.Command, c *cli) {
	cmd := &cobra.Command{
		Use:   "confirm TOKEN",
		Short: "Confirm the email address of a new account.",
		Example: `
journal confirm 3f9c0a...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			lg, logFile, err := sysutil.SetupFileLogger(c.cfg.Client.DataDir, "journal.log")
			if err != nil {
				return err
			}
			defer logFile.Close()

			out := cmd.OutOrStdout()
			be, closeFn, err := openBackend(cmd.Context(), c.cfg, lg, out)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := be.Confirm(cmd.Context(), args[0]); err != nil {
				return errors.New(console.Describe(err))
			}
			fmt.Fprintln(out, "Email confirmed. You can sign in now.")
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}
