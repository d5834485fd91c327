package main

import (
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/open-idm/open-idm/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "open-idm",
	Short:         "Open-IdM is a target system and schema registry service.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// commandExecutionContext records how the running command reports failures.
type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	commandExecMu  sync.Mutex
	commandExecCtx commandExecutionContext
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandExecMu.Lock()
	defer commandExecMu.Unlock()
	commandExecCtx = ctx
}

func currentCommandExecutionContext() commandExecutionContext {
	commandExecMu.Lock()
	defer commandExecMu.Unlock()
	return commandExecCtx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

// Service commands log structured lines; interactive commands print plain
// text so prompts and errors stay readable.
func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "serve", "migrate":
		return true
	}
	return false
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ctx := commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: commandUsesStructuredLogging(cmd),
		}
		setCommandExecutionContext(ctx)
		if !ctx.UsesStructuredLog {
			return nil
		}
		_, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
			Command: ctx.CommandPath,
			Writer:  os.Stderr,
		})
		return err
	}
	rootCmd.AddCommand(serveCmd, migrateCmd, usersCmd, systemsCmd, connectorsCmd)
}
