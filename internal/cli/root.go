package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cernvm/litescript/api/v1beta1/configs"
	"github.com/cernvm/litescript/pkg/log"
)

const (
	cmdName = "litescript"
	cmdDesc = `Compile a filesystem ruleset into a CernVM boot script and content archive.`
)

// RootArgs holds the flags shared by all commands.
type RootArgs struct {
	LogLevel    string
	LogFormat   string
	ConfigPath  string
	WriteConfig bool
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the litescript configuration file")
	cmd.PersistentFlags().
		BoolVar(&ra.WriteConfig, "write-config", false, "Write the default configuration file and exit")

	must(cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	))
	must(cmd.MarkPersistentFlagFilename("config", "yaml", "yml"))
}

// NewRootCmd creates the litescript command tree. Without a subcommand it
// behaves like `compile`.
func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	compileArgs := NewCompileArgs(args)

	compileCmd := NewCompileCmd(compileArgs)
	cmd := &cobra.Command{
		Use:               cmdName + " <ruleset> <output>",
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		Args:              compileCmd.Args,
		RunE:              compileCmd.RunE,
		SilenceUsage:      true,
	}

	args.AddFlags(cmd)
	compileArgs.AddFlags(cmd)
	cmd.AddCommand(compileCmd, NewPlanCmd(NewPlanArgs(args)))

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		logger := slog.New(logHandler)
		slog.SetDefault(logger)
		cmd.SetContext(log.NewContext(cmd.Context(), logger))

		return nil
	}
}

// writeConfig handles --write-config.
func writeConfig(ra *RootArgs) error {
	p := ra.ConfigPath
	if p == "" {
		p = configs.GetPath()
	}

	return configs.WriteDefault(p, false) //nolint:wrapcheck // Already wrapped.
}
