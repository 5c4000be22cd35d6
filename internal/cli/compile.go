package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cernvm/litescript/pkg/build"
)

const cmdExamples = `  # Build prepare.sh and prepare-files.tbz2 from a ruleset:
  litescript cernvm.rules out/prepare.sh

  # Same, with a different source root and gzip compression:
  litescript compile cernvm.rules out/prepare.sh --base-dir /srv/cvm --compression gzip

  # Fail if out/prepare.sh is not what the ruleset produces:
  litescript compile cernvm.rules out/prepare.sh --check

  # Show the compiled statements and the files the archive would contain:
  litescript plan cernvm.rules --files`

// CompileArgs holds the flags of the compile command.
type CompileArgs struct {
	*RootArgs
	ConfigArgs

	Check bool
}

func NewCompileArgs(rootArgs *RootArgs) *CompileArgs {
	return &CompileArgs{RootArgs: rootArgs}
}

func (ca *CompileArgs) AddFlags(cmd *cobra.Command) {
	ca.ConfigArgs.AddFlags(cmd)
	cmd.Flags().BoolVar(&ca.Check, "check", false,
		"Compare the output with what would be generated instead of writing it")
}

func NewCompileCmd(ca *CompileArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "compile <ruleset> <output>",
		Short:   "Compile a ruleset into a boot script and content archive",
		Example: cmdExamples,
		Args: func(cmd *cobra.Command, args []string) error {
			if ca.WriteConfig {
				return nil
			}

			return cobra.ExactArgs(2)(cmd, args)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) < 2 {
				return nil, cobra.ShellCompDirectiveDefault
			}

			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if ca.WriteConfig {
				return writeConfig(ca.RootArgs)
			}

			return runCompile(cmd, ca, args[0], args[1])
		},
	}
	ca.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runCompile(cmd *cobra.Command, ca *CompileArgs, rulesetPath, outputPath string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, ca.RootArgs, &ca.ConfigArgs, rulesetPath)
	if err != nil {
		return err
	}

	b, err := build.New(cfg)
	if err != nil {
		return fmt.Errorf("setup build: %w", err)
	}

	if ca.Check {
		return b.Check(ctx, rulesetPath, outputPath) //nolint:wrapcheck // Carries the diff.
	}

	_, err = b.Build(ctx, rulesetPath, outputPath)
	if err != nil {
		return fmt.Errorf("build %s: %w", outputPath, err)
	}

	return nil
}
