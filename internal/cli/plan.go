package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cernvm/litescript/pkg/build"
	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/yaml"
)

// PlanArgs holds the flags of the plan command.
type PlanArgs struct {
	*RootArgs
	ConfigArgs

	Files bool
}

func NewPlanArgs(rootArgs *RootArgs) *PlanArgs {
	return &PlanArgs{RootArgs: rootArgs}
}

func (pa *PlanArgs) AddFlags(cmd *cobra.Command) {
	pa.ConfigArgs.AddFlags(cmd)
	cmd.Flags().BoolVar(&pa.Files, "files", false,
		"Also list the files the archive would contain, read from the base directory")
}

type planOutput struct {
	Program *compiler.Program `json:"program"`
	Files   []string          `json:"files,omitempty"`
}

func NewPlanCmd(pa *PlanArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <ruleset>",
		Short: "Print the compiled program of a ruleset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, pa, args[0])
		},
	}
	pa.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runPlan(cmd *cobra.Command, pa *PlanArgs, rulesetPath string) error {
	cfg, err := loadConfig(cmd, pa.RootArgs, &pa.ConfigArgs, rulesetPath)
	if err != nil {
		return err
	}

	b, err := build.New(cfg)
	if err != nil {
		return fmt.Errorf("setup build: %w", err)
	}

	p, err := b.Plan(cmd.Context(), rulesetPath)
	if err != nil {
		return err //nolint:wrapcheck // Names the ruleset.
	}

	out := planOutput{Program: p}
	if pa.Files {
		out.Files, err = b.Files(p)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	if err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	return nil
}
