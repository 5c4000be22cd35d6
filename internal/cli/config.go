package cli

import (
	"errors"
	"fmt"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cernvm/litescript/api/v1beta1/configs"
	"github.com/cernvm/litescript/pkg/archive"
	"github.com/cernvm/litescript/pkg/compiler"
	"github.com/cernvm/litescript/pkg/config"
)

var errInvalidFlag = errors.New("invalid flag value")

// ConfigArgs are flags that override configuration file fields.
type ConfigArgs struct {
	BaseDir      string
	UnknownVerbs string
	Subdirs      string
	ArchiveTool  string
	Compression  string
	ArchiveArgs  string
	ExpandBraces bool
}

func (ca *ConfigArgs) AddFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&ca.BaseDir, "base-dir", "",
		fmt.Sprintf("Host directory that copied paths are relative to (default %q)", archive.DefaultBaseDir))
	flags.StringVar(&ca.UnknownVerbs, "unknown-verbs", "",
		"Handling of unrecognized verbs, one of: [error ignore]")
	flags.StringVar(&ca.Subdirs, "subdirs", "",
		"Emission of writable subdirectory lists, one of: [loop unroll]")
	flags.BoolVar(&ca.ExpandBraces, "expand-braces", false, "Expand a{b,c} in directive arguments")
	flags.StringVar(&ca.ArchiveTool, "archive-tool", "", "tar-compatible archive executable")
	flags.StringVar(&ca.Compression, "compression", "",
		"Archive compression, one of: [bzip2 gzip xz]")
	flags.StringVar(&ca.ArchiveArgs, "archive-args", "", "Extra archive tool arguments, shell-quoted")

	must(cmd.RegisterFlagCompletionFunc("unknown-verbs", cobra.FixedCompletions(
		[]string{string(compiler.UnknownVerbError), string(compiler.UnknownVerbIgnore)},
		cobra.ShellCompDirectiveNoFileComp,
	)))
	must(cmd.RegisterFlagCompletionFunc("subdirs", cobra.FixedCompletions(
		[]string{string(compiler.SubdirLoop), string(compiler.SubdirUnroll)},
		cobra.ShellCompDirectiveNoFileComp,
	)))
	must(cmd.RegisterFlagCompletionFunc("compression", cobra.FixedCompletions(
		[]string{string(archive.CompressionBzip2), string(archive.CompressionGzip), string(archive.CompressionXZ)},
		cobra.ShellCompDirectiveNoFileComp,
	)))
	must(cmd.MarkFlagDirname("base-dir"))
}

// Apply copies every changed flag into cfg.
func (ca *ConfigArgs) Apply(flags *pflag.FlagSet, cfg *configs.Config) error {
	cfg.EnsureDefaults()

	if flags.Changed("base-dir") {
		cfg.Archive.BaseDir = ca.BaseDir
	}
	if flags.Changed("unknown-verbs") {
		cfg.Compiler.UnknownVerbs = compiler.UnknownVerbPolicy(ca.UnknownVerbs)
	}
	if flags.Changed("subdirs") {
		cfg.Compiler.Subdirs = compiler.SubdirStyle(ca.Subdirs)
	}
	if flags.Changed("expand-braces") {
		cfg.Compiler.ExpandBraces = ca.ExpandBraces
	}
	if flags.Changed("archive-tool") {
		cfg.Archive.Tool = ca.ArchiveTool
	}
	if flags.Changed("compression") {
		cfg.Archive.Compression = archive.Compression(ca.Compression)
	}
	if flags.Changed("archive-args") {
		args, err := shellwords.Parse(ca.ArchiveArgs)
		if err != nil {
			return fmt.Errorf("%w: --archive-args: %w", errInvalidFlag, err)
		}

		cfg.Archive.Args = args
	}

	return nil
}

// loadConfig loads the configuration for rulesetPath and applies flag
// overrides on top of it.
func loadConfig(cmd *cobra.Command, ra *RootArgs, ca *ConfigArgs, rulesetPath string) (*configs.Config, error) {
	cfg, err := config.Load(ra.ConfigPath, rulesetPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	err = ca.Apply(cmd.Flags(), cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidFlag, err)
	}

	return cfg, nil
}
