// Package cli implements the convfs command line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/absfs/convfs"
)

// Mapping used when no configuration file is given.
const (
	DefaultTarget = "package.json"
	DefaultSource = "package.yaml"
)

// ErrNoOverlay is returned by setup failures that leave no filesystem to
// work on.
var ErrNoOverlay = errors.New("overlay not initialized")

type app struct {
	fsys   afero.Fs
	config string
	debug  bool
	ofs    *convfs.OverlayFs
	logger *slog.Logger
}

// NewRootCommand returns the convfs command operating on fsys.
func NewRootCommand(fsys afero.Fs) *cobra.Command {
	a := &app{fsys: fsys}

	root := &cobra.Command{
		Use:   "convfs",
		Short: "Inspect configuration files derived from alternate-format sources",
		Long: `convfs shows configuration files the way programs reading them through
the convfs overlay see them.

Without --config, package.json is derived from package.yaml in the
working directory. A configuration file lists other mappings:

  mappings:
    - target: package.json
      source: package.yaml
      format: yaml

An existing source always wins over an existing target file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.config, "config", "c", "", "mapping configuration file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log overlay decisions to stderr")

	root.AddCommand(
		a.statCommand(),
		a.catCommand(),
		a.mappingsCommand(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.logger = newLogger(cmd.ErrOrStderr(), a.debug)

	opts := []convfs.Option{
		convfs.WithPathNormalizer(convfs.AbsPath),
		convfs.WithLogger(a.logger),
	}

	if a.config == "" {
		opts = append(opts, convfs.WithMapping(DefaultTarget, DefaultSource))
	} else {
		cfg, err := convfs.LoadConfigFile(a.fsys, convfs.AbsPath(a.config))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfgOpts, err := cfg.Options()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts = append(opts, cfgOpts...)
	}

	ofs, err := convfs.New(a.fsys, opts...)
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	a.ofs = ofs

	return nil
}

func (a *app) statCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH...",
		Short: "Print the size of files and where their content comes from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.ofs == nil {
				return ErrNoOverlay
			}

			out := cmd.OutOrStdout()
			for _, name := range args {
				ov, err := a.ofs.Resolve(name)
				if err != nil {
					return fmt.Errorf("stat %s: %w", name, err)
				}

				if ov != nil {
					fmt.Fprintf(out, "%s: %d bytes (derived from %s)\n", name, ov.Content.Len(), ov.Mapping.Source)
					continue
				}

				info, err := a.ofs.Stat(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d bytes\n", name, info.Size())
			}
			return nil
		},
	}
}

func (a *app) catCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH...",
		Short: "Print the content of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.ofs == nil {
				return ErrNoOverlay
			}

			out := cmd.OutOrStdout()
			for _, name := range args {
				s := a.ofs.CreateReadStream(cmd.Context(), name)
				for chunk := range s.Chunks() {
					if _, err := out.Write(chunk); err != nil {
						s.Close()
						return fmt.Errorf("write %s: %w", name, err)
					}
				}
				if err := s.Err(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) mappingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mappings",
		Short: "List the registered mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.ofs == nil {
				return ErrNoOverlay
			}

			out := cmd.OutOrStdout()
			for _, m := range a.ofs.Mappings() {
				fmt.Fprintf(out, "%s <- %s\n", m.Target, m.Source)
			}
			return nil
		},
	}
}
