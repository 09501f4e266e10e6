// Command asar is a utility for working with Electron .asar archives:
// listing, extracting, packing, and patching them from the command line.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/meigma/asar"
	"github.com/meigma/asar/internal/listing"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "asar",
		Short:         "Utility for working with Electron .asar archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(),
		newExtractCmd(),
		newExtractFileCmd(),
		newReplaceCmd(),
		newPackCmd(),
		newPatchCmd(),
	)
	return root
}

// logger builds the CLI logger, honoring the --verbose flag.
func logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newListCmd() *cobra.Command {
	var format string
	var long bool

	cmd := &cobra.Command{
		Use:     "list ARCHIVE",
		Aliases: []string{"ls"},
		Short:   "List the contents of an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// --long is a convenience alias for --format long.
			if long {
				format = "long"
			}
			if !slices.Contains(listing.Formats, format) {
				return fmt.Errorf("unknown format %q, valid formats: %v", format, listing.Formats)
			}

			a, err := asar.Open(args[0], asar.WithLogger(logger(cmd)))
			if err != nil {
				return err
			}
			defer a.Close()

			entries := listing.Collect(a)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(archive is empty)")
				return nil
			}
			out, err := listing.Render(format, entries)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "plain", "output format: plain, long, json, xml, yaml")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "shorthand for --format long (show file sizes)")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "extract ARCHIVE DESTINATION",
		Aliases: []string{"x"},
		Short:   "Extract the entire archive",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := asar.Open(args[0], asar.WithLogger(logger(cmd)))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Extract(args[1]); err != nil {
				if errors.Is(err, asar.ErrExist) {
					return fmt.Errorf("destination %q already exists, remove it first or choose a different path", args[1])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %q to %q\n", args[0], args[1])
			return nil
		},
	}
}

func newExtractFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "extract-file ARCHIVE FILE DESTINATION",
		Aliases: []string{"xf"},
		Short:   "Extract a single file from the archive",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := asar.Open(args[0], asar.WithLogger(logger(cmd)))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ExtractFile(args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %q to %q\n", args[1], args[2])
			return nil
		},
	}
}

func newReplaceCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "replace ARCHIVE FILE SOURCE",
		Aliases: []string{"r"},
		Short:   "Replace a file inside the archive",
		Long: "Replace FILE inside ARCHIVE with the contents of SOURCE.\n" +
			"By default the original archive is overwritten in place.\n" +
			"Use --output to write the patched archive to a new file.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, file, source := args[0], args[1], args[2]

			info, err := os.Stat(source)
			if err != nil || !info.Mode().IsRegular() {
				return fmt.Errorf("source file %q does not exist or is not a regular file", source)
			}

			a, err := asar.Open(archivePath, asar.WithLogger(logger(cmd)))
			if err != nil {
				return err
			}
			defer a.Close()

			var opts []asar.ReplaceOption
			target := archivePath
			if output != "" {
				opts = append(opts, asar.ReplaceWithOutput(output))
				target = output
			}
			if err := a.ReplaceFile(file, source, opts...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replaced %q in %q\n", file, target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the patched archive to this path instead of overwriting ARCHIVE")
	return cmd
}

func newPackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "pack SOURCE ARCHIVE",
		Aliases: []string{"p"},
		Short:   "Pack a directory into an .asar archive",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, dest := args[0], args[1]

			info, err := os.Stat(source)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("source %q is not a directory", source)
			}
			if _, err := os.Lstat(dest); err == nil && !force {
				return fmt.Errorf("%q already exists, use --force to overwrite", dest)
			}

			if err := asar.Pack(source, dest, asar.PackWithLogger(logger(cmd))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %q to %q\n", source, dest)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite ARCHIVE if it already exists")
	return cmd
}

func newPatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patch PLAN",
		Short: "Apply a YAML plan of replacements as one atomic batch",
		Long: "Apply an ordered list of file replacements described by a YAML plan:\n\n" +
			"    source: app.asar\n" +
			"    dest:   app-patched.asar\n" +
			"    files:\n" +
			"      - archive: src/index.js\n" +
			"        source:  ./new-index.js\n\n" +
			"The destination is written only if every replacement succeeds.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := asar.LoadPlan(args[0])
			if err != nil {
				return err
			}
			if err := plan.Apply(asar.ApplyWithLogger(logger(cmd))); err != nil {
				return err
			}
			dest := plan.Dest
			if dest == "" {
				dest = plan.Source
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d replacement(s) to %q\n", len(plan.Files), dest)
			return nil
		},
	}
}
