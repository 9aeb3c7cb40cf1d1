package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"dirsnap/internal/app"
	"dirsnap/internal/config"
	"dirsnap/internal/database"
	"dirsnap/internal/dirsnap"
	"dirsnap/internal/fs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation names the CLI command being run (e.g. "archive", "extract").
func newApp(cmd *cobra.Command, operation string) (*app.App, *config.Config, error) {
	paths, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, cfg, nil
}

// stringFlag returns the flag value, or fallback when the flag was not given.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}

// requireFlag is stringFlag for a value that must end up non-empty.
func requireFlag(cmd *cobra.Command, name, fallback string) (string, error) {
	v := stringFlag(cmd, name, fallback)
	if v == "" {
		return "", fmt.Errorf("--%s is required (or set it under [defaults] in the config file)", name)
	}
	return v, nil
}

var rootCmd = &cobra.Command{
	Use:          "dirsnap",
	Short:        "Snapshot a directory into timestamped zip archives",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and the local journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(paths.BaseDir)
		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		db, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		defer db.Close()
		if err := db.MigrateUp(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Fprintf(out, "Base Dir: %s\n", cfg.BaseDir)
		fmt.Fprintf(out, "Journal:  %s\n", db.Path())
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", paths.ConfigPath)
		fmt.Fprintf(out, "Base Dir:     %s\n", cfg.BaseDir)
		fmt.Fprintf(out, "Log Dir:      %s\n", cfg.LogDir)
		fmt.Fprintf(out, "Database:     %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		if cfg.Staging.Dir != "" {
			fmt.Fprintf(out, "Staging Dir:  %s\n", cfg.Staging.Dir)
		}
		fmt.Fprintf(out, "Source:       %s\n", cfg.Defaults.Source)
		fmt.Fprintf(out, "Destination:  %s\n", cfg.Defaults.Destination)
		fmt.Fprintf(out, "Ignore File:  %s\n", cfg.Defaults.IgnoreFile)

		fmt.Fprintf(out, "\nEnvironment defaults:\n")
		env := paths.Map()
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-12s %s\n", k, env[k])
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Write a new snapshot of the source directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd, "archive")
		if err != nil {
			return err
		}
		defer a.Close()

		source, err := requireFlag(cmd, "source", cfg.Defaults.Source)
		if err != nil {
			return err
		}
		destination, err := requireFlag(cmd, "destination", cfg.Defaults.Destination)
		if err != nil {
			return err
		}
		comment, _ := cmd.Flags().GetString("comment")

		p := newProgress(cmd.ErrOrStderr())
		snap, err := a.Archive(app.ArchiveRequest{
			Source:      source,
			Destination: destination,
			IgnoreFile:  stringFlag(cmd, "ignore-file", cfg.Defaults.IgnoreFile),
			Comment:     comment,
			OnScan:      p.scan,
			OnArchive:   p.archive,
		})
		p.finish()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Archived %d files and %d empty directories (%s)\n",
			len(snap.ArchivedFiles), len(snap.EmptyDirectories), humanize.Bytes(uint64(snap.ZipSize)))
		fmt.Fprintf(out, "  %s\n  %s\n", snap.ZipPath, snap.MetadataPath)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the snapshots in a destination, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd, "list")
		if err != nil {
			return err
		}
		defer a.Close()

		destination, err := requireFlag(cmd, "destination", cfg.Defaults.Destination)
		if err != nil {
			return err
		}

		snaps, err := a.ListSnapshots(destination)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
			return nil
		}
		printSnapshots(cmd, snaps)
		return nil
	},
}

// extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Replace the source directory with a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd, "extract")
		if err != nil {
			return err
		}
		defer a.Close()

		source, err := requireFlag(cmd, "source", cfg.Defaults.Source)
		if err != nil {
			return err
		}
		destination, err := requireFlag(cmd, "destination", cfg.Defaults.Destination)
		if err != nil {
			return err
		}

		in := bufio.NewReader(cmd.InOrStdin())
		snap, err := chooseSnapshot(cmd, in, a, destination)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		abs, err := fs.ResolveDir(source)
		if err != nil {
			return fmt.Errorf("resolving source: %w", err)
		}
		fmt.Fprintf(out, "\nEvery file in %s will be replaced by %s.\n", abs, snap.ZipFilename)
		fmt.Fprintf(out, "If dirsnap is interrupted during the final swap, the previous contents are left at %s.\n",
			filepath.Join(filepath.Dir(abs), "."+filepath.Base(abs)+".old-*"))
		fmt.Fprintf(out, "Type %q to continue: ", dirsnap.ConfirmationToken)
		confirmation, err := readLine(in)
		if err != nil {
			return err
		}

		if err := a.Extract(source, destination, snap, confirmation); err != nil {
			return err
		}
		fmt.Fprintf(out, "Restored %d files and %d empty directories into %s\n",
			len(snap.ArchivedFiles), len(snap.EmptyDirectories), abs)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a snapshot's integrity without restoring it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cfg, err := newApp(cmd, "verify")
		if err != nil {
			return err
		}
		defer a.Close()

		destination, err := requireFlag(cmd, "destination", cfg.Defaults.Destination)
		if err != nil {
			return err
		}

		snap, err := chooseSnapshot(cmd, bufio.NewReader(cmd.InOrStdin()), a, destination)
		if err != nil {
			return err
		}
		if err := a.VerifySnapshot(destination, snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d files, %d empty directories)\n",
			snap.ZipFilename, len(snap.ArchivedFiles), len(snap.EmptyDirectories))
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, _, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(ops) == 0 {
			fmt.Fprintln(out, "No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Fprintf(out, "#%d  %-8s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// chooseSnapshot lists the destination and picks one snapshot, by --snapshot
// when given and by prompting otherwise.
func chooseSnapshot(cmd *cobra.Command, in *bufio.Reader, a *app.App, destination string) (*dirsnap.Snapshot, error) {
	snaps, err := a.ListSnapshots(destination)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshots found in %s", destination)
	}

	if cmd.Flags().Changed("snapshot") {
		n, _ := cmd.Flags().GetString("snapshot")
		return dirsnap.Select(snaps, n)
	}

	printSnapshots(cmd, snaps)
	fmt.Fprintf(cmd.OutOrStdout(), "\nSnapshot number [1-%d]: ", len(snaps))
	input, err := readLine(in)
	if err != nil {
		return nil, err
	}
	return dirsnap.Select(snaps, input)
}

func printSnapshots(cmd *cobra.Command, snaps []*dirsnap.Snapshot) {
	out := cmd.OutOrStdout()
	for i, s := range snaps {
		fmt.Fprintf(out, "%3d  %s  %-14s  %9s  %5d files  %s\n",
			i+1,
			s.Created.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(s.Created),
			humanize.Bytes(uint64(s.ZipSize)),
			len(s.ArchivedFiles),
			s.Comment,
		)
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringP("source", "s", "", "Directory to archive")
	archiveCmd.Flags().StringP("destination", "d", "", "Directory that holds the snapshots")
	archiveCmd.Flags().StringP("ignore-file", "i", "", "File of ignore patterns, one regular expression per line")
	archiveCmd.Flags().StringP("comment", "c", "", "Snapshot comment, also used in the filename")
	_ = archiveCmd.MarkFlagRequired("comment")

	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("destination", "d", "", "Directory that holds the snapshots")

	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("source", "s", "", "Directory to replace")
	extractCmd.Flags().StringP("destination", "d", "", "Directory that holds the snapshots")
	extractCmd.Flags().StringP("snapshot", "n", "", "Snapshot number as shown by list")

	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringP("destination", "d", "", "Directory that holds the snapshots")
	verifyCmd.Flags().StringP("snapshot", "n", "", "Snapshot number as shown by list")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
