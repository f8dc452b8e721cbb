package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tidy-go/internal/app"
	"tidy-go/internal/config"
	"tidy-go/internal/database"
	"tidy-go/internal/encryption"
	"tidy-go/internal/tidy"
	"tidy-go/internal/vault"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readConfig reads the config file at the default location.
func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults.ConfigPath, nil
}

// withApp reads the config, creates a TidyApp for operation, runs fn and
// closes the app. Close errors are reported after fn's own error.
func withApp(cmd *cobra.Command, operation string, fn func(ctx context.Context, a *app.TidyApp) error) error {
	ctx := cmd.Context()
	cfg, _, err := readConfig()
	if err != nil {
		return err
	}
	a, err := app.NewTidyApp(ctx, cfg, operation)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	runErr := fn(ctx, a)
	if err := a.PersistenceError(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: history was not saved: %v\n", err)
	}
	closeErr := a.Close(ctx)
	return errors.Join(runErr, closeErr)
}

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "tidy",
	Short:        "Organize a directory with previewable, undoable plans",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		root, _ := cmd.Flags().GetString("root")
		if root == "" {
			root = defaults.Root
		}
		if root, err = filepath.Abs(root); err != nil {
			return fmt.Errorf("resolving root: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults.BaseDir, root)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := database.InitDatabase(cfg.Database, cfg.HostID); err != nil {
			return fmt.Errorf("initializing history database: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Host ID:  %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Printf("Root:     %s\n", root)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Host ID:      %s\n", cfg.HostID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Root:         %s\n", cfg.Root)
		fmt.Printf("Default Rule: %s\n", cfg.Rules.DefaultRule)
		fmt.Printf("Workspace:    %s\n", cfg.Workspace.Type)
		fmt.Printf("History Keep: %d\n", cfg.History.Keep)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:        %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair used to encrypt history snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}

		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Check that every configured vault is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		var errs []error
		for _, vc := range cfg.Vaults {
			v, err := vault.NewVaultFromConfig(cmd.Context(), vc)
			if err == nil {
				err = v.ValidateSetup(cmd.Context())
			}
			if err != nil {
				fmt.Printf("%-12s FAIL  %v\n", vc.Name, err)
				errs = append(errs, err)
				continue
			}
			fmt.Printf("%-12s OK\n", vc.Name)
		}
		return errors.Join(errs...)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Show what the organization root holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Scan", func(ctx context.Context, a *app.TidyApp) error {
			totals, err := a.Scan(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d file(s), %d folder(s), %s\n", a.Root(), totals.Files, totals.Folders, humanize.IBytes(uint64(totals.SizeBytes)))
			categories := make([]tidy.Category, 0, len(totals.PerCategory))
			for c := range totals.PerCategory {
				categories = append(categories, c)
			}
			sort.Slice(categories, func(i, j int) bool {
				return totals.PerCategory[categories[i]] > totals.PerCategory[categories[j]]
			})
			for _, c := range categories {
				fmt.Printf("  %-14s %d\n", c.FolderName(), totals.PerCategory[c])
			}
			return nil
		})
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview an organization plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Plan", func(ctx context.Context, a *app.TidyApp) error {
			rule, err := a.DefaultRule()
			if err != nil {
				return err
			}
			if name, _ := cmd.Flags().GetString("rule"); name != "" {
				if rule, err = tidy.ParseRule(name); err != nil {
					return err
				}
			}

			opts := a.RuleOptions()
			if g, _ := cmd.Flags().GetString("granularity"); g != "" {
				opts.DateGranularity = tidy.DateGranularity(strings.ToLower(g))
			}
			if cmd.Flags().Changed("small") {
				opts.SizeThresholds.SmallBytes, _ = cmd.Flags().GetInt64("small")
			}
			if cmd.Flags().Changed("medium") {
				opts.SizeThresholds.MediumBytes, _ = cmd.Flags().GetInt64("medium")
			}

			plan, err := a.Plan(ctx, rule, opts)
			if err != nil {
				return err
			}
			printPlan(plan)
			return nil
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask TEXT",
	Short: `Preview a plan for a request such as "organize by month"`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Ask", func(ctx context.Context, a *app.TidyApp) error {
			plan, ok, err := a.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("No rule recognized. Try: by type, by date, by month, by size, by extension, flatten.")
				return nil
			}
			printPlan(plan)
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the live plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Show", func(ctx context.Context, a *app.TidyApp) error {
			plan, err := a.LivePlan()
			if errors.Is(err, tidy.ErrNoLivePlan) {
				fmt.Println("No live plan. Run `tidy plan` first.")
				return nil
			}
			if err != nil {
				return err
			}
			printPlan(plan)
			return nil
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the live plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Apply", func(ctx context.Context, a *app.TidyApp) error {
			result, err := a.Apply(ctx)
			if result != nil {
				fmt.Printf("Applied %d, failed %d\n", result.Applied, result.Failed)
				for _, op := range result.Plan.Operations {
					if op.Status == tidy.OperationFailed {
						fmt.Printf("  FAIL %s: %s\n", op.SourcePath, op.Error)
					}
				}
				if result.Batch != nil {
					fmt.Printf("History batch: %s\n", result.Batch.ID)
				}
			}
			if err != nil {
				return err
			}
			if result.Partial() {
				return fmt.Errorf("%d operation(s) failed", result.Failed)
			}
			return nil
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the live plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "Cancel", func(ctx context.Context, a *app.TidyApp) error {
			if err := a.Cancel(); err != nil {
				return err
			}
			fmt.Println("Plan discarded.")
			return nil
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List applied plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, "History", func(ctx context.Context, a *app.TidyApp) error {
			batches := a.History(limit)
			if len(batches) == 0 {
				fmt.Println("No history.")
				return nil
			}
			for _, b := range batches {
				state := ""
				if b.IsUndone {
					state = "  [undone]"
				}
				fmt.Printf("%s  %s  %-28s  %d file(s)%s\n",
					b.ID,
					b.Timestamp.Local().Format("2006-01-02 15:04:05"),
					b.Name,
					b.EntryCount,
					state,
				)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show BATCH_ID",
	Short: "Show the moves recorded in a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "History", func(ctx context.Context, a *app.TidyApp) error {
			b, err := a.Batch(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s\n%s\n\n", b.ID, b.Name, b.Description)
			for _, e := range b.Entries {
				mark := " "
				if e.IsUndone {
					mark = "u"
				}
				fmt.Printf("%s %s -> %s  (%s)\n", mark, e.SourcePath, e.DestinationPath, humanize.IBytes(uint64(e.FileData.SizeBytes)))
			}
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "ClearHistory", func(ctx context.Context, a *app.TidyApp) error {
			if err := a.ClearHistory(ctx); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		})
	},
}

var historyPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local history with the copy in the first vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}

		var passphrase string
		if cfg.Encryption.Type == "age" {
			if passphrase, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}

		version, err := app.PullHistory(cmd.Context(), cfg, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("History restored at version %d\n", version)
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo [BATCH_ID]",
	Short: "Undo the most recent batch, or the given one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var batchID string
		if len(args) > 0 {
			batchID = args[0]
		}

		return withApp(cmd, "Undo", func(ctx context.Context, a *app.TidyApp) error {
			ok, err := a.Undo(ctx, batchID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Nothing to undo.")
				return nil
			}
			fmt.Println("Undone.")
			return nil
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the most recent batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")

		return withApp(cmd, "Prune", func(ctx context.Context, a *app.TidyApp) error {
			if err := a.Prune(ctx, keep); err != nil {
				return err
			}
			fmt.Printf("Kept the %d most recent batch(es).\n", keep)
			return nil
		})
	},
}

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View the log of commands that changed history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, "Operations", func(ctx context.Context, a *app.TidyApp) error {
			ops, err := a.Operations(ctx, limit)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				fmt.Println("No operations recorded.")
				return nil
			}
			for _, op := range ops {
				duration := ""
				if op.FinishedAt.Valid {
					duration = op.FinishedAt.Time.Sub(op.StartedAt).Truncate(time.Millisecond).String()
				}
				fmt.Printf("#%d  %-13s  %s  %-8s  %-10s  %s\n",
					op.ID,
					op.Operation,
					op.StartedAt.Local().Format("2006-01-02 15:04:05"),
					op.Status,
					duration,
					op.Parameters,
				)
			}
			return nil
		})
	},
}

// printPlan renders a plan grouped by destination folder.
func printPlan(plan *tidy.Plan) {
	fmt.Printf("Plan %s: %s [%s]\n%s\n", plan.ID, plan.Name, plan.Status, plan.Description)
	if len(plan.Operations) == 0 {
		fmt.Println("\nNothing to move.")
		return
	}

	stats := tidy.ComputeStats(plan)
	for i, g := range tidy.GroupByFolder(plan) {
		folder := g.Folder
		if folder == "" {
			folder = "."
		}
		stat := stats.PerFolder[i]
		fmt.Printf("\n%s/  (%d file(s), %s)\n", folder, stat.Files, humanize.IBytes(uint64(stat.SizeBytes)))
		for _, op := range g.Operations {
			mark := ""
			if op.Status != tidy.OperationPending {
				mark = "  [" + string(op.Status) + "]"
			}
			rel, err := filepath.Rel(plan.Root, op.SourcePath)
			if err != nil {
				rel = op.SourcePath
			}
			fmt.Printf("  %s%s\n", rel, mark)
		}
	}
	fmt.Printf("\nTotal: %d file(s), %s\n", stats.TotalFiles, humanize.IBytes(uint64(stats.TotalSizeBytes)))
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("root", "", "Directory to organize (default: $TIDY_ROOT or ~/Downloads)")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configVaultCmd)

	// history subcommands
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyPullCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of batches to show")

	// plan flags
	planCmd.Flags().StringP("rule", "r", "", "byType, byDate, bySize, byExtension, flatten or custom (default from config)")
	planCmd.Flags().String("granularity", "", "Date folders: year, year-month or year-month-day")
	planCmd.Flags().Int64("small", 0, "Files below this many bytes are Small")
	planCmd.Flags().Int64("medium", 0, "Files below this many bytes are Medium")

	pruneCmd.Flags().Int("keep", 0, "Number of batches to keep")
	_ = pruneCmd.MarkFlagRequired("keep")

	opsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(opsCmd)
}
