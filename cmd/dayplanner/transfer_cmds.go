package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/username/day-planner/internal/config"
	"github.com/username/day-planner/internal/daemon"
	"github.com/username/day-planner/internal/holidays"
	"github.com/username/day-planner/internal/store"
	"github.com/username/day-planner/internal/transfer"
	"github.com/username/day-planner/pkg/dateutil"
	"go.uber.org/zap"
)

func exportCmd() *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the owner's planner as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.service.Export(cmd.Context(), a.owner)
			if err != nil {
				return err
			}

			var w io.Writer = out
			if output != "" && output != "-" {
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer file.Close()
				w = file
			}

			if err := transfer.Encode(w, doc, f); err != nil {
				return err
			}

			logger.Info("Planner exported",
				zap.String("owner", a.owner),
				zap.String("format", string(f)),
				zap.String("output", output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "O", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from file extension, else json)")
	return cmd
}

func importCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the owner's planner with an exported document",
		Long:  "Validates the whole document first; on any problem nothing is written. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			var r io.Reader = os.Stdin
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer file.Close()
				r = file
			}

			doc, err := transfer.Decode(r, f)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.service.Import(cmd.Context(), a.owner, doc)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{
					"owner":      state.Owner,
					"day_types":  len(state.DayTypes),
					"categories": len(state.Categories),
					"overrides":  len(state.Overrides),
				})
			}
			viewPrintf("✅ Imported into %s: %d day type(s), %d categor(ies), %d override(s)\n",
				state.Owner, len(state.DayTypes), len(state.Categories), len(state.Overrides))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from file extension, else json)")
	return cmd
}

func holidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Inspect and load public holidays",
	}

	var region string
	listCmd := &cobra.Command{
		Use:   "list [yyyy]",
		Short: "List the public holidays of a year (default: current year)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := dateutil.Today().Year()
			if len(args) == 1 {
				var err error
				year, err = strconv.Atoi(args[0])
				if err != nil || year < 1 {
					return fmt.Errorf("invalid year %q", args[0])
				}
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			r := region
			if r == "" {
				state, err := a.service.State(cmd.Context(), a.owner)
				if err != nil {
					return err
				}
				r = state.Settings.Region
			}
			r = holidays.NormalizeRegion(r)
			if r == "" {
				return fmt.Errorf("no region: pass --region or set one with 'settings --region'")
			}

			list, err := a.holidays.Range(r,
				dateutil.Date(year, 1, 1),
				dateutil.Date(year, 12, 31))
			if err != nil {
				return fmt.Errorf("failed to list holidays: %w", err)
			}
			if jsonOutput {
				return printJSON(list)
			}

			viewPrintf("\n🎉 Public holidays %s %d\n", r, year)
			viewPrintln("═══════════════════════════════════════════════════════")
			for _, h := range list {
				viewPrintf("  %s %s  %s\n", dateutil.Key(h.Date), h.Date.Weekday().String()[:3], h.Name)
			}
			viewPrintf("\n  Total: %d\n", len(list))
			return nil
		},
	}
	listCmd.Flags().StringVar(&region, "region", "", "Region code (default: owner's region)")

	loadCmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a holiday file into the public_holidays table",
		Long:  "Each line is 'REGION YYYY-MM-DD Name'. Requires sqlite or postgres storage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := holidays.LoadFile(args[0], logger)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			gs, ok := a.store.(*store.GormStore)
			if !ok {
				return fmt.Errorf("holidays load requires sqlite or postgres storage, got %q", a.cfg.Storage.Driver)
			}

			n, err := gs.ImportHolidays(cmd.Context(), table.All())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"file": args[0], "holidays": n})
			}
			viewPrintf("✅ Loaded %d holiday(s) from %s\n", n, args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, loadCmd)
	return cmd
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Refresh holidays and year statistics every day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			hour, minute := a.cfg.Daemon.GetRefreshTime()
			d := daemon.NewScheduledDaemon(a.service, a.holidays, hour, minute, a.cfg.Daemon.GetLocation(), logger)
			if gs, ok := a.store.(*store.GormStore); ok && a.cfg.Holidays.Source != config.SourceDatabase {
				d.SetHolidaySink(gs, a.service)
				logger.Info("Upcoming holidays will be stored in the database",
					zap.String("source", a.cfg.Holidays.Source))
			}
			return d.Start()
		},
	}
}

// resolveFormat picks the explicit format, else the one implied by path
func resolveFormat(explicit, path string) (transfer.Format, error) {
	if explicit != "" {
		return transfer.ParseFormat(explicit)
	}
	if path == "" || path == "-" {
		return transfer.FormatJSON, nil
	}
	return transfer.FormatFromPath(path), nil
}
