package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/username/day-planner/internal/planner"
	"github.com/username/day-planner/internal/schedule"
	"github.com/username/day-planner/pkg/dateutil"
)

func overrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Assign day types to specific dates",
	}

	var period, note string

	setCmd := &cobra.Command{
		Use:   "set <date> <day-type>",
		Short: "Set the day type of a date or one half of it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateutil.ParseDate(args[0])
			if err != nil {
				return err
			}
			p, err := schedule.ParsePeriod(period)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.service.SetDateOverride(cmd.Context(), a.owner, date, p, args[1], note)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(o)
			}
			viewPrintf("✅ %s (%s) set to %s\n", dateutil.Key(o.Date), o.Period, args[1])
			return nil
		},
	}
	setCmd.Flags().StringVarP(&period, "period", "p", "full", "Part of the day: full, am or pm")
	setCmd.Flags().StringVar(&note, "note", "", "Free-form note")

	var clearPeriod string
	clearCmd := &cobra.Command{
		Use:   "clear <date>",
		Short: "Remove the override of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateutil.ParseDate(args[0])
			if err != nil {
				return err
			}
			p, err := schedule.ParsePeriod(clearPeriod)
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.service.ClearDateOverride(cmd.Context(), a.owner, date, p)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"date": dateutil.Key(date), "period": p, "removed": removed})
			}
			if !removed {
				viewPrintf("No %s override on %s\n", p, dateutil.Key(date))
				return nil
			}
			viewPrintf("✅ %s override on %s cleared\n", p, dateutil.Key(date))
			return nil
		},
	}
	clearCmd.Flags().StringVarP(&clearPeriod, "period", "p", "full", "Part of the day: full, am or pm")

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func weekdayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekday",
		Short: "Configure generic weekdays",
	}

	baseCmd := &cobra.Command{
		Use:   "base <weekday> <day-type>",
		Short: "Set the base day type of a weekday (drops custom blocks)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday, err := parseWeekday(args[0])
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			dt, err := a.service.SetWeekdayBaseType(cmd.Context(), a.owner, weekday, args[1])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(dt)
			}
			viewPrintf("✅ %s is now a %s\n", dateutil.WeekdayName(weekday), dt.Name)
			return nil
		},
	}

	customizeCmd := &cobra.Command{
		Use:   "customize <weekday>",
		Short: "Give a weekday its own copy of its template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday, err := parseWeekday(args[0])
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			blocks, err := a.service.CopyTemplateToWeekday(cmd.Context(), a.owner, weekday)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(blocks)
			}
			viewPrintf("✅ %s customized with %d block(s)\n", dateutil.WeekdayName(weekday), len(blocks))
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset <weekday>",
		Short: "Drop a weekday's custom blocks and inherit its template again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday, err := parseWeekday(args[0])
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.ResetWeekday(cmd.Context(), a.owner, weekday); err != nil {
				return err
			}
			viewPrintf("✅ %s follows its template\n", dateutil.WeekdayName(weekday))
			return nil
		},
	}

	cmd.AddCommand(baseCmd, customizeCmd, resetCmd)
	return cmd
}

func blockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Manage activity blocks",
	}

	var (
		dayType  string
		weekday  string
		category string
		color    string
	)

	addCmd := &cobra.Command{
		Use:   "add <name> <start HH:MM> <end HH:MM>",
		Short: "Add a block to a day type template or a customized weekday",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (dayType == "") == (weekday == "") {
				return fmt.Errorf("exactly one of --day-type and --weekday must be specified")
			}
			start, err := schedule.ParseMinute(args[1])
			if err != nil {
				return err
			}
			end, err := schedule.ParseMinute(args[2])
			if err != nil {
				return err
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			in := planner.BlockInput{Name: args[0], Start: start, End: end, Color: color}
			if category != "" {
				id, err := resolveCategoryID(cmd.Context(), a, category)
				if err != nil {
					return err
				}
				in.CategoryID = &id
			}

			var b schedule.Block
			if dayType != "" {
				b, err = a.service.AddTemplateBlock(cmd.Context(), a.owner, dayType, in)
			} else {
				wd, perr := parseWeekday(weekday)
				if perr != nil {
					return perr
				}
				b, err = a.service.AddWeekdayBlock(cmd.Context(), a.owner, wd, in)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(b)
			}
			viewPrintf("✅ Added %s %s-%s (id %s)\n", b.Name, b.Start, b.End, b.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&dayType, "day-type", "", "Day type whose template receives the block")
	addCmd.Flags().StringVar(&weekday, "weekday", "", "Customized weekday that receives the block")
	addCmd.Flags().StringVar(&category, "category", "", "Category name or id")
	addCmd.Flags().StringVar(&color, "color", "", "Color as #RRGGBB")

	var (
		newName, newStart, newEnd, newCategory, newColor string
		clearCategory                                    bool
	)
	updateCmd := &cobra.Command{
		Use:   "update <block-id>",
		Short: "Change a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var patch planner.BlockPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &newName
			}
			if flags.Changed("start") {
				m, err := schedule.ParseMinute(newStart)
				if err != nil {
					return err
				}
				patch.Start = &m
			}
			if flags.Changed("end") {
				m, err := schedule.ParseMinute(newEnd)
				if err != nil {
					return err
				}
				patch.End = &m
			}
			if flags.Changed("color") {
				patch.Color = &newColor
			}
			if flags.Changed("category") {
				id, err := resolveCategoryID(cmd.Context(), a, newCategory)
				if err != nil {
					return err
				}
				patch.CategoryID = &id
			}
			patch.ClearCategory = clearCategory

			b, err := a.service.UpdateBlock(cmd.Context(), a.owner, args[0], patch)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(b)
			}
			viewPrintf("✅ Updated %s %s-%s\n", b.Name, b.Start, b.End)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&newName, "name", "", "New name")
	updateCmd.Flags().StringVar(&newStart, "start", "", "New start HH:MM")
	updateCmd.Flags().StringVar(&newEnd, "end", "", "New end HH:MM")
	updateCmd.Flags().StringVar(&newCategory, "category", "", "New category name or id")
	updateCmd.Flags().BoolVar(&clearCategory, "no-category", false, "Detach the block from its category")
	updateCmd.Flags().StringVar(&newColor, "color", "", "New color as #RRGGBB")

	deleteCmd := &cobra.Command{
		Use:   "delete <block-id>",
		Short: "Delete a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.DeleteBlock(cmd.Context(), a.owner, args[0]); err != nil {
				return err
			}
			viewPrintf("✅ Block %s deleted\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(addCmd, updateCmd, deleteCmd)
	return cmd
}

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage activity categories",
	}

	var color string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.service.CreateCategory(cmd.Context(), a.owner, args[0], color)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(c)
			}
			viewPrintf("✅ Category %s created (id %s)\n", c.Name, c.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&color, "color", "", "Color as #RRGGBB")

	var newName, newColor string
	updateCmd := &cobra.Command{
		Use:   "update <category>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch planner.CategoryPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &newName
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &newColor
			}

			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.service.UpdateCategory(cmd.Context(), a.owner, args[0], patch)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(c)
			}
			viewPrintf("✅ Category %s updated\n", c.Name)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&newName, "name", "", "New name")
	updateCmd.Flags().StringVar(&newColor, "color", "", "New color as #RRGGBB")

	deleteCmd := &cobra.Command{
		Use:   "delete <category>",
		Short: "Delete a category; its blocks become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			detached, err := a.service.DeleteCategory(cmd.Context(), a.owner, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]interface{}{"category": args[0], "detached_blocks": detached})
			}
			viewPrintf("✅ Category %s deleted, %d block(s) detached\n", args[0], detached)
			return nil
		},
	}

	cmd.AddCommand(addCmd, updateCmd, deleteCmd)
	return cmd
}

func dayTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daytype",
		Short: "Manage day types",
	}

	var (
		key, kind, color string
		isDefault        bool
	)
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a day type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			dt, err := a.service.CreateDayType(cmd.Context(), a.owner, planner.DayTypeInput{
				Name:    args[0],
				Key:     key,
				Kind:    schedule.Kind(kind),
				Color:   color,
				Default: isDefault,
			})
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(dt)
			}
			viewPrintf("✅ Day type %s [%s] created (key %s)\n", dt.Name, dt.Kind, dt.Key)
			return nil
		},
	}
	addCmd.Flags().StringVar(&key, "key", "", "Stable key (default: derived from name)")
	addCmd.Flags().StringVar(&kind, "kind", string(schedule.WorkLike), "work or off")
	addCmd.Flags().StringVar(&color, "color", "", "Color as #RRGGBB")
	addCmd.Flags().BoolVar(&isDefault, "default", false, "Make it the default of its kind")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List day types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.service.State(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(state.DayTypes)
			}
			for _, dt := range state.DayTypes {
				def := ""
				if dt.Default {
					def = " (default)"
				}
				viewPrintf("  %-12s %-18s %s%s\n", dt.Key, dt.Name, dt.Kind, def)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func settingsCmd() *cobra.Command {
	var (
		region, view string
		weekStart    string
		onboarded    bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change owner settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initializeApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var patch planner.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("region") {
				patch.Region = &region
			}
			if flags.Changed("week-start") {
				wd, err := parseWeekday(weekStart)
				if err != nil {
					return err
				}
				patch.WeekStart = &wd
			}
			if flags.Changed("view") {
				patch.DefaultView = &view
			}
			if flags.Changed("onboarded") {
				patch.Onboarded = &onboarded
			}

			var settings schedule.Settings
			if patch == (planner.SettingsPatch{}) {
				state, err := a.service.State(cmd.Context(), a.owner)
				if err != nil {
					return err
				}
				settings = state.Settings
			} else {
				settings, err = a.service.UpdateSettings(cmd.Context(), a.owner, patch)
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				return printJSON(settings)
			}
			viewPrintf("  Owner:        %s\n", a.owner)
			viewPrintf("  Region:       %s\n", settings.Region)
			viewPrintf("  Week start:   %s\n", dateutil.WeekdayName(settings.WeekStart))
			viewPrintf("  Default view: %s\n", settings.DefaultView)
			viewPrintf("  Onboarded:    %t\n", settings.Onboarded)
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "Holiday region, e.g. DE-NW (empty disables holidays)")
	cmd.Flags().StringVar(&weekStart, "week-start", "", "First day of the week (0..6 or name)")
	cmd.Flags().StringVar(&view, "view", "", "Default view: day, week, month or year")
	cmd.Flags().BoolVar(&onboarded, "onboarded", false, "Mark onboarding as finished")

	return cmd
}

// resolveCategoryID maps a category name or id to its id
func resolveCategoryID(ctx context.Context, a *app, ref string) (string, error) {
	state, err := a.service.State(ctx, a.owner)
	if err != nil {
		return "", err
	}
	if c, ok := state.Category(ref); ok {
		return c.ID, nil
	}
	if c, ok := state.CategoryByName(ref); ok {
		return c.ID, nil
	}
	return "", &schedule.NotFoundError{Kind: "category", Key: ref}
}
