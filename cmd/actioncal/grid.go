package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/action-calendar/calendar"
	"github.com/warp/action-calendar/factory"
)

func newGridCmd(flags *globalFlags) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print a month grid",
		Long: `Print the 5 or 6 week grid of a month using the configured week start.
Days outside the month are shown in brackets and days with actions are
marked with '*'. --month is 1..12; both flags default to the current month.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.load(cmd)
			if err != nil {
				return err
			}
			sys, err := factory.Build(cfg, factory.Options{Logger: log})
			if err != nil {
				return err
			}
			defer sys.Close()

			today := calendar.DateKeyOf(sys.Engine.Now().In(sys.Engine.Location))
			if year == 0 {
				year = today.Year()
			}
			if month == 0 {
				month = int(today.Month())
			}

			grid, err := sys.Engine.BuildGrid(year, month-1)
			if err != nil {
				return err
			}
			b, err := sys.Engine.Load(cmd.Context())
			if err != nil {
				return err
			}
			busy := make(map[calendar.DateKey]bool, len(b))
			for date, records := range b {
				busy[date] = len(records) > 0
			}

			printGrid(cmd.OutOrStdout(), year, time.Month(month), sys.Engine.WeekStart, grid, busy)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1..12 (default: current)")
	return cmd
}

func printGrid(w io.Writer, year int, month time.Month, weekStart time.Weekday, grid calendar.MonthGrid, busy map[calendar.DateKey]bool) {
	fmt.Fprintf(w, "%s %d\n", month, year)
	for i := 0; i < 7; i++ {
		day := (weekStart + time.Weekday(i)) % 7
		fmt.Fprintf(w, " %-4s", day.String()[:2])
	}
	fmt.Fprintln(w)

	for _, week := range grid.Weeks() {
		for _, c := range week {
			mark := " "
			if busy[c.Date] {
				mark = "*"
			}
			if c.InCurrentMonth {
				fmt.Fprintf(w, " %2d%s ", c.Date.Day(), mark)
			} else {
				fmt.Fprintf(w, "[%2d]%s", c.Date.Day(), mark)
			}
		}
		fmt.Fprintln(w)
	}
}
