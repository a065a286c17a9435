package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jscyril/tplay/internal/stats"
	"github.com/jscyril/tplay/internal/ui/components"
)

func newStatsCmd(fs afero.Fs) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the most played tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, fs)
			if err != nil {
				return err
			}
			store, err := stats.Open(cmd.Context(), fs, cfg.StatsBackend, cfg.DataDir, cfg.StatsDSN)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("stats are disabled (stats_backend %q)", cfg.StatsBackend)
			}
			defer store.Close()

			entries, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No plays recorded yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), statsTable(stats.TopPlayed(entries, top)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "number of tracks to list")
	return cmd
}

func statsTable(entries []stats.Entry) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("#", "Track", "Played", "Skipped", "Skip rate", "Avg. play", "Last played")

	for i, e := range entries {
		t.Row(
			strconv.Itoa(i+1),
			e.Name,
			strconv.FormatUint(uint64(e.TimesPlayed), 10),
			strconv.FormatUint(uint64(e.TimesSkipped), 10),
			fmt.Sprintf("%.0f%%", e.SkipRate()*100),
			components.FormatDuration(e.AveragePlayTime()),
			e.LastPlayed.Format("2006-01-02 15:04"),
		)
	}
	return t.Render()
}
