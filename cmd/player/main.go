package main

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jscyril/tplay/internal/config"
)

func main() {
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	root := &cobra.Command{
		Use:   "player [paths...]",
		Short: "Play local audio files from the terminal",
		Long: "Plays the given files and directories, or the configured music\n" +
			"directories when none are given.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fs)
			if err != nil {
				return err
			}
			noUI := lo.Must(cmd.Flags().GetBool("no-ui"))
			return run(cmd.Context(), fs, cfg, args, !noUI)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default "+config.GetConfigPath()+")")
	root.Flags().StringP("device", "d", "", "audio output: oto, speaker or null")
	root.Flags().Float64("volume", 1, "initial volume between 0 and 1")
	root.Flags().BoolP("loop", "l", false, "loop each track")
	root.Flags().Bool("no-ui", false, "play the queue without the terminal interface")

	root.AddCommand(newStatsCmd(fs))
	return root
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, fs afero.Fs) (*config.Config, error) {
	flags := cmd.Flags()

	cfg, err := config.Load(fs, lo.Must(flags.GetString("config")))
	if err != nil {
		return nil, err
	}

	if flags.Changed("device") {
		cfg.Device = lo.Must(flags.GetString("device"))
	}
	if flags.Changed("volume") {
		cfg.DefaultVolume = lo.Must(flags.GetFloat64("volume"))
	}
	if flags.Changed("loop") {
		cfg.DefaultLoop = lo.Must(flags.GetBool("loop"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
