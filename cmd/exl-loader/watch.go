package main

import (
	"time"

	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWatchCmd(v *viper.Viper) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Load the input directory, then keep loading new or changed documents",
		Long: `watch runs a normal batch load and then watches the input directory.
Documents that are created or rewritten are loaded once the directory has been
quiet for the debounce period. SIGINT or SIGTERM stops the watcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, v)
		},
	}

	watchCmd.Flags().Duration("debounce", time.Second, "Quiet period before loading changed documents")
	watchCmd.Flags().Bool("skip-initial", false, "Do not load existing documents before watching")
	v.BindPFlag("watch.debounce", watchCmd.Flags().Lookup("debounce"))

	return watchCmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	s, err := newSession(cmd, v)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	stop := notifyShutdown(s.logger, s.coordinator.Cancel)
	defer stop()

	if skip, _ := cmd.Flags().GetBool("skip-initial"); !skip {
		summary, err := s.batch(cmd)
		if err != nil {
			return err
		}
		if summary.Interrupted {
			return errInterrupted
		}
	}

	res, err := s.coordinator.Watch(cmd.Context())
	if err != nil {
		return err
	}
	ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr()).WatchResult(res)
	return nil
}
