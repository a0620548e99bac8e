// Command uvtimer fires a repeating timer a fixed number of times, dividing
// the repeat interval by three (rounding down) after each fire, then stops.
// It exercises Timer.Start/SetRepeat/RepeatInterval and loop shutdown via
// Stop.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/uvcc-go/uvcc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uvtimer",
		Short: "fire a repeating timer whose interval is divided by three after each fire",
		RunE:  run,
	}
	cmd.Flags().Int("initial-ms", 1000, "initial repeat interval in milliseconds")
	cmd.Flags().Int("fires", 10, "number of fires before stopping")
	_ = viper.BindPFlag("initial-ms", cmd.Flags().Lookup("initial-ms"))
	_ = viper.BindPFlag("fires", cmd.Flags().Lookup("fires"))
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	loop, err := uvcc.NewLoop()
	if err != nil {
		return err
	}
	defer loop.Close()

	timer := uvcc.NewTimer(loop)
	maxFires := viper.GetInt("fires")
	fireCount := 0

	err = timer.Start(0, time.Duration(viper.GetInt("initial-ms"))*time.Millisecond,
		func(t *uvcc.Timer) {
			fireCount++
			fmt.Printf("fire %d: repeat=%s\n", fireCount, t.RepeatInterval())
			if fireCount >= maxFires {
				t.Stop()
				t.Close(nil)
				loop.Stop()
				return
			}
			t.SetRepeat(t.RepeatInterval() / 3)
		})
	if err != nil {
		return err
	}
	return loop.Run(uvcc.RunDefault)
}
