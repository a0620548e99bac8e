// Command uvcat streams a file to stdout through the event loop, exercising
// File's emulated continuous read. Output goes straight to os.Stdout; no Tty
// handle is opened.
package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/uvcc-go/uvcc"
	"github.com/uvcc-go/uvcc/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uvcat <path>",
		Short: "stream a file to stdout through the uvcc event loop",
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}
	cmd.Flags().Bool("verbose", false, "enable debug logging")
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	return cmd
}

func runCat(cmd *cobra.Command, args []string) error {
	logConfig := logging.DefaultConfig()
	if viper.GetBool("verbose") {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))
	logger := logging.Default()

	loop, err := uvcc.NewLoop()
	if err != nil {
		return fmt.Errorf("creating loop: %w", err)
	}
	defer loop.Close()

	f, err := uvcc.OpenFile(loop, args[0], unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}

	var readErr error
	err = f.ReadStart(0,
		func(suggested int) *uvcc.Buffer { return uvcc.NewBuffer(suggested) },
		func(file *uvcc.File, buf *uvcc.Buffer, nread int, status uvcc.ErrorKind, offset int64) {
			switch status {
			case uvcc.KindOk:
				os.Stdout.Write(buf.Bytes())
			case uvcc.KindEndOfStream:
				file.ReadStop()
				loop.Stop()
			default:
				readErr = fmt.Errorf("read failed at offset %d: %s", offset, status)
				logger.Error("read failed", "offset", offset, "status", status)
				file.ReadStop()
				loop.Stop()
			}
		})
	if err != nil {
		return err
	}

	if err := loop.Run(uvcc.RunDefault); err != nil {
		return fmt.Errorf("loop run: %w", err)
	}
	f.Close(nil)
	return readErr
}
