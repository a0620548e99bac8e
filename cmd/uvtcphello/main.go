// Command uvtcphello runs a tiny TCP greeter: the serve subcommand listens
// and writes a greeting to each connection, the dial subcommand connects
// and prints whatever it receives. It exercises Tcp's accept loop,
// streamCore's write path, and backpressure-aware ReadStart.
package main

import (
	"fmt"
	"os"

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
	root := &cobra.Command{Use: "uvtcphello"}
	root.PersistentFlags().String("host", "127.0.0.1", "address to bind or dial")
	root.PersistentFlags().Int("port", 54321, "port to bind or dial")
	_ = viper.BindPFlag("host", root.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("port", root.PersistentFlags().Lookup("port"))

	serve := &cobra.Command{
		Use:   "serve",
		Short: "listen and greet every connection",
		RunE:  runServe,
	}
	dial := &cobra.Command{
		Use:   "dial",
		Short: "connect once and print the greeting",
		RunE:  runDial,
	}
	root.AddCommand(serve, dial)
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.Default()
	loop, err := uvcc.NewLoop()
	if err != nil {
		return err
	}
	defer loop.Close()

	listener, err := uvcc.NewTcp(loop, uvcc.AFInet4)
	if err != nil {
		return err
	}
	host, port := viper.GetString("host"), uint16(viper.GetInt("port"))
	if err := listener.Bind(host, port); err != nil {
		return err
	}

	err = listener.Listen(uvcc.DefaultBacklog, func(s *uvcc.Tcp, status uvcc.ErrorKind) {
		if status != uvcc.KindOk {
			logger.Error("accept failed", "status", status)
			return
		}
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			logger.Error("accept failed", "error", acceptErr)
			return
		}
		greeting := uvcc.WrapBytes([]byte("hello from uvtcphello, nice to meet you!\n"))
		conn.Write(greeting, func(r *uvcc.Request, status uvcc.ErrorKind, _ any) {
			conn.Shutdown(func(*uvcc.Request, uvcc.ErrorKind, any) {
				conn.Close(nil)
			})
		})
	})
	if err != nil {
		return err
	}
	logger.Info("listening", "host", host, "port", port)
	return loop.Run(uvcc.RunDefault)
}

func runDial(cmd *cobra.Command, args []string) error {
	loop, err := uvcc.NewLoop()
	if err != nil {
		return err
	}
	defer loop.Close()

	conn, err := uvcc.NewTcp(loop, uvcc.AFInet4)
	if err != nil {
		return err
	}
	host, port := viper.GetString("host"), uint16(viper.GetInt("port"))

	var dialErr error
	_, err = conn.Connect(host, port, func(r *uvcc.Request, status uvcc.ErrorKind, _ any) {
		if status != uvcc.KindOk {
			dialErr = fmt.Errorf("connect failed: %s", status)
			loop.Stop()
			return
		}
		_ = conn.ReadStart(
			func(suggested int) *uvcc.Buffer { return uvcc.NewBuffer(suggested) },
			func(s *uvcc.Tcp, buf *uvcc.Buffer, nread int, status uvcc.ErrorKind) {
				switch status {
				case uvcc.KindOk:
					os.Stdout.Write(buf.Bytes())
				case uvcc.KindEndOfStream:
					conn.Close(nil)
					loop.Stop()
				default:
					dialErr = fmt.Errorf("read failed: %s", status)
					loop.Stop()
				}
			})
	})
	if err != nil {
		return err
	}
	if err := loop.Run(uvcc.RunDefault); err != nil {
		return err
	}
	return dialErr
}
