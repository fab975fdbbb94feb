// voxring-relay runs the room relay daemon.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voxring/voxring/config"
	"github.com/voxring/voxring/relay"
)

func main() {
	var (
		host    string
		port    int
		verbose bool
	)

	root := &cobra.Command{
		Use:   "voxring-relay",
		Short: "Encrypted small-group AV relay",
		Long: `voxring-relay accepts client connections, assigns participants to
rooms of up to four members, and forwards their encrypted media and chat
without ever decoding it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			cfg, err := config.Load(config.Options{Host: host, Port: port})
			if err != nil {
				return err
			}

			srv := relay.NewServer()
			return srv.ListenAndServe(cfg.Addr())
		},
	}

	root.Flags().StringVar(&host, "host", "", "listen host (default "+config.DefaultHost+")")
	root.Flags().IntVar(&port, "port", 0, "listen port")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("relay exited")
		os.Exit(1)
	}
}
