// Command boomlift serves the maintenance record API and imports, reports on
// and exports the record history.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ukydev/boomlift-maintenance/internal/config"
)

// flagKeys maps command-line flags onto configuration keys. A flag that is
// set overrides the environment.
var flagKeys = map[string]string{
	"log-level": config.KeyLogLevel,
	"timezone":  config.KeyTimezone,
	"port":      config.KeyPort,
	"mongo-db":  config.KeyMongoDB,
	"url":       config.KeyExcelURL,
}

type cli struct {
	envFiles []string
	v        *viper.Viper
	cfg      *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("boomlift failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return (&cli{}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boomlift",
		Short: "Boom lift maintenance records",
		Long: `boomlift keeps the maintenance history of a boom lift fleet.
Technicians submit hour-meter readings and maintenance work; every reading is
checked against the lift's last recorded hours before it is stored.
Configuration comes from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "env files to load (default .env)")
	root.PersistentFlags().String("log-level", "", "log level (default info)")
	root.PersistentFlags().String("timezone", "", "zone calendar days are counted in (default UTC)")
	root.PersistentFlags().String("mongo-db", "", "MongoDB database name (default boomlift)")

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.importCmd())
	root.AddCommand(c.reportCmd())
	root.AddCommand(c.exportCmd())
	root.AddCommand(c.userCmd())
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	if err := config.LoadEnvFiles(c.envFiles...); err != nil {
		return err
	}
	c.v = config.NewViper()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := c.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	cfg, err := config.FromViper(c.v)
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()
	c.cfg = cfg
	return nil
}
