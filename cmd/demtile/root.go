package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/terrainkit/go-demtile"
)

// An app holds the state shared by all sub-commands.
type app struct {
	configFile string
	config     Config
	logger     *slog.Logger
	closeLog   func() error
}

func (a *app) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "demtile",
		Short: "Load and query per-degree elevation tiles",
		Long: `demtile loads one-degree elevation tiles stored as raw grids of 32-bit
floats, normalizes their no-data values, and answers elevation queries.

Configuration is read from a YAML file, then DEMTILE_* environment variables,
then command-line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "path to the YAML config file")
	flags.StringP("dir", "d", "", "directory containing the tiles")
	flags.StringP("format", "f", "IECA", "file format name")
	flags.Int("utm-zone", 0, "UTM zone of the source data")
	flags.Int("cache-size", 8, "number of tiles to keep in memory")
	flags.Bool("neighbor-edge-loading", false, "copy overlapping edges from neighboring tiles")
	flags.Bool("spike-filter", true, "replace isolated spikes with no-data")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "log to a rotated file instead of stderr")

	rootCmd.AddCommand(
		a.newFilenameCmd(),
		a.newLoadCmd(),
		a.newElevationCmd(),
		a.newRenderCmd(),
		a.newServeCmd(),
	)

	return rootCmd
}

// execute runs the command line args and closes the log whether or not the
// command succeeded.
func (a *app) execute(args []string, stdout, stderr io.Writer) error {
	rootCmd := a.newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()
	if a.closeLog != nil {
		err = errors.Join(err, a.closeLog())
		a.closeLog = nil
	}
	return err
}

// init resolves the configuration and builds the logger.
func (a *app) init(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}
	if err := config.applyEnv(os.Getenv); err != nil {
		return err
	}
	config.applyFlags(cmd.Flags())
	a.config = config

	a.logger, a.closeLog, err = newLogger(a.config.Log, cmd.ErrOrStderr())
	return err
}

func (a *app) newLoader() (*demtile.TIF10Loader, error) {
	format, err := demtile.ParseFileFormat(a.config.Format)
	if err != nil {
		return nil, err
	}
	return demtile.NewTIF10Loader(format, a.config.UTMZone, demtile.WithLogger(a.logger)), nil
}

func (a *app) newTileCache() (*demtile.TileCache, error) {
	loader, err := a.newLoader()
	if err != nil {
		return nil, err
	}
	return demtile.NewTileCache(loader, a.config.Directory,
		demtile.WithCacheSize(a.config.CacheSize),
		demtile.WithCacheLogger(a.logger),
		demtile.WithNeighborEdgeLoading(a.config.NeighborEdgeLoading),
		demtile.WithSpikeFilter(a.config.SpikeFilter),
	)
}

func addLatLngFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "latitude in degrees (required)")
	cmd.Flags().Float64("lng", 0, "longitude in degrees (required)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
}

func latLngFlags(cmd *cobra.Command) (float64, float64) {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	return lat, lng
}
