package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/terrainkit/go-demtile"
	"github.com/terrainkit/go-demtile/internal/render"
	"github.com/terrainkit/go-demtile/internal/server"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 120 * time.Second
)

var errNoData = errors.New("no data")

func (a *app) newFilenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filename",
		Short: "Print the tile filename for a cell",
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lng := latLngFlags(cmd)
			fmt.Fprintln(cmd.OutOrStdout(), demtile.TIF10Filename(lat, lng))
			return nil
		},
	}
	addLatLngFlags(cmd)
	return cmd
}

func (a *app) newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Decode one tile and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lng := latLngFlags(cmd)
			loader, err := a.newLoader()
			if err != nil {
				return err
			}
			tile, err := loader.LoadTile(a.config.Directory, lat, lng)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "File: %s\n", demtile.TIF10Filename(lat, lng))
			fmt.Fprintf(w, "Size: %dx%d\n", tile.Width(), tile.Height())
			fmt.Fprintf(w, "Max elevation: %.2f\n", tile.MaxElevation())
			fmt.Fprintf(w, "No-data samples: %d\n", tile.NoDataCount())
			return nil
		},
	}
	addLatLngFlags(cmd)
	return cmd
}

func (a *app) newElevationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elevation",
		Short: "Print the interpolated elevation at a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lng := latLngFlags(cmd)
			tileCache, err := a.newTileCache()
			if err != nil {
				return err
			}
			format, err := demtile.ParseFileFormat(a.config.Format)
			if err != nil {
				return err
			}
			elevations, err := demtile.NewElevationService(tileCache, format).Elevation(cmd.Context(), [][]float64{{lng, lat}})
			if err != nil {
				return err
			}
			if math.IsNaN(elevations[0]) {
				return fmt.Errorf("%.6f, %.6f: %w", lat, lng, errNoData)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", elevations[0])
			return nil
		},
	}
	addLatLngFlags(cmd)
	return cmd
}

func (a *app) newRenderCmd() *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a color preview of a tile",
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, lng := latLngFlags(cmd)
			tileCache, err := a.newTileCache()
			if err != nil {
				return err
			}
			minLat, minLng := math.Floor(lat), math.Floor(lng)
			filename := demtile.TIF10Filename(minLat, minLng)
			tile, err := tileCache.GetOrLoad(int(minLat), int(minLng))
			switch {
			case err != nil:
				return err
			case tile == nil:
				return fmt.Errorf("%s: %w", filename, errNoData)
			}
			if out == "" {
				out = strings.TrimSuffix(filename, ".tif") + ".png"
			}
			if err := render.Save(render.Render(tile, size), out); err != nil {
				return err
			}
			a.logger.Info("rendered tile", "path", out)
			return nil
		},
	}
	addLatLngFlags(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output image (default <tile>.png)")
	cmd.Flags().IntVar(&size, "size", 1024, "output width in pixels, 0 for full size")
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start an HTTP server with the endpoints:
  GET /elevation?lat=&lng=  interpolated elevation
  GET /tiles/{lat}/{lng}    tile summary
  GET /healthz              health check
  GET /metrics              prometheus metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tileCache, err := a.newTileCache()
			if err != nil {
				return err
			}
			format, err := demtile.ParseFileFormat(a.config.Format)
			if err != nil {
				return err
			}
			httpServer := &http.Server{
				Addr:         a.config.Listen,
				Handler:      server.New(demtile.NewElevationService(tileCache, format), tileCache, a.logger),
				ReadTimeout:  readTimeout,
				WriteTimeout: writeTimeout,
				IdleTimeout:  idleTimeout,
			}
			a.logger.Info("listening", "addr", a.config.Listen, "dir", a.config.Directory, "format", format.Name)
			return httpServer.ListenAndServe()
		},
	}
	cmd.Flags().String("listen", ":8080", "address to listen on")
	return cmd
}
