// Package server serves elevations and tile summaries over HTTP.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terrainkit/go-demtile"
)

var errBadCoordinate = errors.New("bad coordinate")

type ElevationResponse struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Elevation *float64 `json:"elevation"`
}

type TileResponse struct {
	Filename     string            `json:"filename"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	MaxElevation demtile.Elevation `json:"maxElevation"`
	NoData       int               `json:"noData"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// A Server is an http.Handler for the elevation API.
type Server struct {
	elevationService *demtile.ElevationService
	tileCache        *demtile.TileCache
	logger           *slog.Logger
	router           chi.Router
}

func New(elevationService *demtile.ElevationService, tileCache *demtile.TileCache, logger *slog.Logger) *Server {
	s := &Server{
		elevationService: elevationService,
		tileCache:        tileCache,
		logger:           logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))
	r.Get("/healthz", s.handleHealthz)
	r.Get("/elevation", s.handleElevation)
	r.Get("/tiles/{lat}/{lng}", s.handleTile)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleElevation handles GET /elevation?lat=&lng=.
func (s *Server) handleElevation(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoordinate(r.URL.Query().Get("lat"), 90)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("lat: %w", err))
		return
	}
	lng, err := parseCoordinate(r.URL.Query().Get("lng"), 180)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("lng: %w", err))
		return
	}

	elevations, err := s.elevationService.Elevation(r.Context(), [][]float64{{lng, lat}})
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	response := ElevationResponse{
		Lat: lat,
		Lng: lng,
	}
	if elevation := elevations[0]; !math.IsNaN(elevation) {
		response.Elevation = &elevation
	}
	render.JSON(w, r, response)
}

// handleTile handles GET /tiles/{lat}/{lng}.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.Atoi(chi.URLParam(r, "lat"))
	if err != nil || lat < -90 || 90 <= lat {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("lat: %w", errBadCoordinate))
		return
	}
	lng, err := strconv.Atoi(chi.URLParam(r, "lng"))
	if err != nil || lng < -180 || 180 <= lng {
		s.renderError(w, r, http.StatusBadRequest, fmt.Errorf("lng: %w", errBadCoordinate))
		return
	}

	switch tile, err := s.tileCache.GetOrLoad(lat, lng); {
	case err != nil:
		s.renderError(w, r, http.StatusInternalServerError, err)
	case tile == nil:
		s.renderError(w, r, http.StatusNotFound, fmt.Errorf("%s: no data", demtile.TIF10Filename(float64(lat), float64(lng))))
	default:
		render.JSON(w, r, TileResponse{
			Filename:     demtile.TIF10Filename(float64(lat), float64(lng)),
			Width:        tile.Width(),
			Height:       tile.Height(),
			MaxElevation: tile.MaxElevation(),
			NoData:       tile.NoDataCount(),
		})
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

// parseCoordinate parses a coordinate in degrees that must lie within
// [-limit, limit].
func parseCoordinate(value string, limit float64) (float64, error) {
	coordinate, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(coordinate) || coordinate < -limit || limit < coordinate {
		return 0, errBadCoordinate
	}
	return coordinate, nil
}
