// Package collector fetches occurrence records, environmental rasters, and
// vector features from the upstream ocean data providers.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/shark-voyager/voyager-cli/internal/config"
	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/raster"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

// Layer is one time slice of an environmental variable on the provider's
// native grid.
type Layer struct {
	Time   time.Time
	Raster *raster.Raster
}

// Dataset is the raw output of one collector. Occurrence collectors fill
// Points, environmental collectors fill Layers, and vector collectors fill
// Features. Exactly one of the three is populated.
type Dataset struct {
	Name     string
	Variable string
	Units    string
	Source   string

	Points   []model.Point
	Layers   []Layer
	Features []geom.T
}

// Collector fetches one provider's data for a region and time range.
type Collector interface {
	// Name returns the short name used on the command line and in logs.
	Name() string

	// Fetch downloads the provider's data covering the grid's region and
	// the time range. Environmental layers come back on the provider's
	// native grid; resampling to the study grid happens downstream.
	Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error)
}

// Registry holds the configured collectors keyed by name.
type Registry struct {
	collectors map[string]Collector
	order      []string
}

// NewRegistry builds the full provider set from configuration.
func NewRegistry(cfg *config.Config, http fetcher.Fetcher, ftp *fetcher.FTPFetcher) *Registry {
	r := &Registry{collectors: make(map[string]Collector)}

	r.register(NewOcearchCollector(http, cfg.Species.Target))
	r.register(NewGBIFCollector(http, cfg.Species.Target, cfg.Collect.MaxRecords))
	r.register(NewOBISCollector(http, cfg.Species.Target, cfg.Collect.MaxRecords))
	r.register(NewPreyCollector(http, cfg.Species.Prey, cfg.Collect.MaxRecords))
	r.register(NewOrcaCollector(http, cfg.Collect.MaxRecords))
	r.register(NewSSTCollector(http))
	r.register(NewChlorophyllCollector(http))
	r.register(NewSLACollector(http))
	r.register(NewSalinityCollector(http))
	r.register(NewWOACollector(http, ftp))
	r.register(NewGEBCOCollector(http, cfg.Paths.TempDir))
	r.register(NewGFWCollector(http, cfg.Credentials.GFWToken, cfg.Paths.TempDir))
	r.register(NewENCCollector(http, cfg.Paths.TempDir))

	return r
}

func (r *Registry) register(c Collector) {
	r.collectors[c.Name()] = c
	r.order = append(r.order, c.Name())
}

// Get returns the named collector, or nil if unknown.
func (r *Registry) Get(name string) Collector {
	return r.collectors[name]
}

// Names returns the collector names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// gridFromCenters reconstructs a regular grid from sorted unique cell-center
// coordinates. Providers report centers, so the region edges sit half a cell
// outside the extreme centers.
func gridFromCenters(lons, lats []float64) (grid.Grid, bool) {
	if len(lons) < 2 || len(lats) < 2 {
		return grid.Grid{}, false
	}
	sort.Float64s(lons)
	sort.Float64s(lats)

	res := lons[1] - lons[0]
	if res <= 0 {
		return grid.Grid{}, false
	}

	g := grid.Grid{
		Region: grid.Region{
			MinLon: lons[0] - res/2,
			MaxLon: lons[len(lons)-1] + res/2,
			MinLat: lats[0] - res/2,
			MaxLat: lats[len(lats)-1] + res/2,
		},
		Resolution: res,
		Rows:       len(lats),
		Cols:       len(lons),
	}
	return g, true
}
