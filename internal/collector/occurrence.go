package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/fetcher"
	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
	"github.com/shark-voyager/voyager-cli/internal/temporal"
)

const (
	gbifPageSize = 300  // GBIF caps limit at 300
	obisPageSize = 5000 // OBIS caps size at 10000; stay well under
)

// occurrenceDateLayouts covers the event date formats occurrence APIs return.
var occurrenceDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseEventDate(s string) (time.Time, bool) {
	for _, layout := range occurrenceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// gbifRecord is the subset of a GBIF occurrence we keep.
type gbifRecord struct {
	DecimalLatitude  float64 `json:"decimalLatitude"`
	DecimalLongitude float64 `json:"decimalLongitude"`
	EventDate        string  `json:"eventDate"`
	Species          string  `json:"species"`
	LifeStage        string  `json:"lifeStage"`
}

type gbifPage struct {
	Offset       int          `json:"offset"`
	Limit        int          `json:"limit"`
	EndOfRecords bool         `json:"endOfRecords"`
	Count        int          `json:"count"`
	Results      []gbifRecord `json:"results"`
}

// GBIFCollector pulls occurrence records for one species from the GBIF
// occurrence search API.
type GBIFCollector struct {
	fetcher    fetcher.Fetcher
	species    string
	maxRecords int
	BaseURL    string
}

// NewGBIFCollector creates the GBIF occurrence collector for the target species.
func NewGBIFCollector(f fetcher.Fetcher, species string, maxRecords int) *GBIFCollector {
	return &GBIFCollector{
		fetcher:    f,
		species:    species,
		maxRecords: maxRecords,
		BaseURL:    "https://api.gbif.org/v1",
	}
}

// Name implements Collector.
func (c *GBIFCollector) Name() string { return "gbif" }

// Fetch implements Collector.
func (c *GBIFCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	points, err := fetchGBIF(ctx, c.fetcher, c.BaseURL, c.species, g.Region, tr, c.maxRecords)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Name:   c.Name(),
		Source: "GBIF",
		Points: points,
	}, nil
}

func fetchGBIF(ctx context.Context, f fetcher.Fetcher, baseURL, species string, region grid.Region, tr temporal.Range, maxRecords int) ([]model.Point, error) {
	var points []model.Point
	offset := 0
	for {
		q := url.Values{}
		q.Set("scientificName", species)
		q.Set("hasCoordinate", "true")
		q.Set("decimalLatitude", fmt.Sprintf("%g,%g", region.MinLat, region.MaxLat))
		q.Set("decimalLongitude", fmt.Sprintf("%g,%g", region.MinLon, region.MaxLon))
		q.Set("eventDate", tr.Start.Format("2006-01-02")+","+tr.End.Format("2006-01-02"))
		q.Set("limit", fmt.Sprint(gbifPageSize))
		q.Set("offset", fmt.Sprint(offset))

		body, err := f.Download(ctx, baseURL+"/occurrence/search?"+q.Encode())
		if err != nil {
			return nil, eris.Wrapf(err, "collector: gbif search %s", species)
		}
		page, err := fetcher.DecodeJSONObject[gbifPage](body)
		_ = body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "collector: gbif decode page")
		}

		for _, rec := range page.Results {
			p := model.Point{
				Lon:       rec.DecimalLongitude,
				Lat:       rec.DecimalLatitude,
				Species:   rec.Species,
				LifeStage: rec.LifeStage,
				Presence:  1,
				Type:      model.PresencePoint,
				Source:    "GBIF",
			}
			if p.Species == "" {
				p.Species = species
			}
			if t, ok := parseEventDate(rec.EventDate); ok {
				p.Time = t
			}
			points = append(points, p)
		}

		offset += len(page.Results)
		if page.EndOfRecords || len(page.Results) == 0 {
			break
		}
		if maxRecords > 0 && offset >= maxRecords {
			zap.L().Warn("collector: gbif record cap reached",
				zap.String("species", species),
				zap.Int("max_records", maxRecords),
			)
			break
		}
	}

	zap.L().Info("collector: gbif occurrences fetched",
		zap.String("species", species),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// obisRecord is the subset of an OBIS occurrence we keep.
type obisRecord struct {
	ID               string  `json:"id"`
	DecimalLatitude  float64 `json:"decimalLatitude"`
	DecimalLongitude float64 `json:"decimalLongitude"`
	EventDate        string  `json:"eventDate"`
	ScientificName   string  `json:"scientificName"`
	LifeStage        string  `json:"lifeStage"`
}

type obisPage struct {
	Total   int          `json:"total"`
	Results []obisRecord `json:"results"`
}

// OBISCollector pulls occurrence records for one species from the OBIS API.
type OBISCollector struct {
	fetcher    fetcher.Fetcher
	species    string
	maxRecords int
	BaseURL    string
}

// NewOBISCollector creates the OBIS occurrence collector for the target species.
func NewOBISCollector(f fetcher.Fetcher, species string, maxRecords int) *OBISCollector {
	return &OBISCollector{
		fetcher:    f,
		species:    species,
		maxRecords: maxRecords,
		BaseURL:    "https://api.obis.org/v3",
	}
}

// Name implements Collector.
func (c *OBISCollector) Name() string { return "obis" }

// Fetch implements Collector.
func (c *OBISCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	points, err := fetchOBIS(ctx, c.fetcher, c.BaseURL, c.species, g.Region, tr, c.maxRecords)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Name:   c.Name(),
		Source: "OBIS",
		Points: points,
	}, nil
}

func fetchOBIS(ctx context.Context, f fetcher.Fetcher, baseURL, species string, region grid.Region, tr temporal.Range, maxRecords int) ([]model.Point, error) {
	wkt := fmt.Sprintf("POLYGON((%g %g,%g %g,%g %g,%g %g,%g %g))",
		region.MinLon, region.MinLat,
		region.MaxLon, region.MinLat,
		region.MaxLon, region.MaxLat,
		region.MinLon, region.MaxLat,
		region.MinLon, region.MinLat,
	)

	var points []model.Point
	after := ""
	for {
		q := url.Values{}
		q.Set("scientificname", species)
		q.Set("geometry", wkt)
		q.Set("startdate", tr.Start.Format("2006-01-02"))
		q.Set("enddate", tr.End.Format("2006-01-02"))
		q.Set("size", fmt.Sprint(obisPageSize))
		if after != "" {
			q.Set("after", after)
		}

		body, err := f.Download(ctx, baseURL+"/occurrence?"+q.Encode())
		if err != nil {
			return nil, eris.Wrapf(err, "collector: obis search %s", species)
		}
		page, err := fetcher.DecodeJSONObject[obisPage](body)
		_ = body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "collector: obis decode page")
		}
		if len(page.Results) == 0 {
			break
		}

		for _, rec := range page.Results {
			p := model.Point{
				Lon:       rec.DecimalLongitude,
				Lat:       rec.DecimalLatitude,
				Species:   rec.ScientificName,
				LifeStage: rec.LifeStage,
				Presence:  1,
				Type:      model.PresencePoint,
				Source:    "OBIS",
			}
			if p.Species == "" {
				p.Species = species
			}
			if t, ok := parseEventDate(rec.EventDate); ok {
				p.Time = t
			}
			points = append(points, p)
		}

		after = page.Results[len(page.Results)-1].ID
		if maxRecords > 0 && len(points) >= maxRecords {
			zap.L().Warn("collector: obis record cap reached",
				zap.String("species", species),
				zap.Int("max_records", maxRecords),
			)
			break
		}
	}

	zap.L().Info("collector: obis occurrences fetched",
		zap.String("species", species),
		zap.Int("points", len(points)),
	)
	return points, nil
}

// orcaSpecies is the predator whose occurrence density approximates predation
// pressure on juvenile sharks.
const orcaSpecies = "Orcinus orca"

// OrcaCollector pulls orca occurrence records from OBIS.
type OrcaCollector struct {
	fetcher    fetcher.Fetcher
	maxRecords int
	BaseURL    string
}

// NewOrcaCollector creates the orca occurrence collector.
func NewOrcaCollector(f fetcher.Fetcher, maxRecords int) *OrcaCollector {
	return &OrcaCollector{
		fetcher:    f,
		maxRecords: maxRecords,
		BaseURL:    "https://api.obis.org/v3",
	}
}

// Name implements Collector.
func (c *OrcaCollector) Name() string { return "orca" }

// Fetch implements Collector.
func (c *OrcaCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	points, err := fetchOBIS(ctx, c.fetcher, c.BaseURL, orcaSpecies, g.Region, tr, c.maxRecords)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Name:   c.Name(),
		Source: "OBIS",
		Points: points,
	}, nil
}

// PreyCollector pulls GBIF occurrences for each prey species. Pinniped
// haul-out density derives from these points downstream.
type PreyCollector struct {
	fetcher    fetcher.Fetcher
	prey       []string
	maxRecords int
	BaseURL    string
}

// NewPreyCollector creates the prey occurrence collector.
func NewPreyCollector(f fetcher.Fetcher, prey []string, maxRecords int) *PreyCollector {
	return &PreyCollector{
		fetcher:    f,
		prey:       prey,
		maxRecords: maxRecords,
		BaseURL:    "https://api.gbif.org/v1",
	}
}

// Name implements Collector.
func (c *PreyCollector) Name() string { return "prey" }

// Fetch implements Collector.
func (c *PreyCollector) Fetch(ctx context.Context, g grid.Grid, tr temporal.Range) (*Dataset, error) {
	var points []model.Point
	for _, species := range c.prey {
		sp, err := fetchGBIF(ctx, c.fetcher, c.BaseURL, species, g.Region, tr, c.maxRecords)
		if err != nil {
			return nil, err
		}
		points = append(points, sp...)
	}
	return &Dataset{
		Name:   c.Name(),
		Source: "GBIF",
		Points: points,
	}, nil
}
