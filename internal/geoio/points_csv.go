package geoio

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/model"
)

var pointCSVHeader = []string{
	"lon", "lat", "event_date", "species", "life_stage",
	"presence", "point_type", "month", "week_of_year", "season", "source",
}

// WritePointsCSV writes a point table with a fixed header.
func WritePointsCSV(path string, points []model.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "points: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(pointCSVHeader); err != nil {
		return eris.Wrap(err, "points: write header")
	}

	for _, p := range points {
		var date string
		if !p.Time.IsZero() {
			date = p.Time.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			date,
			p.Species,
			p.LifeStage,
			strconv.Itoa(p.Presence),
			string(p.Type),
			strconv.Itoa(p.Month),
			strconv.Itoa(p.WeekOfYear),
			p.Season,
			p.Source,
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "points: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "points: flush %s", path)
	}
	return nil
}

// ReadPointsCSV reads a point table written by WritePointsCSV.
func ReadPointsCSV(path string) ([]model.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "points: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(pointCSVHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "points: parse %s", path)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var points []model.Point
	for _, row := range rows[1:] {
		lon, lonErr := strconv.ParseFloat(row[0], 64)
		lat, latErr := strconv.ParseFloat(row[1], 64)
		if lonErr != nil || latErr != nil {
			return nil, eris.Errorf("points: %s: bad coordinates %q,%q", path, row[0], row[1])
		}

		p := model.Point{
			Lon:       lon,
			Lat:       lat,
			Species:   row[3],
			LifeStage: row[4],
			Type:      model.PointType(row[6]),
			Season:    row[9],
			Source:    row[10],
		}
		if row[2] != "" {
			t, terr := time.Parse(time.RFC3339, row[2])
			if terr != nil {
				return nil, eris.Wrapf(terr, "points: %s: bad date %q", path, row[2])
			}
			p.Time = t
		}
		p.Presence, _ = strconv.Atoi(row[5])
		p.Month, _ = strconv.Atoi(row[7])
		p.WeekOfYear, _ = strconv.Atoi(row[8])
		points = append(points, p)
	}

	return points, nil
}
