package geoio

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/shark-voyager/voyager-cli/internal/model"
)

const gpkgMetadata = `
PRAGMA application_id = 0x47504B47;
PRAGMA user_version = 10300;

CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);

CREATE TABLE IF NOT EXISTS gpkg_contents (
	table_name  TEXT PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	min_x DOUBLE, min_y DOUBLE, max_x DOUBLE, max_y DOUBLE,
	srs_id INTEGER
);

CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	CONSTRAINT pk_geom_cols PRIMARY KEY (table_name, column_name)
);

INSERT OR IGNORE INTO gpkg_spatial_ref_sys VALUES
	('WGS 84 geodetic', 4326, 'EPSG', 4326,
	 'GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]',
	 'longitude/latitude on WGS 84'),
	('Undefined cartesian', -1, 'NONE', -1, 'undefined', NULL),
	('Undefined geographic', 0, 'NONE', 0, 'undefined', NULL);
`

// WritePointsGPKG writes a point set as a GeoPackage feature table. An
// existing table of the same name is replaced: reruns produce a new version
// rather than mutating rows in place.
func WritePointsGPKG(ctx context.Context, path, table string, points []model.Point) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return eris.Wrapf(err, "gpkg: open %s", path)
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.ExecContext(ctx, gpkgMetadata); err != nil {
		return eris.Wrap(err, "gpkg: create metadata tables")
	}

	stmts := []string{
		`DROP TABLE IF EXISTS "` + table + `"`,
		`CREATE TABLE "` + table + `" (
			fid          INTEGER PRIMARY KEY AUTOINCREMENT,
			geom         BLOB,
			species      TEXT,
			life_stage   TEXT,
			presence     INTEGER,
			point_type   TEXT,
			event_date   TEXT,
			month        INTEGER,
			week_of_year INTEGER,
			season       TEXT,
			source       TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "gpkg: create feature table %s", table)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO gpkg_geometry_columns VALUES (?, 'geom', 'POINT', 4326, 0, 0)`,
		table,
	); err != nil {
		return eris.Wrap(err, "gpkg: register geometry column")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "gpkg: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	insert, err := tx.PrepareContext(ctx, `INSERT INTO "`+table+`"
		(geom, species, life_stage, presence, point_type, event_date, month, week_of_year, season, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "gpkg: prepare insert")
	}
	defer insert.Close() //nolint:errcheck

	minX, minY := 180.0, 90.0
	maxX, maxY := -180.0, -90.0
	for _, p := range points {
		blob, encErr := encodeGPKGPoint(p.Lon, p.Lat)
		if encErr != nil {
			return encErr
		}
		var eventDate any
		if !p.Time.IsZero() {
			eventDate = p.Time.UTC().Format(time.RFC3339)
		}
		if _, err := insert.ExecContext(ctx,
			blob, p.Species, p.LifeStage, p.Presence, string(p.Type),
			eventDate, p.Month, p.WeekOfYear, p.Season, p.Source,
		); err != nil {
			return eris.Wrap(err, "gpkg: insert feature")
		}
		minX, minY = min(minX, p.Lon), min(minY, p.Lat)
		maxX, maxY = max(maxX, p.Lon), max(maxY, p.Lat)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO gpkg_contents
			(table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
			VALUES (?, 'features', ?, ?, ?, ?, ?, 4326)`,
		table, table, minX, minY, maxX, maxY,
	); err != nil {
		return eris.Wrap(err, "gpkg: register contents")
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "gpkg: commit")
	}
	return nil
}

// encodeGPKGPoint produces a GeoPackage geometry blob: the "GP" header
// followed by little-endian WKB.
func encodeGPKGPoint(lon, lat float64) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	body, err := wkb.Marshal(pt, binary.LittleEndian)
	if err != nil {
		return nil, eris.Wrap(err, "gpkg: encode WKB point")
	}

	var buf bytes.Buffer
	buf.WriteByte('G')
	buf.WriteByte('P')
	buf.WriteByte(0)          // version
	buf.WriteByte(0b00000001) // little-endian header, no envelope
	var srid [4]byte
	binary.LittleEndian.PutUint32(srid[:], 4326)
	buf.Write(srid[:])
	buf.Write(body)
	return buf.Bytes(), nil
}
