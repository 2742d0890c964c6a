package collector

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shark-voyager/voyager-cli/internal/geoio"
	"github.com/shark-voyager/voyager-cli/internal/raster"
)

const rawManifestName = "manifest.yaml"

// rawEntry records one saved dataset in the raw-data manifest so a later
// standardize step can reload it with its metadata intact.
type rawEntry struct {
	Name     string `yaml:"name"`
	Variable string `yaml:"variable"`
	Units    string `yaml:"units"`
	Source   string `yaml:"source"`
	Kind     string `yaml:"kind"`
	File     string `yaml:"file"`
}

// SaveDatasets writes raw collector output to dir: occurrence points as CSV,
// environmental layers as NetCDF (GeoTIFF for single untimed layers), and
// vector features as GeoJSON. A manifest records what landed where.
func SaveDatasets(dir string, datasets []*Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "rawio: create %s", dir)
	}

	manifest := loadManifest(dir)

	for _, ds := range datasets {
		entry := rawEntry{
			Name:     ds.Name,
			Variable: ds.Variable,
			Units:    ds.Units,
			Source:   ds.Source,
		}

		switch {
		case len(ds.Points) > 0:
			entry.Kind = "points"
			entry.File = ds.Name + "_points.csv"
			if err := geoio.WritePointsCSV(filepath.Join(dir, entry.File), ds.Points); err != nil {
				return err
			}

		case len(ds.Layers) == 1 && ds.Layers[0].Time.IsZero():
			entry.Kind = "raster"
			entry.File = ds.Name + ".tif"
			if err := geoio.WriteGeoTIFF(filepath.Join(dir, entry.File), ds.Layers[0].Raster); err != nil {
				return err
			}

		case len(ds.Layers) > 0:
			entry.Kind = "layers"
			entry.File = ds.Name + ".nc"
			stack := raster.NewStack(ds.Layers[0].Raster.Grid, ds.Variable, ds.Units)
			for _, layer := range ds.Layers {
				if err := stack.Append(layer.Time, layer.Raster); err != nil {
					return eris.Wrapf(err, "rawio: stack %s", ds.Name)
				}
			}
			if err := geoio.WriteNetCDF(filepath.Join(dir, entry.File), stack); err != nil {
				return err
			}

		case len(ds.Features) > 0:
			entry.Kind = "features"
			entry.File = ds.Name + ".geojson"
			if err := geoio.WriteGeoJSONFeatures(filepath.Join(dir, entry.File), ds.Features); err != nil {
				return err
			}

		default:
			zap.L().Warn("rawio: empty dataset not saved", zap.String("name", ds.Name))
			continue
		}

		manifest = upsertEntry(manifest, entry)
		zap.L().Info("rawio: saved dataset",
			zap.String("name", ds.Name),
			zap.String("file", entry.File),
		)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return eris.Wrap(err, "rawio: marshal manifest")
	}
	return eris.Wrap(os.WriteFile(filepath.Join(dir, rawManifestName), data, 0o644), "rawio: write manifest")
}

// LoadDatasets reads every dataset listed in dir's manifest back into memory.
func LoadDatasets(dir string) ([]*Dataset, error) {
	data, err := os.ReadFile(filepath.Join(dir, rawManifestName))
	if err != nil {
		return nil, eris.Wrapf(err, "rawio: read manifest in %s", dir)
	}
	var manifest []rawEntry
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, eris.Wrap(err, "rawio: parse manifest")
	}

	var datasets []*Dataset
	for _, entry := range manifest {
		ds := &Dataset{
			Name:     entry.Name,
			Variable: entry.Variable,
			Units:    entry.Units,
			Source:   entry.Source,
		}
		path := filepath.Join(dir, entry.File)

		switch entry.Kind {
		case "points":
			ds.Points, err = geoio.ReadPointsCSV(path)
			if err != nil {
				return nil, err
			}

		case "raster":
			r, err := geoio.ReadGeoTIFF(path, entry.Variable, entry.Units)
			if err != nil {
				return nil, err
			}
			ds.Layers = []Layer{{Raster: r}}

		case "layers":
			stack, err := geoio.ReadNetCDF(path, entry.Variable, entry.Units)
			if err != nil {
				return nil, err
			}
			for i, layer := range stack.Layers {
				ds.Layers = append(ds.Layers, Layer{Time: stack.Times[i], Raster: layer})
			}

		case "features":
			f, err := geoio.OpenFile(path)
			if err != nil {
				return nil, err
			}
			geoms, _, err := geoio.ReadGeoJSONFeatures(f)
			f.Close() //nolint:errcheck,gosec
			if err != nil {
				return nil, err
			}
			ds.Features = geoms

		default:
			return nil, eris.Errorf("rawio: unknown kind %q for %s", entry.Kind, entry.Name)
		}

		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// loadManifest returns the existing manifest so partial re-collections merge
// instead of clobbering earlier saves.
func loadManifest(dir string) []rawEntry {
	data, err := os.ReadFile(filepath.Join(dir, rawManifestName))
	if err != nil {
		return nil
	}
	var manifest []rawEntry
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	return manifest
}

func upsertEntry(manifest []rawEntry, entry rawEntry) []rawEntry {
	for i, e := range manifest {
		if e.Name == entry.Name {
			manifest[i] = entry
			return manifest
		}
	}
	return append(manifest, entry)
}
