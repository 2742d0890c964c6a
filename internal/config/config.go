package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once at
// the entry point and treated as immutable by every component.
type Config struct {
	Spatial     SpatialConfig     `yaml:"spatial" mapstructure:"spatial"`
	Temporal    TemporalConfig    `yaml:"temporal" mapstructure:"temporal"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	Species     SpeciesConfig     `yaml:"species" mapstructure:"species"`
	Collect     CollectConfig     `yaml:"collect" mapstructure:"collect"`
	Absence     AbsenceConfig     `yaml:"absence" mapstructure:"absence"`
	Nursery     NurseryConfig     `yaml:"nursery" mapstructure:"nursery"`
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SpatialConfig defines the study region and target grid resolution.
type SpatialConfig struct {
	MinLon     float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLon     float64 `yaml:"max_lon" mapstructure:"max_lon"`
	MinLat     float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat     float64 `yaml:"max_lat" mapstructure:"max_lat"`
	Resolution float64 `yaml:"resolution" mapstructure:"resolution"`
}

// TemporalConfig defines the study period and aggregation cadence.
type TemporalConfig struct {
	StartDate  string `yaml:"start_date" mapstructure:"start_date"`
	EndDate    string `yaml:"end_date" mapstructure:"end_date"`
	Cadence    string `yaml:"cadence" mapstructure:"cadence"`
	Hemisphere string `yaml:"hemisphere" mapstructure:"hemisphere"`
}

// PathsConfig holds the data directory layout.
type PathsConfig struct {
	DataRaw       string `yaml:"data_raw" mapstructure:"data_raw"`
	DataProcessed string `yaml:"data_processed" mapstructure:"data_processed"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// CredentialsConfig holds per-provider credentials.
type CredentialsConfig struct {
	NASAEarthdata    BasicAuth `yaml:"nasa_earthdata" mapstructure:"nasa_earthdata"`
	CopernicusMarine BasicAuth `yaml:"copernicus_marine" mapstructure:"copernicus_marine"`
	GFWToken         string    `yaml:"gfw_api_token" mapstructure:"gfw_api_token"`
}

// BasicAuth is a username/password credential pair.
type BasicAuth struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// SpeciesConfig names the target species and its prey species.
type SpeciesConfig struct {
	Target     string   `yaml:"target" mapstructure:"target"`
	Prey       []string `yaml:"prey" mapstructure:"prey"`
	LifeStages []string `yaml:"life_stages" mapstructure:"life_stages"`
}

// CollectConfig configures the data collection step.
type CollectConfig struct {
	MaxRecords  int  `yaml:"max_records" mapstructure:"max_records"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Parallel    bool `yaml:"parallel" mapstructure:"parallel"`
}

// AbsenceConfig configures absence-point generation.
type AbsenceConfig struct {
	BufferKM        float64 `yaml:"buffer_km" mapstructure:"buffer_km"`
	Ratio           float64 `yaml:"ratio" mapstructure:"ratio"`
	Seed            uint64  `yaml:"seed" mapstructure:"seed"`
	AttemptsPerGoal int     `yaml:"attempts_per_goal" mapstructure:"attempts_per_goal"`
}

// NurseryConfig configures the nursery suitability index thresholds.
type NurseryConfig struct {
	MaxDepthM    float64 `yaml:"max_depth_m" mapstructure:"max_depth_m"`
	MaxSlopeDeg  float64 `yaml:"max_slope_deg" mapstructure:"max_slope_deg"`
	MinSummerSST float64 `yaml:"min_summer_sst" mapstructure:"min_summer_sst"`
	SummerMonths []int   `yaml:"summer_months" mapstructure:"summer_months"`
}

// CatalogConfig configures the run catalog backend.
type CatalogConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment
	v.SetEnvPrefix("VOYAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults: California Current study area at 0.1 degrees, weekly cadence.
	v.SetDefault("spatial.min_lon", -130.0)
	v.SetDefault("spatial.max_lon", -110.0)
	v.SetDefault("spatial.min_lat", 25.0)
	v.SetDefault("spatial.max_lat", 45.0)
	v.SetDefault("spatial.resolution", 0.1)
	v.SetDefault("temporal.cadence", "weekly")
	v.SetDefault("temporal.hemisphere", "north")
	v.SetDefault("paths.data_raw", "./data/raw")
	v.SetDefault("paths.data_processed", "./data/processed")
	v.SetDefault("paths.temp_dir", "/tmp/voyager")
	v.SetDefault("species.target", "Carcharodon carcharias")
	v.SetDefault("species.prey", []string{"Zalophus californianus", "Mirounga angustirostris", "Phoca vitulina"})
	v.SetDefault("species.life_stages", []string{"Adult_Male", "Adult_Female", "Juvenile"})
	v.SetDefault("collect.max_records", 10000)
	v.SetDefault("collect.timeout_secs", 120)
	v.SetDefault("collect.parallel", false)
	v.SetDefault("absence.buffer_km", 100.0)
	v.SetDefault("absence.ratio", 1.0)
	v.SetDefault("absence.seed", 42)
	v.SetDefault("absence.attempts_per_goal", 1000)
	v.SetDefault("nursery.max_depth_m", 100.0)
	v.SetDefault("nursery.max_slope_deg", 5.0)
	v.SetDefault("nursery.min_summer_sst", 16.0)
	v.SetDefault("nursery.summer_months", []int{6, 7, 8})
	v.SetDefault("catalog.driver", "sqlite")
	v.SetDefault("catalog.database_url", "./voyager.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
