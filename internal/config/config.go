package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// Config holds the full application configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Raster   RasterConfig   `yaml:"raster" mapstructure:"raster"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	PostGIS  PostGISConfig  `yaml:"postgis" mapstructure:"postgis"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Render   RenderConfig   `yaml:"render" mapstructure:"render"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig configures the suitability pipeline.
type AnalysisConfig struct {
	CRS                 string            `yaml:"crs" mapstructure:"crs"`
	StudyArea           string            `yaml:"study_area" mapstructure:"study_area"`
	Constraints         ConstraintsConfig `yaml:"constraints" mapstructure:"constraints"`
	BufferDistance      float64           `yaml:"buffer_distance" mapstructure:"buffer_distance"`
	BufferSegments      int               `yaml:"buffer_segments" mapstructure:"buffer_segments"`
	MinAreaKm2          float64           `yaml:"min_area_km2" mapstructure:"min_area_km2"`
	OutputDir           string            `yaml:"output_dir" mapstructure:"output_dir"`
	PersistIntermediate bool              `yaml:"persist_intermediate" mapstructure:"persist_intermediate"`
	Concurrency         int               `yaml:"concurrency" mapstructure:"concurrency"`
}

// ConstraintsConfig lists the layer paths of each constraint category.
type ConstraintsConfig struct {
	Infrastructure []string `yaml:"infrastructure" mapstructure:"infrastructure"`
	Protected      []string `yaml:"protected" mapstructure:"protected"`
	Terrain        []string `yaml:"terrain" mapstructure:"terrain"`
}

// RasterConfig configures the DEM preparation commands.
type RasterConfig struct {
	DEM            string  `yaml:"dem" mapstructure:"dem"`
	ClipShape      string  `yaml:"clip_shape" mapstructure:"clip_shape"`
	SlopeThreshold float64 `yaml:"slope_threshold" mapstructure:"slope_threshold"`
	NoData         float64 `yaml:"nodata" mapstructure:"nodata"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PostGISConfig configures the optional candidate export.
type PostGISConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	Schema    string `yaml:"schema" mapstructure:"schema"`
	Table     string `yaml:"table" mapstructure:"table"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`

	RetryAttempts  int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// MetricsConfig configures the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// RenderConfig configures PNG map output.
type RenderConfig struct {
	Width  int `yaml:"width" mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the analysis settings before a run starts.
func (a AnalysisConfig) Validate() error {
	if strings.TrimSpace(a.StudyArea) == "" {
		return eris.New("config: analysis.study_area is required")
	}
	if a.BufferDistance < 0 {
		return eris.Errorf("config: analysis.buffer_distance must be >= 0, got %v", a.BufferDistance)
	}
	if a.MinAreaKm2 < 0 {
		return eris.Errorf("config: analysis.min_area_km2 must be >= 0, got %v", a.MinAreaKm2)
	}
	if a.BufferSegments < 1 {
		return eris.Errorf("config: analysis.buffer_segments must be >= 1, got %d", a.BufferSegments)
	}
	if _, err := vector.ParseCRS(a.CRS); err != nil {
		return eris.Wrap(err, "config: analysis.crs")
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SUITABILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("analysis.crs", "EPSG:27700")
	v.SetDefault("analysis.study_area", "data_files/vector/big_poly.shp")
	v.SetDefault("analysis.constraints.infrastructure", []string{})
	v.SetDefault("analysis.constraints.protected", []string{})
	v.SetDefault("analysis.constraints.terrain", []string{})
	v.SetDefault("analysis.buffer_distance", 25.0)
	v.SetDefault("analysis.buffer_segments", vector.DefaultQuadSegs)
	v.SetDefault("analysis.min_area_km2", 1.0)
	v.SetDefault("analysis.output_dir", "data_files/vector")
	v.SetDefault("analysis.persist_intermediate", true)
	v.SetDefault("analysis.concurrency", 3)
	v.SetDefault("raster.dem", "data_files/raster/dem_25m.tif")
	v.SetDefault("raster.clip_shape", "data_files/vector/travel_time.shp")
	v.SetDefault("raster.slope_threshold", 11.3)
	v.SetDefault("raster.nodata", -9999.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "suitability.db")
	v.SetDefault("postgis.schema", "public")
	v.SetDefault("postgis.table", "suitable_land")
	v.SetDefault("postgis.batch_size", 5000)
	v.SetDefault("postgis.retry_attempts", 3)
	v.SetDefault("postgis.retry_backoff_ms", 500)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("render.width", 1200)
	v.SetDefault("render.height", 1200)

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
