package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file and fills
// in defaults
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig struct {
		Weather     WeatherYAML      `yaml:"weather"`
		Model       ModelYAML        `yaml:"model"`
		Forecast    ForecastYAML     `yaml:"forecast"`
		Storage     StorageYAML      `yaml:"storage,omitempty"`
		Sites       []SiteYAML       `yaml:"sites,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	}

	if err := yaml.Unmarshal(cfgFile, &yamlConfig); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", y.filename, err)
	}

	config := &ConfigData{
		Weather: WeatherData{
			HistoricalEndpoint: yamlConfig.Weather.HistoricalEndpoint,
			ForecastEndpoint:   yamlConfig.Weather.ForecastEndpoint,
			Timeout:            yamlConfig.Weather.Timeout,
			MaxAttempts:        yamlConfig.Weather.MaxAttempts,
			RetryDelay:         yamlConfig.Weather.RetryDelay,
		},
		Model: ModelData{
			Dir:    yamlConfig.Model.Dir,
			Bundle: yamlConfig.Model.Bundle,
		},
		Forecast: ForecastData{
			ReferenceCapacityKWp: yamlConfig.Forecast.ReferenceCapacityKWp,
			ClampNegative:        yamlConfig.Forecast.ClampNegative,
			Horizon:              yamlConfig.Forecast.Horizon,
			RunStep:              yamlConfig.Forecast.RunStep,
			OnRunFailure:         yamlConfig.Forecast.OnRunFailure,
			MaxRuns:              yamlConfig.Forecast.MaxRuns,
			MaxLeadDays:          yamlConfig.Forecast.MaxLeadDays,
			EarliestDate:         yamlConfig.Forecast.EarliestDate,
		},
		Sites:       make([]SiteData, len(yamlConfig.Sites)),
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	if yamlConfig.Storage.Database != nil {
		config.Storage.Database = &DatabaseData{
			Driver: yamlConfig.Storage.Database.Driver,
			DSN:    yamlConfig.Storage.Database.DSN,
		}
	}

	for i, site := range yamlConfig.Sites {
		config.Sites[i] = SiteData{
			Name:        site.Name,
			Latitude:    site.Latitude,
			Longitude:   site.Longitude,
			CapacityKWp: site.CapacityKWp,
			Tilt:        site.Tilt,
			Orientation: site.Orientation,
		}
	}

	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}

		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:       controller.RESTServer.Cert,
				Key:        controller.RESTServer.Key,
				Port:       controller.RESTServer.Port,
				ListenAddr: controller.RESTServer.ListenAddr,
				GRPCHealth: controller.RESTServer.GRPCHealth,
			}
		}

		if controller.SiteWatch != nil {
			config.Controllers[i].SiteWatch = &SiteWatchData{
				Interval: controller.SiteWatch.Interval,
				Sites:    controller.SiteWatch.Sites,
			}
		}
	}

	ApplyDefaults(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// GetSites returns site configurations
func (y *YAMLProvider) GetSites() ([]SiteData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Sites, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Controllers, nil
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type WeatherYAML struct {
	HistoricalEndpoint string `yaml:"historical-endpoint,omitempty"`
	ForecastEndpoint   string `yaml:"forecast-endpoint,omitempty"`
	Timeout            string `yaml:"timeout,omitempty"`
	MaxAttempts        int    `yaml:"max-attempts,omitempty"`
	RetryDelay         string `yaml:"retry-delay,omitempty"`
}

type ModelYAML struct {
	Dir    string `yaml:"dir"`
	Bundle string `yaml:"bundle"`
}

type ForecastYAML struct {
	ReferenceCapacityKWp *float64 `yaml:"reference-capacity-kwp,omitempty"`
	ClampNegative        *bool    `yaml:"clamp-negative,omitempty"`
	Horizon              string   `yaml:"horizon,omitempty"`
	RunStep              string   `yaml:"run-step,omitempty"`
	OnRunFailure         string   `yaml:"on-run-failure,omitempty"`
	MaxRuns              int      `yaml:"max-runs,omitempty"`
	MaxLeadDays          int      `yaml:"max-lead-days,omitempty"`
	EarliestDate         string   `yaml:"earliest-date,omitempty"`
}

type StorageYAML struct {
	Database *DatabaseYAML `yaml:"database,omitempty"`
}

type DatabaseYAML struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SiteYAML struct {
	Name        string  `yaml:"name"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	CapacityKWp float64 `yaml:"capacity-kwp"`
	Tilt        float64 `yaml:"tilt,omitempty"`
	Orientation float64 `yaml:"orientation,omitempty"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
	SiteWatch  *SiteWatchYAML  `yaml:"sitewatch,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
	GRPCHealth bool   `yaml:"grpc-health,omitempty"`
}

type SiteWatchYAML struct {
	Interval string   `yaml:"interval,omitempty"`
	Sites    []string `yaml:"sites,omitempty"`
}
