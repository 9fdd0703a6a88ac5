package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSites() ([]SiteData, error)
	GetControllers() ([]ControllerData, error)

	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Weather     WeatherData      `json:"weather"`
	Model       ModelData        `json:"model"`
	Forecast    ForecastData     `json:"forecast"`
	Storage     StorageData      `json:"storage,omitempty"`
	Sites       []SiteData       `json:"sites,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// WeatherData configures the upstream weather sources. Durations are Go
// duration strings.
type WeatherData struct {
	HistoricalEndpoint string `json:"historical_endpoint,omitempty"`
	ForecastEndpoint   string `json:"forecast_endpoint,omitempty"`
	Timeout            string `json:"timeout,omitempty"`
	MaxAttempts        int    `json:"max_attempts,omitempty"`
	RetryDelay         string `json:"retry_delay,omitempty"`
}

// ModelData locates the model bundle to serve
type ModelData struct {
	Dir    string `json:"dir"`
	Bundle string `json:"bundle"`
}

// ForecastData holds the post-processing and scheduling knobs
type ForecastData struct {
	ReferenceCapacityKWp *float64 `json:"reference_capacity_kwp,omitempty"`
	ClampNegative        *bool    `json:"clamp_negative,omitempty"`
	Horizon              string   `json:"horizon,omitempty"`
	RunStep              string   `json:"run_step,omitempty"`
	OnRunFailure         string   `json:"on_run_failure,omitempty"`
	MaxRuns              int      `json:"max_runs,omitempty"`
	MaxLeadDays          int      `json:"max_lead_days,omitempty"`
	EarliestDate         string   `json:"earliest_date,omitempty"`
}

// StorageData holds the configuration for the optional history store
type StorageData struct {
	Database *DatabaseData `json:"database,omitempty"`
}

// DatabaseData selects a gorm driver and its connection string
type DatabaseData struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// SiteData describes a PV site that is forecast on a schedule
type SiteData struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CapacityKWp float64 `json:"capacity_kwp"`
	Tilt        float64 `json:"tilt,omitempty"`
	Orientation float64 `json:"orientation,omitempty"`
}

// ControllerData holds the configuration for the controllers
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
	SiteWatch  *SiteWatchData  `json:"sitewatch,omitempty"`
}

// RESTServerData configures the HTTP API
type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	GRPCHealth bool   `json:"grpc_health,omitempty"`
}

// SiteWatchData configures periodic forecasting of the configured sites.
// An empty Sites list watches every site.
type SiteWatchData struct {
	Interval string   `json:"interval,omitempty"`
	Sites    []string `json:"sites,omitempty"`
}
