package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Storage   MStorageConfig   `yaml:"storage"`
	Detection MDetectionConfig `yaml:"detection"`
	Scan      MScanConfig      `yaml:"scan"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MDetectionConfig struct {
	MetricName                string  `yaml:"metric_name"`
	LookbackDays              int     `yaml:"lookback_days"`
	ZScoreThreshold           float64 `yaml:"zscore_threshold"`
	RollingWindow             int     `yaml:"rolling_window"`
	RollingDeviationThreshold float64 `yaml:"rolling_deviation_threshold"`
}

type MScanConfig struct {
	Workers            int    `yaml:"workers"`
	ScheduledHourUTC   int    `yaml:"scheduled_hour_utc"`
	CalendarMIC        string `yaml:"calendar_mic"`
	AlertRetentionDays int    `yaml:"alert_retention_days"`
}
