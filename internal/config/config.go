package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds process-wide configuration for the dashboard backend
type Settings struct {
	AppName     string `mapstructure:"app_name"`
	Environment string `mapstructure:"environment"`
	Port        int    `mapstructure:"port"`
	APIPrefix   string `mapstructure:"api_prefix"`

	SecretKey                string `mapstructure:"secret_key"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes"`

	DatabasePath string   `mapstructure:"database_path"`
	CORSOrigins  []string `mapstructure:"cors_origins"`

	UseMockData bool `mapstructure:"use_mock_data"`

	PrometheusURL            string `mapstructure:"prometheus_url"`
	PrometheusTimeoutSeconds int    `mapstructure:"prometheus_timeout_seconds"`

	K8sAPIURL         string `mapstructure:"k8s_api_url"`
	K8sBearerToken    string `mapstructure:"k8s_bearer_token"`
	K8sVerifySSL      bool   `mapstructure:"k8s_verify_ssl"`
	K8sTimeoutSeconds int    `mapstructure:"k8s_timeout_seconds"`

	OverviewStreamIntervalSeconds int `mapstructure:"overview_stream_interval_seconds"`

	EnableLLM   bool   `mapstructure:"enable_llm"`
	LLMProvider string `mapstructure:"llm_provider"`

	DefaultAdminUsername string `mapstructure:"default_admin_username"`
	DefaultAdminPassword string `mapstructure:"default_admin_password"`

	ClusterConfigPath      string `mapstructure:"cluster_config_path"`
	SnapshotSchedule       string `mapstructure:"snapshot_schedule"`
	SnapshotRetentionHours int    `mapstructure:"snapshot_retention_hours"`
	AnalysisWorkers        int    `mapstructure:"analysis_workers"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
	LogFile  string `mapstructure:"log_file"`
}

// Load reads settings from an optional YAML file and KUBEOPS_* environment variables.
// An empty path only consults defaults and the environment.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KUBEOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	s.CORSOrigins = splitOrigins(v.Get("cors_origins"))

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "kubeops-dashboard")
	v.SetDefault("environment", "dev")
	v.SetDefault("port", 8080)
	v.SetDefault("api_prefix", "/api/v1")
	v.SetDefault("secret_key", "change-me-in-production")
	v.SetDefault("access_token_expire_minutes", 60)
	v.SetDefault("database_path", "data/kubeops.db")
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("use_mock_data", true)
	v.SetDefault("prometheus_url", "")
	v.SetDefault("prometheus_timeout_seconds", 10)
	v.SetDefault("k8s_api_url", "")
	v.SetDefault("k8s_bearer_token", "")
	v.SetDefault("k8s_verify_ssl", false)
	v.SetDefault("k8s_timeout_seconds", 10)
	v.SetDefault("overview_stream_interval_seconds", 8)
	v.SetDefault("enable_llm", false)
	v.SetDefault("llm_provider", "noop")
	v.SetDefault("default_admin_username", "admin")
	v.SetDefault("default_admin_password", "admin123")
	v.SetDefault("cluster_config_path", "k8s-configs/clusters.yaml")
	v.SetDefault("snapshot_schedule", "@every 1m")
	v.SetDefault("snapshot_retention_hours", 24)
	v.SetDefault("analysis_workers", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("log_file", "")
}

// splitOrigins accepts either a YAML list or a comma separated env value
func splitOrigins(raw interface{}) []string {
	var parts []string
	switch val := raw.(type) {
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []interface{}:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	}

	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Validate rejects settings the process cannot run with
func (s *Settings) Validate() error {
	switch s.Environment {
	case "dev", "staging", "prod":
	default:
		return fmt.Errorf("invalid environment %q: must be dev, staging or prod", s.Environment)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.SecretKey == "" {
		return errors.New("secret_key must not be empty")
	}
	if s.AccessTokenExpireMinutes <= 0 {
		return errors.New("access_token_expire_minutes must be positive")
	}
	if s.PrometheusTimeoutSeconds <= 0 || s.K8sTimeoutSeconds <= 0 {
		return errors.New("backend timeouts must be positive")
	}
	if s.OverviewStreamIntervalSeconds <= 0 {
		return errors.New("overview_stream_interval_seconds must be positive")
	}
	if s.AnalysisWorkers < 1 {
		return errors.New("analysis_workers must be at least 1")
	}
	if s.SnapshotRetentionHours <= 0 {
		return errors.New("snapshot_retention_hours must be positive")
	}
	return nil
}

// K8sTimeout is the per-call budget for live Kubernetes API requests
func (s *Settings) K8sTimeout() time.Duration {
	return time.Duration(s.K8sTimeoutSeconds) * time.Second
}

// PrometheusTimeout is the per-call budget for live Prometheus queries
func (s *Settings) PrometheusTimeout() time.Duration {
	return time.Duration(s.PrometheusTimeoutSeconds) * time.Second
}

// AccessTokenTTL is the lifetime of issued bearer tokens
func (s *Settings) AccessTokenTTL() time.Duration {
	return time.Duration(s.AccessTokenExpireMinutes) * time.Minute
}

// StreamInterval is the push period of the overview websocket
func (s *Settings) StreamInterval() time.Duration {
	return time.Duration(s.OverviewStreamIntervalSeconds) * time.Second
}

// SnapshotRetention is how long recorded summary snapshots are kept
func (s *Settings) SnapshotRetention() time.Duration {
	return time.Duration(s.SnapshotRetentionHours) * time.Hour
}
