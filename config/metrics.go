package config

import (
	"errors"

	validator "github.com/asaskevich/govalidator"
)

type Metrics struct {
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type InfluxMetrics struct {
	Host               string `mapstructure:"host"`
	Database           string `mapstructure:"database"`
	Measurement        string `mapstructure:"measurement"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	AlignTimestamps    bool   `mapstructure:"align_timestamps"`
	MetricSendInterval int    `mapstructure:"metric_send_interval"`
}

type PrometheusMetrics struct {
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

func (cfg *Metrics) validate(errs []error) []error {
	if cfg.Influxdb.Host != "" {
		if !isValidURL(cfg.Influxdb.Host) {
			errs = append(errs, errors.New("metrics.influxdb.host must be a valid url"))
		}
		if cfg.Influxdb.Database == "" {
			errs = append(errs, errors.New("metrics.influxdb.database is required when metrics.influxdb.host is set"))
		}
		if cfg.Influxdb.MetricSendInterval <= 0 {
			errs = append(errs, errors.New("metrics.influxdb.metric_send_interval must be positive"))
		}
	}
	if cfg.Prometheus.Port < 0 {
		errs = append(errs, errors.New("metrics.prometheus.port must be non-negative"))
	}
	return errs
}

func isValidURL(raw string) bool {
	return validator.IsURL(raw) && validator.IsRequestURL(raw)
}
