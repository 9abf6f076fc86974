package config

import (
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"gopkg.in/yaml.v3"
)

// YamlConfig defines the structure of the baseline YAML file.
// Secrets (tokens, signing keys, service-account JSON) never live in
// YAML; they are supplied through the environment.
type YamlConfig struct {
	ProjectID    string `yaml:"project_id"`
	ListenAddr   string `yaml:"listen_addr"`
	DefaultTitle string `yaml:"default_title"`

	Strategy     string `yaml:"strategy"`
	QueueBackend string `yaml:"queue_backend"`
	QueuePath    string `yaml:"queue_path"`

	Cors struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Redis struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
		DB      int    `yaml:"db"`
	} `yaml:"redis"`

	Vapid struct {
		SubscriberEmail string `yaml:"subscriber_email"`
	} `yaml:"vapid"`

	QStash struct {
		URL             string `yaml:"url"`
		CallbackBaseURL string `yaml:"callback_base_url"`
	} `yaml:"qstash"`
}

// NewConfigFromYaml parses the embedded YAML baseline into a Config.
// The result is not yet valid; UpdateConfigWithEnvOverrides applies
// secrets and performs final validation.
func NewConfigFromYaml(yamlData []byte, logger *slog.Logger) (*Config, error) {
	var yamlCfg YamlConfig
	if err := yaml.Unmarshal(yamlData, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	cfg := &Config{
		ProjectID:    yamlCfg.ProjectID,
		ListenAddr:   yamlCfg.ListenAddr,
		DefaultTitle: yamlCfg.DefaultTitle,
		Strategy:     yamlCfg.Strategy,
		QueueBackend: yamlCfg.QueueBackend,
		QueuePath:    yamlCfg.QueuePath,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: yamlCfg.Cors.AllowedOrigins,
		},
		Redis: RedisConfig{
			Enabled: yamlCfg.Redis.Enabled,
			Addr:    yamlCfg.Redis.Addr,
			DB:      yamlCfg.Redis.DB,
		},
		Vapid: VapidConfig{
			SubscriberEmail: yamlCfg.Vapid.SubscriberEmail,
		},
		QStash: QStashConfig{
			URL:             yamlCfg.QStash.URL,
			CallbackBaseURL: yamlCfg.QStash.CallbackBaseURL,
		},
	}

	logger.Debug("Baseline configuration loaded from YAML")
	return cfg, nil
}
