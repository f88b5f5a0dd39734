/*
Copyright 2024 SolaCRM Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"REGISTRAR_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"REGISTRAR_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"REGISTRAR_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"REGISTRAR_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"REGISTRAR_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"REGISTRAR_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"REGISTRAR_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"REGISTRAR_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"REGISTRAR_REDIS_SKIP_TLS_VERIFY"`
}

// ZoomConfig holds server-to-server OAuth credentials for the Zoom webinar
// adapter. All four fields are required for the adapter to run.
type ZoomConfig struct {
	AccountID    string `json:"account_id" envconfig:"REGISTRAR_ZOOM_ACCOUNT_ID"`
	ClientID     string `json:"client_id" envconfig:"REGISTRAR_ZOOM_CLIENT_ID"`
	ClientSecret string `json:"client_secret" envconfig:"REGISTRAR_ZOOM_CLIENT_SECRET"`
	WebinarID    string `json:"webinar_id" envconfig:"REGISTRAR_ZOOM_WEBINAR_ID"`
}

// GoToWebinarConfig holds OAuth credentials and webinar identifiers for the
// GoToWebinar adapter.
type GoToWebinarConfig struct {
	ClientID     string `json:"client_id" envconfig:"REGISTRAR_G2W_CLIENT_ID"`
	ClientSecret string `json:"client_secret" envconfig:"REGISTRAR_G2W_CLIENT_SECRET"`
	OrganizerKey string `json:"organizer_key" envconfig:"REGISTRAR_G2W_ORGANIZER_KEY"`
	WebinarKey   string `json:"webinar_key" envconfig:"REGISTRAR_G2W_WEBINAR_KEY"`
}

// MailerLiteConfig holds the API key and target group for the MailerLite
// email-list adapter.
type MailerLiteConfig struct {
	APIKey  string `json:"api_key" envconfig:"REGISTRAR_MAILERLITE_API_KEY"`
	GroupID string `json:"group_id" envconfig:"REGISTRAR_MAILERLITE_GROUP_ID"`
}

// ProvidersConfig groups the external registration providers. A provider
// with missing credentials is still "configured": its adapter fails fast
// with a configuration error that is recorded like any other provider error.
type ProvidersConfig struct {
	Zoom        ZoomConfig        `json:"zoom"`
	GoToWebinar GoToWebinarConfig `json:"gotowebinar"`
	MailerLite  MailerLiteConfig  `json:"mailerlite"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"REGISTRAR_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"REGISTRAR_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"REGISTRAR_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type QueueConfig struct {
	MonitoringPort string `json:"monitoring_port" envconfig:"REGISTRAR_QUEUE_MONITORING_PORT"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"REGISTRAR_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"REGISTRAR_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Providers       ProvidersConfig  `json:"providers"`
	Queue           QueueConfig      `json:"queue"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("registrar", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called registrar.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Registrar Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}

	if !cnf.Providers.Zoom.Configured() {
		log.Println("Warning: Zoom credentials are incomplete. Zoom registrations will be recorded as failures.")
	}
	if !cnf.Providers.GoToWebinar.Configured() {
		log.Println("Warning: GoToWebinar credentials are incomplete. GoToWebinar registrations will be recorded as failures.")
	}
	if !cnf.Providers.MailerLite.Configured() {
		log.Println("Warning: MailerLite credentials are incomplete. MailerLite registrations will be recorded as failures.")
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

// Configured reports whether all Zoom credentials are present.
func (z ZoomConfig) Configured() bool {
	return z.AccountID != "" && z.ClientID != "" && z.ClientSecret != "" && z.WebinarID != ""
}

// Configured reports whether all GoToWebinar credentials are present.
func (g GoToWebinarConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.OrganizerKey != "" && g.WebinarKey != ""
}

// Configured reports whether all MailerLite credentials are present.
func (m MailerLiteConfig) Configured() bool {
	return m.APIKey != "" && m.GroupID != ""
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
