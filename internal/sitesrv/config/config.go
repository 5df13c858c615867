package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type DatabaseParam struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
}

type ConfigParam struct {
	ServerPort     string        `toml:"server_port"`
	BaseDomain     string        `toml:"base_domain"`
	ProfilesDir    string        `toml:"profiles_dir"`
	DefaultProfile string        `toml:"default_profile"`
	ExternalDBHost string        `toml:"external_db_host"`
	WorkerCount    int           `toml:"worker_count"`
	DeployAttempts int           `toml:"deploy_attempts"`
	DeployInterval string        `toml:"deploy_interval"`
	PlatformDB     DatabaseParam `toml:"platform_db"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

func LoadConfig(filename string) error {
	if filename == "" {
		cfg = defaultConfig()
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	cp := *defaultConfig()
	if _, err := toml.Decode(string(content), &cp); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	cfg = &cp
	return nil
}

func defaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerPort:     "8196",
		BaseDomain:     "lunasites.eu",
		ProfilesDir:    "profiles",
		DefaultProfile: "default",
		WorkerCount:    4,
		DeployAttempts: 60,
		DeployInterval: "5s",
		PlatformDB: DatabaseParam{
			Host:     "localhost",
			Port:     5432,
			User:     "sites_api",
			Password: "abc@123",
			DBName:   "lunasites",
			SSLMode:  "disable",
		},
	}
}

// DeployPollInterval returns the parsed deploy poll interval, falling back to
// 5s when the configured value is malformed.
func (c *ConfigParam) DeployPollInterval() time.Duration {
	d, err := time.ParseDuration(c.DeployInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

func init() {
	err := LoadConfig("")
	if err != nil {
		panic(err)
	}
}
