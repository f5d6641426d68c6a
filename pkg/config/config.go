/*
Copyright 2025.

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
	"os"
	"time"

	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/clients/ldap"
)

// AppConfig represents the top-level configuration structure
type AppConfig struct {
	App          App          `yaml:"app"`
	APIServer    APIServer    `yaml:"apiServer"`
	Cache        cache.Config `yaml:"cache"`
	Store        Store        `yaml:"store"`
	LDAP         ldap.LDAP    `yaml:"ldap"`
	TrainingYear TrainingYear `yaml:"trainingYear"`
}

// App represents the application configuration
type App struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

// APIServer configures the HTTP API
type APIServer struct {
	Address string `yaml:"address"`
	Auth    Auth   `yaml:"auth"`
	CORS    CORS   `yaml:"cors"`
}

type Auth struct {
	Enabled    bool        `yaml:"enabled"`
	BasicUsers []BasicUser `yaml:"basicUsers"`
}

type BasicUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedMethods []string `yaml:"allowedMethods"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
}

// Store configures how comment contexts are kept in the cache
type Store struct {
	// TTL of each entry, 0 keeps entries until deleted
	TTL time.Duration `yaml:"ttl"`
}

// TrainingYear configures start date parsing and the rollover job
type TrainingYear struct {
	DateLayouts      []string      `yaml:"dateLayouts"`
	RolloverEnabled  bool          `yaml:"rolloverEnabled"`
	RolloverInterval time.Duration `yaml:"rolloverInterval"`
}

var config *AppConfig

func LoadConfig(env string) (*AppConfig, error) {
	c := &AppConfig{}
	if err := NewDefaultConfig().Load(env, c); err != nil {
		return nil, err
	}
	config = c
	return config, nil
}

func getOrDefaultEnv() string {
	env := os.Getenv("APP_ENV")
	if len(env) == 0 {
		return "default"
	}
	return env
}

func GetConfig() (*AppConfig, error) {
	var err error
	if config == nil {
		config, err = LoadConfig(getOrDefaultEnv())
	}

	return config, err
}
