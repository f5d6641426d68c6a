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
	"fmt"
	"os"
	"path"
	"reflect"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Default options for configuration loading.
const (
	DefaultConfigType     = "yaml"
	DefaultConfigDir      = "./appconfig"
	DefaultConfigFileName = "default"
	WorkDirEnv            = "WORKDIR"
	EnvPrefix             = "env|"
	FilePrefix            = "file|"
)

// Options is config options.
type Options struct {
	configType            string
	configPath            string
	defaultConfigFileName string
}

// Config is a wrapper over a underlying config loader implementation.
type Config struct {
	opts  Options
	viper *viper.Viper
}

// NewDefaultOptions looks for appconfig/ under $WORKDIR, or next to the module root
func NewDefaultOptions() Options {
	var configPath string
	workDir := os.Getenv(WorkDirEnv)
	if workDir != "" {
		configPath = path.Join(workDir, DefaultConfigDir)
	} else {
		_, thisFile, _, _ := runtime.Caller(0)
		configPath = path.Join(path.Dir(thisFile), "../../"+DefaultConfigDir)
	}
	return NewOptions(DefaultConfigType, configPath, DefaultConfigFileName)
}

// NewOptions returns new Options struct.
func NewOptions(configType string, configPath string, defaultConfigFileName string) Options {
	return Options{configType, configPath, defaultConfigFileName}
}

// NewDefaultConfig returns new config struct with default options.
func NewDefaultConfig() *Config {
	return NewConfig(NewDefaultOptions())
}

// NewConfig returns new config struct.
func NewConfig(opts Options) *Config {
	return &Config{opts, viper.New()}
}

// Load reads environment specific configurations and along with the defaults
// unmarshalls into config.
func (c *Config) Load(env string, config interface{}) error {
	if err := c.loadByConfigName(c.opts.defaultConfigFileName, config); err != nil {
		return err
	}
	if env != c.opts.defaultConfigFileName {
		if err := c.loadByConfigName(env, config); err != nil {
			return err
		}
	}
	return SubstituteConfigValues(reflect.ValueOf(config))
}

// SubstituteConfigValues recursively walks through the config struct and replaces
// string values of the form 'env|VAR' or 'file|/path' with the corresponding value.
func SubstituteConfigValues(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return SubstituteConfigValues(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			if err := SubstituteConfigValues(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		for _, key := range v.MapKeys() {
			val := v.MapIndex(key)
			// map values are not addressable, so work on a copy and store it back
			copyVal := reflect.New(val.Type()).Elem()
			copyVal.Set(val)
			if copyVal.Kind() == reflect.Interface && !copyVal.IsNil() && copyVal.Elem().Kind() == reflect.String {
				s, err := substituteString(copyVal.Elem().String())
				if err != nil {
					return err
				}
				copyVal.Set(reflect.ValueOf(s))
			} else if err := SubstituteConfigValues(copyVal); err != nil {
				return err
			}
			v.SetMapIndex(key, copyVal)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := SubstituteConfigValues(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.String:
		if v.CanSet() {
			s, err := substituteString(v.String())
			if err != nil {
				return err
			}
			v.SetString(s)
		}
	}
	return nil
}

// substituteString replaces 'env|VAR' and 'file|/path' patterns with their values
func substituteString(s string) (string, error) {
	if strings.HasPrefix(s, EnvPrefix) && len(s) > len(EnvPrefix) {
		return os.Getenv(s[len(EnvPrefix):]), nil
	}
	if strings.HasPrefix(s, FilePrefix) && len(s) > len(FilePrefix) {
		b, err := os.ReadFile(s[len(FilePrefix):])
		if err != nil {
			return "", fmt.Errorf("reading config value from file: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return s, nil
}

// loadByConfigName reads configuration from file and unmarshalls into config.
func (c *Config) loadByConfigName(configName string, config interface{}) error {
	c.viper.SetConfigName(configName)
	c.viper.SetConfigType(c.opts.configType)
	c.viper.AddConfigPath(c.opts.configPath)
	c.viper.AutomaticEnv()
	c.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := c.viper.MergeInConfig(); err != nil {
		return err
	}
	if err := c.viper.Unmarshal(config); err != nil {
		return err
	}
	return nil
}
