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

package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/hystrix"

	"github.com/opentracing-contrib/go-stdlib/nethttp"
)

// Config holds the connection pool, retry and circuit breaker settings of a client
type Config struct {
	Timeout            time.Duration `yaml:"timeout"`
	KeepAliveTimeout   time.Duration `yaml:"keepAliveTimeout"`
	MaxIdleConnections int           `yaml:"maxIdleConnections"`

	// RetryCount extra attempts are made on transport errors and 5xx responses,
	// RetryBackoff apart
	RetryCount   int           `yaml:"retryCount"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`

	// CACertPath adds a CA to the system pool, for servers with private certificates
	CACertPath string `yaml:"caCertPath"`
	// CertPath and PrivateKeyPath enable a client certificate when both are set
	CertPath       string `yaml:"certPath"`
	PrivateKeyPath string `yaml:"privateKeyPath"`

	Hystrix HystrixResiliencyConfig `yaml:"hystrix"`
}

type HystrixResiliencyConfig struct {
	// MaxConcurrentRequests is the maximum number of concurrent requests allowed
	MaxConcurrentRequests int `yaml:"maxConcurrentRequests"`
	// RequestVolumeThreshold is the minimum number of requests needed before a circuit can be tripped due to health
	RequestVolumeThreshold int `yaml:"requestVolumeThreshold"`
	// CircuitBreakerSleepWindow is how long to wait after a circuit opens before testing for recovery
	CircuitBreakerSleepWindow time.Duration `yaml:"circuitBreakerSleepWindow"`
	// ErrorPercentThreshold causes circuits to open once the rolling measure of errors exceeds this percent of requests
	ErrorPercentThreshold int `yaml:"errorPercentThreshold"`
	// CircuitBreakerTimeout is how long to wait for command to complete
	CircuitBreakerTimeout time.Duration `yaml:"circuitBreakerTimeout"`
}

// DefaultConfig suits short interactive calls against the apprenticelog API
func DefaultConfig() Config {
	return Config{
		Timeout:            10 * time.Second,
		KeepAliveTimeout:   30 * time.Second,
		MaxIdleConnections: 10,
		RetryCount:         2,
		RetryBackoff:       200 * time.Millisecond,
		Hystrix: HystrixResiliencyConfig{
			MaxConcurrentRequests:     100,
			RequestVolumeThreshold:    20,
			CircuitBreakerSleepWindow: 5 * time.Second,
			ErrorPercentThreshold:     50,
			CircuitBreakerTimeout:     15 * time.Second,
		},
	}
}

// NewClient returns a hystrix-wrapped HTTP client registered under hystrixCommand
func NewClient(hystrixCommand string, cfg Config) (*hystrix.Client, error) {
	// for http conn pool
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: cfg.KeepAliveTimeout,
		}).DialContext,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnections,
		MaxIdleConns:          cfg.MaxIdleConnections,
		IdleConnTimeout:       cfg.KeepAliveTimeout,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: cfg.Timeout,
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	transport.TLSClientConfig = tlsConfig

	retrier := heimdall.NewNoRetrier()
	if cfg.RetryCount > 0 {
		retrier = heimdall.NewRetrier(heimdall.NewConstantBackoff(cfg.RetryBackoff, cfg.RetryBackoff/2))
	}

	return hystrix.NewClient(
		hystrix.WithHTTPClient(&http.Client{
			Transport: &nethttp.Transport{RoundTripper: transport},
		}),
		hystrix.WithHTTPTimeout(cfg.Timeout),
		hystrix.WithCommandName(hystrixCommand),
		hystrix.WithHystrixTimeout(cfg.Hystrix.CircuitBreakerTimeout),
		hystrix.WithMaxConcurrentRequests(cfg.Hystrix.MaxConcurrentRequests),
		hystrix.WithRequestVolumeThreshold(cfg.Hystrix.RequestVolumeThreshold),
		hystrix.WithSleepWindow(int(cfg.Hystrix.CircuitBreakerSleepWindow.Milliseconds())),
		hystrix.WithErrorPercentThreshold(cfg.Hystrix.ErrorPercentThreshold),
		hystrix.WithRetrier(retrier),
		hystrix.WithRetryCount(cfg.RetryCount),
	), nil
}

// buildTLSConfig returns nil when no certificate settings are present
func buildTLSConfig(cfg Config) (*tls.Config, error) {
	withClientCert := cfg.CertPath != "" && cfg.PrivateKeyPath != ""
	if !withClientCert && cfg.CACertPath == "" {
		return nil, nil
	}

	certPool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to load system cert pool: %w", err)
	}

	tlsConfig := &tls.Config{RootCAs: certPool, MinVersion: tls.VersionTLS12}

	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		if !certPool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACertPath)
		}
	}

	if withClientCert {
		cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate and key: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
