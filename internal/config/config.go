// Package config provides the builder-style configuration surface for the
// server: a Config struct assembled via a slice of Option functions over a
// flag/env-driven options bag.
package config

import "github.com/fileharbor/fileharbor/internal/fsstore"

// RoutingRule is the optional redirect descriptor applied on a GET miss,
// mirroring S3 static-website routing rules.
type RoutingRule struct {
	HostName             string
	Protocol             string
	ReplaceKeyPrefixWith string
	HTTPRedirectCode     int
}

// Config holds every server-level option.
type Config struct {
	Port          int
	Hostname      string
	Directory     string
	Silent        bool
	IndexDocument string
	ErrorDocument string
	FileSystem    fsstore.FileSystem // injected filesystem, primarily for tests
	RoutingRule   *RoutingRule
}

// Option mutates a Config during New.
type Option func(*Config)

// New builds a Config from defaults plus the given options.
func New(opts ...Option) *Config {
	cfg := &Config{
		Port:      4578,
		Hostname:  "localhost",
		Directory: "./data",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithPort(port int) Option            { return func(c *Config) { c.Port = port } }
func WithHostname(host string) Option     { return func(c *Config) { c.Hostname = host } }
func WithDirectory(dir string) Option     { return func(c *Config) { c.Directory = dir } }
func WithSilent(silent bool) Option       { return func(c *Config) { c.Silent = silent } }
func WithIndexDocument(doc string) Option { return func(c *Config) { c.IndexDocument = doc } }
func WithErrorDocument(doc string) Option { return func(c *Config) { c.ErrorDocument = doc } }
func WithFileSystem(fs fsstore.FileSystem) Option {
	return func(c *Config) { c.FileSystem = fs }
}
func WithRoutingRule(rule *RoutingRule) Option {
	return func(c *Config) { c.RoutingRule = rule }
}
