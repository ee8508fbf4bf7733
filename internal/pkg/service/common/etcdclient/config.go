package etcdclient

import (
	"strings"
	"time"
	"unicode"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

const (
	// DefaultNamespace isolates data structures from other applications sharing the etcd cluster.
	DefaultNamespace         = "coordination/"
	DefaultConnectionTimeout = 30 * time.Second
	DefaultKeepAliveTimeout  = 5 * time.Second
	DefaultKeepAliveInterval = 10 * time.Second
)

type Config struct {
	Endpoint          string        `configKey:"endpoint" configUsage:"Etcd endpoint."`
	Namespace         string        `configKey:"namespace" configUsage:"Etcd namespace, all data structure keys are stored under the prefix."`
	Username          string        `configKey:"username" configUsage:"Etcd username."`
	Password          string        `configKey:"password" configUsage:"Etcd password." sensitive:"true"`
	ConnectTimeout    time.Duration `configKey:"connectTimeout" configUsage:"Etcd connect timeout." validate:"required"`
	KeepAliveTimeout  time.Duration `configKey:"keepAliveTimeout" configUsage:"Etcd keep alive timeout." validate:"required"`
	KeepAliveInterval time.Duration `configKey:"keepAliveInterval" configUsage:"Etcd keep alive interval." validate:"required"`
	DebugLog          bool          `configKey:"debugLog" configUsage:"Etcd client warnings and errors are logged."`
}

func NewConfig() Config {
	return Config{
		Endpoint:          "",
		Namespace:         DefaultNamespace,
		Username:          "",
		Password:          "",
		DebugLog:          false,
		ConnectTimeout:    DefaultConnectionTimeout,
		KeepAliveTimeout:  DefaultKeepAliveTimeout,
		KeepAliveInterval: DefaultKeepAliveInterval,
	}
}

func (c *Config) Normalize() {
	c.Endpoint = strings.Trim(c.Endpoint, " /")
	c.Namespace = strings.Trim(c.Namespace, " /") + "/"
}

// Validate checks the normalized configuration.
func (c *Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return errors.New("etcd endpoint is not set")
	case c.Namespace == "/":
		return errors.New("etcd namespace is not set")
	case strings.IndexFunc(c.Namespace, unicode.IsSpace) != -1:
		return errors.Errorf(`etcd namespace "%s" must not contain whitespace`, c.Namespace)
	case strings.Contains(c.Namespace, "//"):
		return errors.Errorf(`etcd namespace "%s" must not contain an empty segment`, c.Namespace)
	case c.Username == "" && c.Password != "":
		return errors.New("etcd username is not set, but password is set")
	case c.KeepAliveTimeout >= c.KeepAliveInterval:
		// The next ping would be sent before the previous one expires
		return errors.Errorf("etcd keep alive timeout %s must be lower than keep alive interval %s", c.KeepAliveTimeout, c.KeepAliveInterval)
	}
	return nil
}
