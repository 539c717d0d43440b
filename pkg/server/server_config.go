package server

import (
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = validator.New()

func init() {
	if err := validate.RegisterValidation("listen_addr", isListenAddress); err != nil {
		panic(err)
	}
}

// Config is the "server" section of the bootstrap file.
type Config struct {
	Address string `yaml:"address" toml:"address" validate:"required,listen_addr"`
	Debug   bool   `yaml:"debug" toml:"debug"`
	// ContentSecurityPolicy overrides middleware.DefaultContentSecurityPolicy.
	ContentSecurityPolicy string `yaml:"content_security_policy,omitempty" toml:"content_security_policy"`
}

// Validate checks that the listen address is a host:port pair.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "server configuration is invalid")
	}
	return nil
}

// isListenAddress accepts what net.Listen accepts for tcp: an optional hostname
// or IP literal (IPv6 in brackets) and a port in 0-65535, 0 picking a free port.
func isListenAddress(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if _, err = strconv.ParseUint(port, 10, 16); err != nil {
		return false
	}
	return host == "" || net.ParseIP(host) != nil || validate.Var(host, "hostname_rfc1123") == nil
}
