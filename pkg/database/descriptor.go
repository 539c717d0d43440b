// Package database resolves the portal's database endpoint from the environment
// and opens the single connection handle the application runs on. Two connection
// formats are supported: a composite DATABASE_URL (as injected by most cloud
// hosting providers) and five discrete DB_* variables with per-field defaults.
package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	DefaultHost     = "localhost"
	DefaultPort     = 3306
	DefaultDatabase = "ejustice_portal"
	DefaultUser     = "root"

	// Charset is the character encoding requested on every MySQL connection.
	Charset = "utf8mb4"

	redactedPassword = "****"
)

// Source identifies which environment variables populated a descriptor.
type Source string

const (
	SourceURL      Source = "url"
	SourceDiscrete Source = "discrete"
)

// ConnectionDescriptor is the normalized description of the database endpoint.
// It is always fully populated by Resolve and every field comes from the same source.
type ConnectionDescriptor struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Source   Source `yaml:"source"`
}

// DefaultDescriptor returns the descriptor used when no variable is set.
func DefaultDescriptor() ConnectionDescriptor {
	return ConnectionDescriptor{
		Driver:   DriverMySQL,
		Host:     DefaultHost,
		Port:     DefaultPort,
		Database: DefaultDatabase,
		User:     DefaultUser,
		Source:   SourceDiscrete,
	}
}

// Address returns host:port, bracketing IPv6 hosts.
func (d ConnectionDescriptor) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// DSN builds the driver-specific connection string for the descriptor.
func (d ConnectionDescriptor) DSN() string {
	if d.Driver == DriverPostgres {
		return d.postgresURL().String()
	}
	return d.mysqlDSN()
}

// mysqlDSN renders user:pass@tcp(host:port)/db?charset=utf8mb4.
func (d ConnectionDescriptor) mysqlDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Address()
	cfg.DBName = d.Database
	return cfg.FormatDSN() + "?charset=" + Charset
}

// mysqlConfig parses the DSN back so the driver applies the charset its own way.
func (d ConnectionDescriptor) mysqlConfig() (*mysql.Config, error) {
	return mysql.ParseDSN(d.mysqlDSN())
}

func (d ConnectionDescriptor) postgresURL() *url.URL {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     d.Address(),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"client_encoding": []string{"UTF8"}}.Encode(),
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	return u
}

// Redacted returns a copy of the descriptor whose password is masked.
func (d ConnectionDescriptor) Redacted() ConnectionDescriptor {
	if d.Password != "" {
		d.Password = redactedPassword
	}
	return d
}

// String renders the descriptor without its password, e.g.
// "mysql://root@localhost:3306/ejustice_portal".
func (d ConnectionDescriptor) String() string {
	return fmt.Sprintf("%s://%s@%s/%s", d.Driver, d.User, d.Address(), d.Database)
}
