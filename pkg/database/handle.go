package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Record is a result row keyed by column name.
type Record map[string]any

// Handle is a live database connection. Every driver error is returned to the
// caller; nothing is swallowed into status codes. The caller owns the handle and
// must Close it.
type Handle interface {
	// Ping verifies the connection is still alive.
	Ping(ctx context.Context) error
	// QueryRecords runs query and returns every row as a Record.
	QueryRecords(ctx context.Context, query string, args ...any) ([]Record, error)
	// Exec runs a statement that returns no rows and reports the affected row count.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// Close releases the connection.
	Close() error
}

// Connector opens a handle for a descriptor. Implementations must verify the
// connection before returning it.
type Connector func(ctx context.Context, d ConnectionDescriptor) (Handle, error)

// Observer receives the outcome of every connection attempt.
type Observer interface {
	ObserveConnect(driver string, elapsed time.Duration, err error)
}

var (
	connectorsMu sync.RWMutex
	connectors   = map[string]Connector{
		DriverMySQL:    openMySQL,
		DriverPostgres: openPostgres,
	}
)

// RegisterDriver registers the connector used for descriptors whose Driver
// equals name, replacing any previous registration.
func RegisterDriver(name string, connector Connector) {
	connectorsMu.Lock()
	defer connectorsMu.Unlock()
	if _, exists := connectors[name]; exists {
		log.Warn().Msgf("Overriding existing database connector for driver %q", name)
	}
	connectors[name] = connector
}

// UnregisterDriver removes the connector registered for name.
func UnregisterDriver(name string) {
	connectorsMu.Lock()
	defer connectorsMu.Unlock()
	delete(connectors, name)
}

// Drivers returns the sorted names of all registered connectors.
func Drivers() []string {
	connectorsMu.RLock()
	defer connectorsMu.RUnlock()
	names := make([]string, 0, len(connectors))
	for name := range connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type openOptions struct {
	observer Observer
}

// OpenOption customizes Open.
type OpenOption func(*openOptions)

// WithObserver reports the connection attempt to o.
func WithObserver(o Observer) OpenOption {
	return func(opts *openOptions) {
		opts.observer = o
	}
}

// Open connects to the database described by d. There is no retry: a failure is
// returned as a *ConnectionError carrying the underlying reason, and the caller
// decides whether that is fatal.
func Open(ctx context.Context, d ConnectionDescriptor, opts ...OpenOption) (Handle, error) {
	var options openOptions
	for _, opt := range opts {
		opt(&options)
	}

	connectorsMu.RLock()
	connector, exists := connectors[d.Driver]
	connectorsMu.RUnlock()

	start := time.Now()
	var (
		handle Handle
		err    error
	)
	if exists {
		log.Debug().Stringer("database", d).Msg("Opening database connection")
		handle, err = connector(ctx, d)
	} else {
		err = errors.Errorf("no connector registered for driver %q", d.Driver)
	}

	if options.observer != nil {
		options.observer.ObserveConnect(d.Driver, time.Since(start), err)
	}
	if err != nil {
		return nil, &ConnectionError{Descriptor: d.Redacted(), Err: err}
	}

	log.Info().Stringer("database", d).Msg("Database connection established")
	return handle, nil
}
