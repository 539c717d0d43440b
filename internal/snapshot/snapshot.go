// Package snapshot produces deep copies of configuration values so that a
// component holding a configuration never shares mutable state with its caller.
package snapshot

import (
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Copy returns a deep copy of src. Slices, maps and nested pointers are copied
// recursively. A nil src yields (nil, nil).
func Copy[T any](src *T) (*T, error) {
	if src == nil {
		return nil, nil
	}

	var dst T
	if err := deepcopy.Copy(&dst, src); err != nil {
		return nil, errors.Wrapf(err, "failed to deep copy type %T", src)
	}
	return &dst, nil
}

// MustCopy is Copy for constructor boundaries, where a configuration type that
// cannot be copied is a programming error:
//
//	func New(cfg Config) *Server {
//	    return &Server{config: *snapshot.MustCopy(&cfg)}
//	}
func MustCopy[T any](src *T) *T {
	result, err := Copy(src)
	if err != nil {
		panic("failed to create immutable snapshot: " + err.Error())
	}
	return result
}
