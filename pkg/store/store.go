// Package store builds the counter adapter selected by configuration.
//
// Every backing store lives in its own subpackage and exposes the same
// adapter.Counter surface; this package only maps config.StoreConfig onto
// the matching driver configuration.
package store

import "github.com/nimburion/lazycounter/pkg/adapter"

// Counter is the adapter surface returned by NewCounter.
type Counter = adapter.Counter

// Identified is implemented by every adapter built here.
type Identified interface {
	ID() string
	Name() string
	Status() adapter.Status
}
