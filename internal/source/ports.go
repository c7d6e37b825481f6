// Package source defines where statements are loaded from.
package source

import (
	"context"

	"behavior/internal/core"
)

type (
	// Provider loads the full statement. Implementations report an absent
	// statement with core.ErrMissingDataSource.
	Provider interface {
		Load(ctx context.Context) ([]core.Record, error)
		// Name is a short label such as "file:/data/statement.csv".
		Name() string
	}

	// Pinger is implemented by providers that can check their backing store
	// without loading it.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Versioner is implemented by providers whose contents can change while
	// the server runs. Version returns an opaque token that differs after
	// every change, letting callers key cached records by it.
	Versioner interface {
		Version(ctx context.Context) (string, error)
	}
)
