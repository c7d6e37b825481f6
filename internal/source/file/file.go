// Package file loads a statement from a CSV file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"behavior/internal/core"
	"behavior/internal/source"
	"behavior/internal/statement"
)

var (
	_ source.Provider = (*Provider)(nil)
	_ source.Pinger   = (*Provider)(nil)
)

type Provider struct {
	path string
}

func New(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) Name() string { return "file:" + p.path }

// Load reads and parses the file on every call.
func (p *Provider) Load(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMissingDataSource, err)
	}
	defer f.Close()

	records, err := statement.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.path, err)
	}
	return records, nil
}

func (p *Provider) Ping(context.Context) error {
	info, err := os.Stat(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", core.ErrMissingDataSource, p.path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", core.ErrMissingDataSource, p.path)
	}
	return nil
}
