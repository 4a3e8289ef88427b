// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// maxDatasetSize bounds the downloaded polygon dataset.
const maxDatasetSize = 64 << 20

// Loader loads the country dataset from disk, downloading it once when the
// file is missing and a source URL is configured.
type Loader struct {
	Path   string
	URL    string
	Client *http.Client
}

// Load returns the country index, fetching the dataset if necessary.
func (l *Loader) Load(ctx context.Context) (*CountryIndex, error) {
	data, err := os.ReadFile(l.Path)
	if errors.Is(err, os.ErrNotExist) && l.URL != "" {
		logging.Info().Str("url", l.URL).Str("path", l.Path).Msg("Country dataset missing, downloading")
		data, err = l.download(ctx)
		if err != nil {
			return nil, err
		}
		if werr := writeAtomic(l.Path, data); werr != nil {
			// The dataset is usable even if caching it to disk fails.
			logging.Warn().Err(werr).Str("path", l.Path).Msg("Failed to cache country dataset")
		}
	} else if err != nil {
		return nil, fmt.Errorf("read country dataset %s: %w", l.Path, err)
	}

	idx, err := ParseCountries(data)
	if err != nil {
		return nil, err
	}
	logging.Info().Int("countries", idx.Len()).Msg("Country polygons loaded")
	return idx, nil
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create dataset request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download country dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download country dataset: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetSize))
	if err != nil {
		return nil, fmt.Errorf("read country dataset body: %w", err)
	}
	return data, nil
}

// writeAtomic writes data to a temp file and renames it into place.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".countries-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
