package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("translation not found")

// Translation is one archived translation.
type Translation struct {
	Seq             int64
	ID              string
	ProviderID      string
	Key             string
	Backend         string
	KernelName      string
	Source          string
	EncodingVersion string
	BrahmaVersion   string
}

const selectTranslation = `
	SELECT seq, id, provider_id, program_key, backend, kernel_name, source, encoding_version, brahma_version
	FROM translations`

// ListTranslations returns every archived translation in insertion order.
// Returns an empty slice (not nil) when the archive is empty.
func (s *Store) ListTranslations(ctx context.Context) ([]Translation, error) {
	return s.queryTranslations(ctx, selectTranslation+`
		ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// ReadByKey returns the translations archived under a program key, across
// backends and providers.
func (s *Store) ReadByKey(ctx context.Context, key string) ([]Translation, error) {
	return s.queryTranslations(ctx, selectTranslation+`
		WHERE program_key = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC`, key)
}

// ReadByProvider returns the translations one provider recorded.
func (s *Store) ReadByProvider(ctx context.Context, providerID string) ([]Translation, error) {
	return s.queryTranslations(ctx, selectTranslation+`
		WHERE provider_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC`, providerID)
}

// ReadTranslation returns the translation with the given id.
func (s *Store) ReadTranslation(ctx context.Context, id string) (Translation, error) {
	row := s.db.QueryRowContext(ctx, selectTranslation+` WHERE id = ?`, id)
	t, err := scanTranslation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, fmt.Errorf("read translation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Translation{}, fmt.Errorf("read translation %s: %w", id, err)
	}
	return t, nil
}

// CountByBackend returns the number of archived translations per backend.
func (s *Store) CountByBackend(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT backend, COUNT(*) FROM translations
		GROUP BY backend
		ORDER BY backend COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count translations: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var backend string
		var n int
		if err := rows.Scan(&backend, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[backend] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

func (s *Store) queryTranslations(ctx context.Context, query string, args ...any) ([]Translation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	out := []Translation{}
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranslation(row scanner) (Translation, error) {
	var t Translation
	err := row.Scan(
		&t.Seq,
		&t.ID,
		&t.ProviderID,
		&t.Key,
		&t.Backend,
		&t.KernelName,
		&t.Source,
		&t.EncodingVersion,
		&t.BrahmaVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Translation{}, err
		}
		return Translation{}, fmt.Errorf("scan translation: %w", err)
	}
	return t, nil
}
