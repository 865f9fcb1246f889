package store

import (
	"context"
	"fmt"

	"github.com/aquavit/Brahma-sub001/internal/compute"
	"github.com/aquavit/Brahma-sub001/internal/ir"
)

// Record implements compute.Archive.
func (s *Store) Record(t compute.Translation) error {
	_, err := s.WriteTranslation(context.Background(), t)
	return err
}

// WriteTranslation appends a translation and returns the stored record.
// A duplicate record id is a constraint error.
// The record is stamped with the IR encoding version and the Brahma
// version so keys from different encodings are never confused.
func (s *Store) WriteTranslation(ctx context.Context, t compute.Translation) (Translation, error) {
	rec := Translation{
		ID:              s.ids.Generate(),
		ProviderID:      t.ProviderID,
		Key:             t.Key,
		Backend:         t.Backend,
		KernelName:      t.KernelName,
		Source:          t.Source,
		EncodingVersion: ir.EncodingVersion,
		BrahmaVersion:   ir.Version,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO translations
		(id, provider_id, program_key, backend, kernel_name, source, encoding_version, brahma_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.ProviderID,
		rec.Key,
		rec.Backend,
		rec.KernelName,
		rec.Source,
		rec.EncodingVersion,
		rec.BrahmaVersion,
	)
	if err != nil {
		return Translation{}, fmt.Errorf("write translation: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Translation{}, fmt.Errorf("write translation: %w", err)
	}
	rec.Seq = seq
	return rec, nil
}
