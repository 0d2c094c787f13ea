// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/litreview/pkg/types"
)

// Backup writes the whole collection as one JSON array of AnalyzedPaper.
func (m *Manager) Backup(w io.Writer) error {
	papers := m.Snapshot()
	if papers == nil {
		papers = []types.AnalyzedPaper{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return nil
}

// ReadBackup decodes a JSON array written by Backup.
func ReadBackup(r io.Reader) ([]types.AnalyzedPaper, error) {
	var papers []types.AnalyzedPaper
	if err := json.NewDecoder(r).Decode(&papers); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}
	return papers, nil
}

// Restore reads a backup from r and imports it with mode.
func (m *Manager) Restore(ctx context.Context, r io.Reader, mode ImportMode) (ImportSummary, error) {
	papers, err := ReadBackup(r)
	if err != nil {
		return ImportSummary{}, err
	}
	return m.ImportBatch(ctx, papers, mode)
}
