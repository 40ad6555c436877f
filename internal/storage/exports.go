/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// language=SQL
// dialect=SQLite
const insertExportSQL = `INSERT INTO exports(ad_id, created_at, created_ns, sections, items, payload) VALUES (?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestExportSQL = `SELECT id, ad_id, created_at, created_ns, sections, items, payload FROM exports WHERE ad_id = ? ORDER BY created_ns DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listExportsSQL = `SELECT id, ad_id, created_at, created_ns, sections, items, payload FROM exports ORDER BY created_ns DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldExportsSQL = `DELETE FROM exports WHERE ad_id = ? AND id NOT IN (
	SELECT id FROM exports WHERE ad_id = ? ORDER BY created_ns DESC, id DESC LIMIT ?
)`

// createdAtLayout keeps every stamp the same width so the text column stays
// readable and comparable; ordering uses created_ns.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ExportEntry is one archived export record.
type ExportEntry struct {
	ID        int64     `json:"id"`
	AdID      int       `json:"adId"`
	CreatedAt time.Time `json:"createdAt"`
	Sections  int       `json:"sections"`
	Items     int       `json:"items"`
	Payload   []byte    `json:"-"`
}

// SaveExport stores an encoded export record and returns its row id.
func (a *Archive) SaveExport(ctx context.Context, e ExportEntry) (int64, error) {
	if a == nil || a.db == nil {
		return 0, errors.New("archive is not open")
	}
	if len(e.Payload) == 0 {
		return 0, errors.New("empty export payload")
	}
	ts := e.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := a.db.ExecContext(ctx, insertExportSQL, e.AdID, ts.UTC().Format(createdAtLayout), ts.UnixNano(), e.Sections, e.Items, e.Payload)
	if err != nil {
		return 0, fmt.Errorf("insert export: %w", err)
	}
	return res.LastInsertId()
}

// LatestExport returns the newest archived export for an ad. ok is false when
// the ad has never been exported.
func (a *Archive) LatestExport(ctx context.Context, adID int) (ExportEntry, bool, error) {
	if a == nil || a.db == nil {
		return ExportEntry{}, false, errors.New("archive is not open")
	}
	e, err := scanExport(a.db.QueryRowContext(ctx, selectLatestExportSQL, adID))
	if errors.Is(err, sql.ErrNoRows) {
		return ExportEntry{}, false, nil
	}
	if err != nil {
		return ExportEntry{}, false, err
	}
	return e, true, nil
}

// ListExports returns up to limit most recent exports across all ads.
func (a *Archive) ListExports(ctx context.Context, limit int) ([]ExportEntry, error) {
	if a == nil || a.db == nil {
		return nil, errors.New("archive is not open")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, listExportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []ExportEntry{}
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneExports keeps at most keepLast exports for the ad and deletes older ones.
func (a *Archive) PruneExports(ctx context.Context, adID int, keepLast int) (int64, error) {
	if a == nil || a.db == nil {
		return 0, errors.New("archive is not open")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := a.db.ExecContext(ctx, pruneOldExportsSQL, adID, adID, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune exports: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(r rowScanner) (ExportEntry, error) {
	var e ExportEntry
	var tsStr string
	var ns int64
	if err := r.Scan(&e.ID, &e.AdID, &tsStr, &ns, &e.Sections, &e.Items, &e.Payload); err != nil {
		return ExportEntry{}, err
	}
	if ns != 0 {
		e.CreatedAt = time.Unix(0, ns).UTC()
		return e, nil
	}
	// keep the row even if the timestamp is unreadable
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, tsStr)
	return e, nil
}
