package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const mapBlockCols = `id, code, section, number, block_number, description, tag, coordinates`

func scanMapBlock(row pgx.Row) (*MapBlock, error) {
	var m MapBlock
	err := row.Scan(&m.ID, &m.Code, &m.Section, &m.Number, &m.BlockNumber,
		&m.Description, &m.Tag, &m.Coordinates)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan map block: %w", err)
	}
	return &m, nil
}

func (d *DB) GetMapBlock(ctx context.Context, id int64) (*MapBlock, error) {
	return scanMapBlock(d.conn.QueryRow(ctx,
		`SELECT `+mapBlockCols+` FROM map_blocks WHERE id = $1`, id))
}

func (d *DB) ListMapBlocks(ctx context.Context) ([]MapBlock, error) {
	rows, err := d.conn.Query(ctx, `SELECT `+mapBlockCols+` FROM map_blocks ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list map blocks: %w", err)
	}
	defer rows.Close()

	var out []MapBlock
	for rows.Next() {
		m, err := scanMapBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (d *DB) UpsertMapBlock(ctx context.Context, m *MapBlock) (bool, error) {
	var inserted bool
	err := d.conn.QueryRow(ctx, `
		INSERT INTO map_blocks (code, section, number, block_number,
			description, tag, coordinates)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (code) DO UPDATE SET
			section = EXCLUDED.section,
			number = EXCLUDED.number,
			block_number = EXCLUDED.block_number,
			description = EXCLUDED.description,
			tag = EXCLUDED.tag,
			coordinates = EXCLUDED.coordinates
		RETURNING id, (xmax = 0)`,
		m.Code, m.Section, m.Number, m.BlockNumber, m.Description, m.Tag,
		m.Coordinates,
	).Scan(&m.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert map block %q: %w", m.Code, err)
	}
	return inserted, nil
}

func (d *DB) DeleteMapBlock(ctx context.Context, id int64) error {
	tag, err := d.conn.Exec(ctx, `DELETE FROM map_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete map block %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
