package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const blockCols = `id, code, section, number, lottery_number, subscriber_id,
	node_id, state, assigned_at, validated_at, delivered_at, received_at,
	diploma_at, history`

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	err := row.Scan(&b.ID, &b.Code, &b.Section, &b.Number, &b.LotteryNumber,
		&b.SubscriberID, &b.NodeID, &b.State, &b.AssignedAt, &b.ValidatedAt,
		&b.DeliveredAt, &b.ReceivedAt, &b.DiplomaAt, &b.History)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan block: %w", err)
	}
	return &b, nil
}

func (d *DB) GetBlock(ctx context.Context, id int64) (*Block, error) {
	return scanBlock(d.conn.QueryRow(ctx,
		`SELECT `+blockCols+` FROM blocks WHERE id = $1`, id))
}

func (d *DB) GetBlockByCode(ctx context.Context, code string) (*Block, error) {
	return scanBlock(d.conn.QueryRow(ctx,
		`SELECT `+blockCols+` FROM blocks WHERE code = $1`, code))
}

func (d *DB) listBlocks(ctx context.Context, q string, args ...any) ([]Block, error) {
	rows, err := d.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (d *DB) ListBlocks(ctx context.Context) ([]Block, error) {
	return d.listBlocks(ctx, `SELECT `+blockCols+` FROM blocks ORDER BY code`)
}

func (d *DB) ListBlocksForSubscriber(ctx context.Context, subscriberID int64) ([]Block, error) {
	return d.listBlocks(ctx,
		`SELECT `+blockCols+` FROM blocks WHERE subscriber_id = $1 ORDER BY code`,
		subscriberID)
}

func (d *DB) AssignedBlocksWithoutSubscriber(ctx context.Context) ([]Block, error) {
	return d.listBlocks(ctx,
		`SELECT `+blockCols+` FROM blocks WHERE state <> 'free' AND subscriber_id IS NULL ORDER BY code`)
}

// UpsertBlock keys on the block code. Section and number are re-derived from
// the code on every write.
func (d *DB) UpsertBlock(ctx context.Context, b *Block) (bool, error) {
	b.DeriveSection()
	if b.State == "" {
		b.State = StateFree
	}

	var inserted bool
	err := d.conn.QueryRow(ctx, `
		INSERT INTO blocks (code, section, number, lottery_number,
			subscriber_id, node_id, state, assigned_at, validated_at,
			delivered_at, received_at, diploma_at, history)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (code) DO UPDATE SET
			section = EXCLUDED.section,
			number = EXCLUDED.number,
			lottery_number = EXCLUDED.lottery_number,
			subscriber_id = EXCLUDED.subscriber_id,
			node_id = EXCLUDED.node_id,
			state = EXCLUDED.state,
			assigned_at = EXCLUDED.assigned_at,
			validated_at = EXCLUDED.validated_at,
			delivered_at = EXCLUDED.delivered_at,
			received_at = EXCLUDED.received_at,
			diploma_at = EXCLUDED.diploma_at,
			history = EXCLUDED.history
		RETURNING id, (xmax = 0)`,
		b.Code, b.Section, b.Number, b.LotteryNumber, b.SubscriberID,
		b.NodeID, string(b.State), b.AssignedAt, b.ValidatedAt, b.DeliveredAt,
		b.ReceivedAt, b.DiplomaAt, b.History,
	).Scan(&b.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert block %q: %w", b.Code, err)
	}
	return inserted, nil
}

func (d *DB) DeleteBlock(ctx context.Context, id int64) error {
	tag, err := d.conn.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete block %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) ResetAllBlocks(ctx context.Context) (int64, error) {
	tag, err := d.conn.Exec(ctx, `
		UPDATE blocks SET
			state = 'free',
			subscriber_id = NULL,
			node_id = NULL,
			assigned_at = NULL,
			validated_at = NULL,
			delivered_at = NULL,
			received_at = NULL,
			diploma_at = NULL`)
	if err != nil {
		return 0, fmt.Errorf("reset blocks: %w", err)
	}
	return tag.RowsAffected(), nil
}
