package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const nodeCols = `id, subscriber_id, order_number, block_number,
	responsible_name, street, street_number, postal_code, locality,
	department, province, phone, email, selected_node, node_details`

func scanNode(row pgx.Row) (*Node, error) {
	var n Node
	err := row.Scan(&n.ID, &n.SubscriberID, &n.OrderNumber, &n.BlockNumber,
		&n.ResponsibleName, &n.Street, &n.StreetNumber, &n.PostalCode,
		&n.Locality, &n.Department, &n.Province, &n.Phone, &n.Email,
		&n.SelectedNode, &n.NodeDetails)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node: %w", err)
	}
	return &n, nil
}

func (d *DB) GetNode(ctx context.Context, id int64) (*Node, error) {
	return scanNode(d.conn.QueryRow(ctx,
		`SELECT `+nodeCols+` FROM nodes WHERE id = $1`, id))
}

func (d *DB) ListNodes(ctx context.Context) ([]Node, error) {
	rows, err := d.conn.Query(ctx, `SELECT `+nodeCols+` FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (d *DB) FirstNodeForSubscriber(ctx context.Context, subscriberID int64) (*Node, error) {
	return scanNode(d.conn.QueryRow(ctx,
		`SELECT `+nodeCols+` FROM nodes WHERE subscriber_id = $1 ORDER BY id LIMIT 1`,
		subscriberID))
}

func (d *DB) UpsertNode(ctx context.Context, n *Node) (bool, error) {
	var inserted bool
	err := d.conn.QueryRow(ctx, `
		INSERT INTO nodes (subscriber_id, order_number, block_number,
			responsible_name, street, street_number, postal_code, locality,
			department, province, phone, email, selected_node, node_details)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (subscriber_id, block_number) DO UPDATE SET
			order_number = EXCLUDED.order_number,
			responsible_name = EXCLUDED.responsible_name,
			street = EXCLUDED.street,
			street_number = EXCLUDED.street_number,
			postal_code = EXCLUDED.postal_code,
			locality = EXCLUDED.locality,
			department = EXCLUDED.department,
			province = EXCLUDED.province,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			selected_node = EXCLUDED.selected_node,
			node_details = EXCLUDED.node_details
		RETURNING id, (xmax = 0)`,
		n.SubscriberID, n.OrderNumber, n.BlockNumber, n.ResponsibleName,
		n.Street, n.StreetNumber, n.PostalCode, n.Locality, n.Department,
		n.Province, n.Phone, n.Email, n.SelectedNode, n.NodeDetails,
	).Scan(&n.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert node for subscriber %d block %q: %w",
			n.SubscriberID, n.BlockNumber, err)
	}
	return inserted, nil
}

func (d *DB) DeleteNode(ctx context.Context, id int64) error {
	tag, err := d.conn.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete node %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
