package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (d *DB) CreatePrinterProfile(ctx context.Context, p *PrinterProfile) error {
	err := d.conn.QueryRow(ctx, `
		INSERT INTO printer_profiles (years_experience, brands_models,
			materials, unit_count, max_print_dimension, software)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		p.YearsExperience, p.BrandsModels, p.Materials, p.UnitCount,
		p.MaxPrintDimension, p.Software,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create printer profile: %w", err)
	}
	return nil
}

func (d *DB) UpdatePrinterProfile(ctx context.Context, p *PrinterProfile) error {
	tag, err := d.conn.Exec(ctx, `
		UPDATE printer_profiles SET
			years_experience = $2,
			brands_models = $3,
			materials = $4,
			unit_count = $5,
			max_print_dimension = $6,
			software = $7
		WHERE id = $1`,
		p.ID, p.YearsExperience, p.BrandsModels, p.Materials, p.UnitCount,
		p.MaxPrintDimension, p.Software)
	if err != nil {
		return fmt.Errorf("update printer profile %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) GetCapability(ctx context.Context, subscriberID int64) (*Capability, error) {
	var c Capability
	err := d.conn.QueryRow(ctx, `
		SELECT id, subscriber_id, variant, printer_id, responsible_name, responsible_dni
		FROM capabilities WHERE subscriber_id = $1`, subscriberID,
	).Scan(&c.ID, &c.SubscriberID, &c.Variant, &c.PrinterID,
		&c.ResponsibleName, &c.ResponsibleDNI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get capability: %w", err)
	}
	return &c, nil
}

// UpsertCapability keys on the subscriber: re-importing a subscriber under a
// different form replaces their previous variant, so conflicting variants
// cannot coexist.
func (d *DB) UpsertCapability(ctx context.Context, c *Capability) error {
	err := d.conn.QueryRow(ctx, `
		INSERT INTO capabilities (subscriber_id, variant, printer_id,
			responsible_name, responsible_dni)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (subscriber_id) DO UPDATE SET
			variant = EXCLUDED.variant,
			printer_id = EXCLUDED.printer_id,
			responsible_name = EXCLUDED.responsible_name,
			responsible_dni = EXCLUDED.responsible_dni
		RETURNING id`,
		c.SubscriberID, string(c.Variant), c.PrinterID,
		c.ResponsibleName, c.ResponsibleDNI,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("upsert capability for subscriber %d: %w", c.SubscriberID, err)
	}
	return nil
}
