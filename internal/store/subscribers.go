package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const subscriberCols = `id, email, kind, name, surname, institution_name, phone,
	street, street_number, floor, postal_code, city, province, birth_date,
	document_id, heard_from, motivation, registered_at, photo_validated,
	diploma_given, contacted`

func scanSubscriber(row pgx.Row) (*Subscriber, error) {
	var s Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Kind, &s.Name, &s.Surname,
		&s.InstitutionName, &s.Phone, &s.Street, &s.StreetNumber, &s.Floor,
		&s.PostalCode, &s.City, &s.Province, &s.BirthDate, &s.DocumentID,
		&s.HeardFrom, &s.Motivation, &s.RegisteredAt, &s.PhotoValidated,
		&s.DiplomaGiven, &s.Contacted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	return &s, nil
}

func (d *DB) GetSubscriber(ctx context.Context, id int64) (*Subscriber, error) {
	return scanSubscriber(d.conn.QueryRow(ctx,
		`SELECT `+subscriberCols+` FROM subscribers WHERE id = $1`, id))
}

func (d *DB) GetSubscriberByEmail(ctx context.Context, email string) (*Subscriber, error) {
	return scanSubscriber(d.conn.QueryRow(ctx,
		`SELECT `+subscriberCols+` FROM subscribers WHERE lower(email) = lower($1)`, email))
}

func (d *DB) ListSubscribers(ctx context.Context, f SubscriberFilter) ([]Subscriber, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Kind != "" {
		where = append(where, "kind = "+arg(string(f.Kind)))
	}
	if f.Email != "" {
		where = append(where, "lower(email) = lower("+arg(f.Email)+")")
	}
	if f.NameContains != "" {
		p := arg("%" + f.NameContains + "%")
		where = append(where, "(name ILIKE "+p+" OR surname ILIKE "+p+" OR institution_name ILIKE "+p+")")
	}
	if f.HasBlocksOnly {
		where = append(where, "EXISTS (SELECT 1 FROM blocks b WHERE b.subscriber_id = subscribers.id)")
	}

	q := `SELECT ` + subscriberCols + ` FROM subscribers`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := d.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpsertSubscriber creates or updates by email. RegisteredAt is set by the
// database on create and left untouched on update; later imports override
// the descriptive fields but never the registration moment.
func (d *DB) UpsertSubscriber(ctx context.Context, s *Subscriber) (bool, error) {
	var inserted bool
	err := d.conn.QueryRow(ctx, `
		INSERT INTO subscribers (email, kind, name, surname, institution_name,
			phone, street, street_number, floor, postal_code, city, province,
			birth_date, document_id, heard_from, motivation, photo_validated,
			diploma_given, contacted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (email) DO UPDATE SET
			kind = EXCLUDED.kind,
			name = EXCLUDED.name,
			surname = EXCLUDED.surname,
			institution_name = EXCLUDED.institution_name,
			phone = EXCLUDED.phone,
			street = EXCLUDED.street,
			street_number = EXCLUDED.street_number,
			floor = EXCLUDED.floor,
			postal_code = EXCLUDED.postal_code,
			city = EXCLUDED.city,
			province = EXCLUDED.province,
			birth_date = EXCLUDED.birth_date,
			document_id = EXCLUDED.document_id,
			heard_from = EXCLUDED.heard_from,
			motivation = EXCLUDED.motivation,
			photo_validated = EXCLUDED.photo_validated,
			diploma_given = EXCLUDED.diploma_given,
			contacted = EXCLUDED.contacted
		RETURNING id, registered_at, (xmax = 0)`,
		s.Email, string(s.Kind), s.Name, s.Surname, s.InstitutionName,
		s.Phone, s.Street, s.StreetNumber, s.Floor, s.PostalCode, s.City,
		s.Province, s.BirthDate, s.DocumentID, s.HeardFrom, s.Motivation,
		s.PhotoValidated, s.DiplomaGiven, s.Contacted,
	).Scan(&s.ID, &s.RegisteredAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert subscriber %s: %w", s.Email, err)
	}
	return inserted, nil
}

func (d *DB) DeleteSubscriber(ctx context.Context, id int64) error {
	tag, err := d.conn.Exec(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscriber %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) ListParticipants(ctx context.Context, f SubscriberFilter) ([]Participant, error) {
	subs, err := d.ListSubscribers(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(subs))
	for _, s := range subs {
		blocks, err := d.ListBlocksForSubscriber(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Participant{Subscriber: s, Blocks: blocks})
	}
	return out, nil
}
