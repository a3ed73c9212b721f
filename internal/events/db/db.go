package db

import (
	"context"

	"github.com/uptrace/bun"

	"event-in/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent inserts ev and fills in its generated id.
func (d *DB) CreateEvent(ctx context.Context, ev *models.Event) error {
	_, err := d.Bun.NewInsert().
		Model(ev).
		Returning("id").
		Exec(ctx)
	return err
}

// GetEventByID returns sql.ErrNoRows when no row matches.
func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var ev models.Event
	err := d.Bun.NewSelect().
		Model(&ev).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListEvents returns every event, newest first.
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		Order("created_at DESC", "id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateEvent replaces every mutable column of the row with ev.ID and
// reports whether a row matched.
func (d *DB) UpdateEvent(ctx context.Context, ev *models.Event) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model(ev).
		Column("nama_event", "deskripsi", "tanggal", "waktu_mulai", "waktu_selesai", "link_meet", "berulang", "updated_at").
		Where("id = ?", ev.ID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteEvent reports whether a row was removed.
func (d *DB) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping checks the connection for the health endpoint.
func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}
