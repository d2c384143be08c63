package repositories

import (
	"context"
	"database/sql"
	"errors"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
)

type DraftRepo struct {
	DB intdb.DBTX
}

func (r DraftRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Upsert overwrites the draft keyed by d.ID.
func (r DraftRepo) Upsert(ctx context.Context, d models.Draft) error {
	_, err := r.db().ExecContext(ctx, `INSERT INTO drafts (id, user_id, type, form_data, step, last_saved)
		VALUES (?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE form_data=VALUES(form_data), step=VALUES(step), last_saved=VALUES(last_saved)`,
		d.ID, d.UserID, string(d.Type), string(d.FormData), d.Step, d.LastSaved.UTC())
	return err
}

func (r DraftRepo) Get(ctx context.Context, id string) (models.Draft, error) {
	var (
		d    models.Draft
		typ  string
		form string
	)
	err := r.db().QueryRowContext(ctx, `SELECT id, user_id, type, form_data, step, last_saved FROM drafts WHERE id=? LIMIT 1`, id).
		Scan(&d.ID, &d.UserID, &typ, &form, &d.Step, &d.LastSaved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Draft{}, domain.NotFoundError{Resource: "draft", Err: err}
		}
		return models.Draft{}, err
	}
	d.Type = models.BookingType(typ)
	d.FormData = []byte(form)
	d.LastSaved = d.LastSaved.UTC()
	return d, nil
}

// Delete is idempotent.
func (r DraftRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db().ExecContext(ctx, `DELETE FROM drafts WHERE id=?`, id)
	return err
}
