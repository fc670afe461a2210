package store

import (
	"context"
	"database/sql"
	"errors"

	"medremind/internal/model"
	"medremind/pkg/logx"
)

const medicationCols = "id, name, kind, dose, intake_rule, quantity, schedule_kind, active, created_at, updated_at"

func (s *sqliteStore) InsertMedication(ctx context.Context, m *model.Medication) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	now := nowOr(m.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO medications(name, kind, dose, intake_rule, quantity, schedule_kind, active, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		m.Name, m.Kind, m.Dose, m.IntakeRule, m.Quantity, m.ScheduleKind, boolInt(m.Active), now, now,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	s.log.Debug("medication inserted", logx.Int64("id", id), logx.String("name", m.Name))
	return id, nil
}

func (s *sqliteStore) UpdateMedication(ctx context.Context, m *model.Medication) (int64, error) {
	if m.ID <= 0 {
		return 0, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if err := m.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE medications
		 SET name=?, kind=?, dose=?, intake_rule=?, quantity=?, schedule_kind=?, active=?, updated_at=?
		 WHERE id=?`,
		m.Name, m.Kind, m.Dose, m.IntakeRule, m.Quantity, m.ScheduleKind, boolInt(m.Active), nowStr(), m.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetMedication returns the active medication with the given id, or nil
// when no active row matches.
func (s *sqliteStore) GetMedication(ctx context.Context, id int64) (*model.Medication, error) {
	if id <= 0 {
		return nil, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+medicationCols+` FROM medications WHERE id=? AND active=1`, id)
	m, err := scanMedication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *sqliteStore) ListMedications(ctx context.Context, activeOnly bool) ([]model.Medication, error) {
	q := `SELECT ` + medicationCols + ` FROM medications`
	if activeOnly {
		q += ` WHERE active=1`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Medication, 0, 8)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// DeactivateMedication soft-deletes: reads keep filtering the medication
// out while its rows survive for history.
func (s *sqliteStore) DeactivateMedication(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE medications SET active=0, updated_at=? WHERE id=?`, nowStr(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteMedication hard-deletes the medication; its occurrences go with it
// via the cascade.
func (s *sqliteStore) DeleteMedication(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM medications WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddStock restocks by n units. n must be positive; the taken transition is
// the only path that reduces stock.
func (s *sqliteStore) AddStock(ctx context.Context, id int64, n int) (bool, error) {
	if id <= 0 {
		return false, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if n <= 0 {
		return false, &model.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE medications SET quantity=quantity+?, updated_at=? WHERE id=? AND active=1`,
		n, nowStr(), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(r rowScanner) (*model.Medication, error) {
	var (
		m                    model.Medication
		active               int
		createdAt, updatedAt sql.NullString
	)
	err := r.Scan(&m.ID, &m.Name, &m.Kind, &m.Dose, &m.IntakeRule, &m.Quantity,
		&m.ScheduleKind, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Active = active != 0
	if m.CreatedAt, err = scanTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = scanTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
