package store

import (
	"context"
	"database/sql"
	"errors"

	"medremind/internal/model"
	"medremind/internal/timeutil"
	"medremind/pkg/logx"
)

// Columns of the occurrence joined with its medication's display fields.
// Every read goes through this join so callers always get the composed
// view and inactive medications are filtered in one place.
const scheduleViewQuery = `
SELECT s.id, s.medication_id, s.day, s.clock, s.status, s.note, s.taken_at, s.last_reset,
       s.created_at, s.updated_at, m.name, m.kind, m.dose, m.intake_rule
FROM schedules s
INNER JOIN medications m ON m.id = s.medication_id
WHERE m.active = 1`

func (s *sqliteStore) InsertSchedule(ctx context.Context, sc *model.Schedule) (int64, error) {
	if err := sc.Normalize(); err != nil {
		return 0, err
	}
	now := nowOr(sc.CreatedAt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules(medication_id, day, clock, status, note, taken_at, last_reset, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		sc.MedicationID, sc.Day, sc.Clock, int(sc.Status), nullStr(sc.Note),
		nullTime(sc.TakenAt), nullStr(sc.LastReset), now, now,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sc.ID = id
	s.log.Debug("schedule inserted",
		logx.Int64("id", id), logx.Int64("medication", sc.MedicationID),
		logx.String("day", sc.Day), logx.String("clock", sc.Clock))
	return id, nil
}

// InsertSchedules inserts a batch in one transaction. All rows are
// validated up front; a malformed row fails the whole batch before any
// write.
func (s *sqliteStore) InsertSchedules(ctx context.Context, batch []*model.Schedule) (int, error) {
	for _, sc := range batch {
		if err := sc.Normalize(); err != nil {
			return 0, err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, sc := range batch {
		now := nowOr(sc.CreatedAt)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO schedules(medication_id, day, clock, status, note, taken_at, last_reset, created_at, updated_at)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			sc.MedicationID, sc.Day, sc.Clock, int(sc.Status), nullStr(sc.Note),
			nullTime(sc.TakenAt), nullStr(sc.LastReset), now, now,
		)
		if err != nil {
			return 0, err
		}
		if id, err := res.LastInsertId(); err == nil {
			sc.ID = id
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *sqliteStore) UpdateSchedule(ctx context.Context, sc *model.Schedule) (int64, error) {
	if sc.ID <= 0 {
		return 0, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if err := sc.Normalize(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET medication_id=?, day=?, clock=?, status=?, note=?, updated_at=? WHERE id=?`,
		sc.MedicationID, sc.Day, sc.Clock, int(sc.Status), nullStr(sc.Note), nowStr(), sc.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) DeleteSchedule(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *sqliteStore) DeleteSchedulesForMedication(ctx context.Context, medID int64) (int64, error) {
	if medID <= 0 {
		return 0, &model.ValidationError{Field: "medication_id", Reason: "must be positive"}
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE medication_id=?`, medID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetSchedule returns the occurrence joined with its medication, or nil
// when the row is missing or its medication is inactive.
func (s *sqliteStore) GetSchedule(ctx context.Context, id int64) (*model.ScheduleView, error) {
	if id <= 0 {
		return nil, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	row := s.db.QueryRowContext(ctx, scheduleViewQuery+` AND s.id=?`, id)
	v, err := scanScheduleView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *sqliteStore) ListSchedulesForMedication(ctx context.Context, medID int64) ([]model.ScheduleView, error) {
	if medID <= 0 {
		return nil, &model.ValidationError{Field: "medication_id", Reason: "must be positive"}
	}
	return s.listViews(ctx, scheduleViewQuery+` AND s.medication_id=? ORDER BY s.clock ASC, s.id ASC`, medID)
}

func (s *sqliteStore) ListSchedules(ctx context.Context) ([]model.ScheduleView, error) {
	return s.listViews(ctx, scheduleViewQuery+` ORDER BY s.clock ASC, s.id ASC`)
}

// ListDueOn returns occurrences due on the named day: daily rows plus
// weekly rows matching the day, active medications only.
func (s *sqliteStore) ListDueOn(ctx context.Context, day string) ([]model.ScheduleView, error) {
	canonical, ok := timeutil.CanonicalDay(day)
	if !ok {
		return nil, &model.ValidationError{Field: "day", Reason: "unknown day selector " + day}
	}
	return s.listViews(ctx,
		scheduleViewQuery+` AND (s.day=? OR s.day=?) ORDER BY s.clock ASC, s.id ASC`,
		timeutil.DailySentinel, canonical)
}

func (s *sqliteStore) CountByStatus(ctx context.Context) (model.StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.status, COUNT(*)
		 FROM schedules s
		 INNER JOIN medications m ON m.id = s.medication_id
		 WHERE m.active = 1
		 GROUP BY s.status`)
	if err != nil {
		return model.StatusCounts{}, err
	}
	defer rows.Close()

	var c model.StatusCounts
	for rows.Next() {
		var st, n int
		if err := rows.Scan(&st, &n); err != nil {
			return model.StatusCounts{}, err
		}
		c.Total += n
		switch model.Status(st) {
		case model.StatusTaken:
			c.Taken = n
		case model.StatusPending:
			c.Pending = n
		case model.StatusMissed:
			c.Missed = n
		}
	}
	return c, rows.Err()
}

func (s *sqliteStore) listViews(ctx context.Context, q string, args ...any) ([]model.ScheduleView, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ScheduleView, 0, 8)
	for rows.Next() {
		v, err := scanScheduleView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func scanScheduleView(r rowScanner) (*model.ScheduleView, error) {
	var (
		v                        model.ScheduleView
		st                       int
		note, takenAt, lastReset sql.NullString
		createdAt, updatedAt     sql.NullString
	)
	err := r.Scan(&v.ID, &v.MedicationID, &v.Day, &v.Clock, &st, &note, &takenAt, &lastReset,
		&createdAt, &updatedAt, &v.MedicationName, &v.MedicationKind, &v.Dose, &v.IntakeRule)
	if err != nil {
		return nil, err
	}
	v.Status = model.Status(st)
	v.Note = note.String
	v.LastReset = lastReset.String
	if v.TakenAt, err = scanTimePtr(takenAt); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = scanTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = scanTime(updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
