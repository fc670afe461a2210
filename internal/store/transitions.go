package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medremind/internal/model"
	"medremind/internal/timeutil"
	"medremind/pkg/logx"
)

// HasResetOn reports whether the daily reset already ran on the given
// calendar date. One matching row is enough: the reset is applied to all
// rows in a single statement, so any row carrying today's marker means the
// sweep happened.
func (s *sqliteStore) HasResetOn(ctx context.Context, dateKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM schedules WHERE last_reset=? LIMIT 1`, dateKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ResetAll flips every occurrence row back to pending, clears the taken
// timestamp and note, and stamps the reset marker. It touches rows of
// inactive medications too; reads filter those out, so the extra writes
// are harmless and keep the statement a single bulk update.
func (s *sqliteStore) ResetAll(ctx context.Context, dateKey string, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules
		 SET status=?, taken_at=NULL, note=NULL, last_reset=?, updated_at=?`,
		int(model.StatusPending), dateKey, now.Format(timeFormat),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkStatus transitions one occurrence to the given status.
//
// On the edge into taken (previous status was anything else) the taken
// timestamp is set and the medication's stock is decremented by one in the
// same transaction. A decrement that cannot happen because stock is
// already zero is logged and the status commit proceeds: the user did take
// the dose, and bookkeeping should not make that fail.
//
// A non-empty note replaces the stored note; an empty one leaves it alone.
// Returns Updated=false (no error) when the id resolves to no occurrence
// of an active medication.
func (s *sqliteStore) MarkStatus(ctx context.Context, id int64, st model.Status, note string, now time.Time) (MarkResult, error) {
	if id <= 0 {
		return MarkResult{}, &model.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if !st.Valid() {
		return MarkResult{}, &model.ValidationError{Field: "status", Reason: "out of range"}
	}

	cur, err := s.GetSchedule(ctx, id)
	if err != nil {
		return MarkResult{}, err
	}
	if cur == nil {
		return MarkResult{}, nil
	}
	return s.markTx(ctx, cur, st, note, now)
}

// MarkFirstPendingOn acts on the earliest pending occurrence of the
// medication due on the named day. This is the notification-action path:
// the trigger payload names only the medication, not a row.
func (s *sqliteStore) MarkFirstPendingOn(ctx context.Context, medID int64, day string, st model.Status, note string, now time.Time) (MarkResult, error) {
	if medID <= 0 {
		return MarkResult{}, &model.ValidationError{Field: "medication_id", Reason: "must be positive"}
	}
	if !st.Valid() {
		return MarkResult{}, &model.ValidationError{Field: "status", Reason: "out of range"}
	}
	canonical, ok := timeutil.CanonicalDay(day)
	if !ok {
		return MarkResult{}, &model.ValidationError{Field: "day", Reason: "unknown day selector " + day}
	}

	row := s.db.QueryRowContext(ctx,
		scheduleViewQuery+` AND s.medication_id=? AND s.status=? AND (s.day=? OR s.day=?)
		 ORDER BY s.clock ASC, s.id ASC LIMIT 1`,
		medID, int(model.StatusPending), timeutil.DailySentinel, canonical)
	cur, err := scanScheduleView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return MarkResult{}, nil
	}
	if err != nil {
		return MarkResult{}, err
	}
	return s.markTx(ctx, cur, st, note, now)
}

func (s *sqliteStore) markTx(ctx context.Context, cur *model.ScheduleView, st model.Status, note string, now time.Time) (MarkResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MarkResult{}, err
	}
	defer tx.Rollback()

	takenEdge := st == model.StatusTaken && cur.Status != model.StatusTaken

	var res sql.Result
	switch {
	case takenEdge && note != "":
		res, err = tx.ExecContext(ctx,
			`UPDATE schedules SET status=?, note=?, taken_at=?, updated_at=? WHERE id=?`,
			int(st), note, now.Format(timeFormat), now.Format(timeFormat), cur.ID)
	case takenEdge:
		res, err = tx.ExecContext(ctx,
			`UPDATE schedules SET status=?, taken_at=?, updated_at=? WHERE id=?`,
			int(st), now.Format(timeFormat), now.Format(timeFormat), cur.ID)
	case note != "":
		res, err = tx.ExecContext(ctx,
			`UPDATE schedules SET status=?, note=?, updated_at=? WHERE id=?`,
			int(st), note, now.Format(timeFormat), cur.ID)
	default:
		res, err = tx.ExecContext(ctx,
			`UPDATE schedules SET status=?, updated_at=? WHERE id=?`,
			int(st), now.Format(timeFormat), cur.ID)
	}
	if err != nil {
		return MarkResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return MarkResult{}, err
	}
	if n == 0 {
		// Row vanished between read and write; nothing to do.
		return MarkResult{}, nil
	}

	out := MarkResult{Updated: true, PrevStatus: cur.Status, ScheduleID: cur.ID}
	if takenEdge {
		dec, err := tx.ExecContext(ctx,
			`UPDATE medications SET quantity=quantity-1, updated_at=? WHERE id=? AND quantity>0`,
			now.Format(timeFormat), cur.MedicationID)
		if err != nil {
			return MarkResult{}, err
		}
		if affected, _ := dec.RowsAffected(); affected > 0 {
			out.StockReduced = true
		} else {
			s.log.Warn("stock not reduced: quantity already zero",
				logx.Int64("medication", cur.MedicationID), logx.Int64("schedule", cur.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return MarkResult{}, err
	}
	s.log.Debug("schedule status updated",
		logx.Int64("schedule", cur.ID), logx.String("status", st.String()),
		logx.Bool("stock_reduced", out.StockReduced))
	return out, nil
}
