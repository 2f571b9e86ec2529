package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"gymops/internal/adapters/storage"
	domain "gymops/internal/domain/schedule"
)

// storedTimeLayout keeps dated anchors as naive wall-clock text, down to
// the nanosecond. Rows written without a fraction still parse.
const storedTimeLayout = "2006-01-02T15:04:05.999999999"

const (
	modeWeekday = "weekday"
	modeDated   = "dated"
)

const slotColumns = "id, mode, title, description, notes, slot_type, color, start_day, start_hour, start_minute, end_day, end_hour, end_minute, start_at, end_at"

// SQLiteStore implements Store using SQLite. Every store is scoped to one
// branch; ids are unique across branches. Writes through one store are
// serialized, so obtain stores from a Registry to get one per branch.
type SQLiteStore struct {
	mu     sync.Mutex
	db     storage.SQLDB
	branch string
	newID  func() string
}

// Compile-time check that *SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store for the given branch.
// PRE: db has been initialized with storage.InitDB; branch is non-empty
// POST: Returns a store reading and writing only rows of branch
func NewSQLiteStore(db storage.SQLDB, branch string) *SQLiteStore {
	return &SQLiteStore{db: db, branch: branch, newID: func() string { return uuid.New().String() }}
}

// Add validates s and inserts it.
// PRE: s is populated
// POST: s is persisted with a non-empty id, or nothing changed
func (s *SQLiteStore) Add(ctx context.Context, slot domain.Slot) (domain.Slot, error) {
	added, err := s.AddBatch(ctx, []domain.Slot{slot})
	if err != nil {
		return domain.Slot{}, err
	}
	return added[0], nil
}

// AddBatch inserts every slot inside one transaction.
// PRE: slots are populated
// POST: Either every slot is persisted or none is
func (s *SQLiteStore) AddBatch(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	prepared, err := prepareBatch(slots, s.newID, func(id string) (bool, error) {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM slot WHERE id = ?", id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	for _, slot := range prepared {
		r := toRow(slot)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO slot (branch_id, "+slotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			append([]any{s.branch}, r.args()...)...,
		)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, slot.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("insert slot %s: %w", slot.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return prepared, nil
}

// Update overwrites the row stored under id.
// PRE: slot is populated
// POST: The row under id matches slot, or ErrNotFound
func (s *SQLiteStore) Update(ctx context.Context, id string, slot domain.Slot) (domain.Slot, error) {
	slot.ID = id
	if err := slot.Validate(); err != nil {
		return domain.Slot{}, err
	}
	r := toRow(slot)
	args := append(r.args()[1:], id, s.branch)

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE slot SET mode = ?, title = ?, description = ?, notes = ?, slot_type = ?, color = ?,
			start_day = ?, start_hour = ?, start_minute = ?, end_day = ?, end_hour = ?, end_minute = ?,
			start_at = ?, end_at = ?
		WHERE id = ? AND branch_id = ?`,
		args...,
	)
	if err != nil {
		return domain.Slot{}, err
	}
	if err := requireRow(res, id); err != nil {
		return domain.Slot{}, err
	}
	return slot, nil
}

// Remove deletes the row stored under id.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM slot WHERE id = ? AND branch_id = ?", id, s.branch)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// Get retrieves a slot by its ID.
// PRE: id is non-empty
// POST: Returns the slot or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Slot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+slotColumns+" FROM slot WHERE id = ? AND branch_id = ?", id, s.branch)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Slot{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return slot, err
}

// All retrieves the branch's slots in insertion order.
func (s *SQLiteStore) All(ctx context.Context) ([]domain.Slot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+slotColumns+" FROM slot WHERE branch_id = ? ORDER BY rowid", s.branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, slot)
	}
	return results, rows.Err()
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure, which a writer in another process can still cause.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

// slotRow is the column form of a slot. Exactly one of the weekday or
// date column groups is set, according to mode.
type slotRow struct {
	id, mode, title, description, notes, slotType, color string

	startDay, startHour, startMinute sql.NullInt64
	endDay, endHour, endMinute       sql.NullInt64
	startAt, endAt                   sql.NullString
}

func (r slotRow) args() []any {
	return []any{
		r.id, r.mode, r.title, r.description, r.notes, r.slotType, r.color,
		r.startDay, r.startHour, r.startMinute, r.endDay, r.endHour, r.endMinute,
		r.startAt, r.endAt,
	}
}

func nullInt(v int) sql.NullInt64 { return sql.NullInt64{Int64: int64(v), Valid: true} }

func toRow(s domain.Slot) slotRow {
	r := slotRow{
		id:          s.ID,
		title:       s.Title,
		description: s.Description,
		notes:       s.Notes,
		slotType:    string(s.Type),
		color:       s.Color,
	}
	switch a := s.Anchor.(type) {
	case domain.WeekdayAnchor:
		r.mode = modeWeekday
		r.startDay, r.startHour, r.startMinute = nullInt(a.Start.Day.Rank()), nullInt(a.Start.Hour), nullInt(a.Start.Minute)
		r.endDay, r.endHour, r.endMinute = nullInt(a.End.Day.Rank()), nullInt(a.End.Hour), nullInt(a.End.Minute)
	case domain.DateAnchor:
		r.mode = modeDated
		r.startAt = sql.NullString{String: a.Start.Format(storedTimeLayout), Valid: true}
		r.endAt = sql.NullString{String: a.End.Format(storedTimeLayout), Valid: true}
	}
	return r
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(sc scanner) (domain.Slot, error) {
	var r slotRow
	err := sc.Scan(&r.id, &r.mode, &r.title, &r.description, &r.notes, &r.slotType, &r.color,
		&r.startDay, &r.startHour, &r.startMinute, &r.endDay, &r.endHour, &r.endMinute,
		&r.startAt, &r.endAt)
	if err != nil {
		return domain.Slot{}, err
	}
	return r.slot()
}

func (r slotRow) slot() (domain.Slot, error) {
	s := domain.Slot{
		ID: r.id,
		Details: domain.Details{
			Title:       r.title,
			Description: r.description,
			Notes:       r.notes,
			Type:        domain.Kind(r.slotType),
			Color:       r.color,
		},
	}
	switch r.mode {
	case modeWeekday:
		s.Anchor = domain.WeekdayAnchor{
			Start: domain.WeeklyTime{Day: domain.Weekday(r.startDay.Int64), Hour: int(r.startHour.Int64), Minute: int(r.startMinute.Int64)},
			End:   domain.WeeklyTime{Day: domain.Weekday(r.endDay.Int64), Hour: int(r.endHour.Int64), Minute: int(r.endMinute.Int64)},
		}
	case modeDated:
		start, err := time.Parse(storedTimeLayout, r.startAt.String)
		if err != nil {
			return domain.Slot{}, fmt.Errorf("slot %s start_at: %w", r.id, err)
		}
		end, err := time.Parse(storedTimeLayout, r.endAt.String)
		if err != nil {
			return domain.Slot{}, fmt.Errorf("slot %s end_at: %w", r.id, err)
		}
		s.Anchor = domain.DateAnchor{Start: start, End: end}
	default:
		return domain.Slot{}, fmt.Errorf("slot %s: unknown mode %q", r.id, r.mode)
	}
	return s, nil
}
