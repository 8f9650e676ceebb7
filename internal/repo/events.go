package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gatherly/internal/model"
)

func (r *repository) CreateEvent(ctx context.Context, e *model.Event, categoryIDs []int64) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	query := `
		INSERT INTO events (name, description, location, start_date, close_registration, max_attendees, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING event_id
	`

	var id int64
	err = tx.QueryRowContext(ctx, query,
		e.Name, e.Description, e.Location, e.StartDate, e.CloseRegistration, e.MaxAttendees, e.CreatorID,
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	if err := insertEventCategories(ctx, tx, id, categoryIDs); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func insertEventCategories(ctx context.Context, tx *sql.Tx, eventID int64, categoryIDs []int64) error {
	for _, cid := range categoryIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO event_categories (event_id, category_id) VALUES ($1, $2)`,
			eventID, cid,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event category: %w", err)
		}
	}
	return nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	query := `
		SELECT event_id, name, description, location, start_date, close_registration, max_attendees, creator_id
		FROM events WHERE event_id = $1
	`

	var e model.Event
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Description, &e.Location,
		&e.StartDate, &e.CloseRegistration, &e.MaxAttendees, &e.CreatorID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *repository) GetEventWithCreator(ctx context.Context, id int64) (*EventWithCreator, error) {
	query := `
		SELECT e.event_id, e.name, e.description, e.location, e.start_date,
		       e.close_registration, e.max_attendees, e.creator_id,
		       u.user_id, u.first_name, u.last_name, u.email
		FROM events e
		JOIN users u ON u.user_id = e.creator_id
		WHERE e.event_id = $1
	`

	var ec EventWithCreator
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ec.Event.ID, &ec.Event.Name, &ec.Event.Description, &ec.Event.Location,
		&ec.Event.StartDate, &ec.Event.CloseRegistration, &ec.Event.MaxAttendees, &ec.Event.CreatorID,
		&ec.Creator.ID, &ec.Creator.FirstName, &ec.Creator.LastName, &ec.Creator.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event with creator: %w", err)
	}
	return &ec, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id int64, upd EventUpdate) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var clauses []string
	var args []any
	add := func(column string, value any) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.StartDate != nil {
		add("start_date", *upd.StartDate)
	}
	if upd.CloseRegistration != nil {
		add("close_registration", *upd.CloseRegistration)
	}
	if upd.MaxAttendees != nil {
		add("max_attendees", *upd.MaxAttendees)
	}

	if len(clauses) > 0 {
		query := fmt.Sprintf("UPDATE events SET %s WHERE event_id = $%d",
			strings.Join(clauses, ", "), len(args)+1)
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update event: %w", err)
		}
	}

	// Category replacement is delete-then-reinsert, not a diff.
	if upd.ReplaceCategories {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM event_categories WHERE event_id = $1`, id,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to clear event categories: %w", err)
		}
		if err := insertEventCategories(ctx, tx, id, upd.Categories); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *repository) CancelEvent(ctx context.Context, id int64) error {
	query := `UPDATE events SET close_registration = $1 WHERE event_id = $2`

	res, err := r.db.ExecContext(ctx, query, model.CancelledRegistration, id)
	if err != nil {
		return fmt.Errorf("failed to cancel event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cancelled event: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CountAttendees counts the attendee union: the creator plus every
// attendance row, deduplicated.
func (r *repository) CountAttendees(ctx context.Context, eventID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT a.user_id FROM attendees a WHERE a.event_id = $1
			UNION
			SELECT e.creator_id FROM events e WHERE e.event_id = $1
		) AS uniq
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attendees: %w", err)
	}
	return count, nil
}

func (r *repository) ListAttendees(ctx context.Context, eventID int64) ([]model.User, error) {
	query := `
		SELECT u.user_id, u.first_name, u.last_name, u.email
		FROM users u
		WHERE u.user_id IN (
			SELECT a.user_id FROM attendees a WHERE a.event_id = $1
			UNION
			SELECT e.creator_id FROM events e WHERE e.event_id = $1
		)
		ORDER BY u.user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repository) IsAttendee(ctx context.Context, eventID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendees WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return exists, nil
}

// RegisterAttendeeTx applies the registration rules in their contractual
// order (ownership, window, capacity, duplicate) with the event row
// locked, so concurrent registrations cannot both pass the capacity check.
func (r *repository) RegisterAttendeeTx(ctx context.Context, eventID, userID, now int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var event model.Event
	err = tx.QueryRowContext(ctx, `
		SELECT event_id, creator_id, close_registration, max_attendees
		FROM events
		WHERE event_id = $1
		FOR UPDATE
	`, eventID).Scan(&event.ID, &event.CreatorID, &event.CloseRegistration, &event.MaxAttendees)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to lock event: %w", err)
	}

	if event.CreatorID == userID {
		_ = tx.Rollback()
		return ErrAlreadyRegistered
	}

	if now > event.CloseRegistration {
		_ = tx.Rollback()
		return ErrRegistrationClosed
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT a.user_id FROM attendees a WHERE a.event_id = $1
			UNION
			SELECT e.creator_id FROM events e WHERE e.event_id = $1
		) AS uniq
	`, eventID).Scan(&count)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to count attendees: %w", err)
	}
	if count >= event.MaxAttendees {
		_ = tx.Rollback()
		return ErrEventFull
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendees WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check duplicate registration: %w", err)
	}
	if exists {
		_ = tx.Rollback()
		return ErrAlreadyRegistered
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO attendees (event_id, user_id) VALUES ($1, $2)`,
		eventID, userID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert attendance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
