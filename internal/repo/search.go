package repo

import (
	"context"
	"fmt"
	"strings"

	"gatherly/internal/model"
)

const (
	StatusMyEvents  = "MY_EVENTS"
	StatusAttending = "ATTENDING"
	StatusOpen      = "OPEN"
	StatusArchive   = "ARCHIVE"
)

// SearchFilter is the validated input for SearchEvents. UserID is zero
// for anonymous requests; the service guarantees it is set for the
// statuses that need it.
type SearchFilter struct {
	Query      string
	Status     string
	UserID     int64
	CategoryID int64
	NoCategory bool
	Now        int64
	Limit      int
	Offset     int
}

// searchQuery composes AND-combined predicates over the events/users
// join. Predicates are written with ? markers and rendered to numbered
// placeholders once, so no caller assembles SQL by hand.
type searchQuery struct {
	predicates []string
	args       []any
}

func (q *searchQuery) and(predicate string, args ...any) {
	q.predicates = append(q.predicates, predicate)
	q.args = append(q.args, args...)
}

func (q *searchQuery) render(orderAndLimit string, tail ...any) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT e.event_id, e.name, e.description, e.location, e.start_date,
		       e.close_registration, e.max_attendees, e.creator_id,
		       u.user_id, u.first_name, u.last_name, u.email
		FROM events e
		JOIN users u ON u.user_id = e.creator_id`)

	if len(q.predicates) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(q.predicates, "\n\t\t  AND "))
	}
	sb.WriteString("\n\t\t")
	sb.WriteString(orderAndLimit)

	args := append(q.args, tail...)
	sql := sb.String()
	for i := 1; strings.Contains(sql, "?"); i++ {
		sql = strings.Replace(sql, "?", fmt.Sprintf("$%d", i), 1)
	}
	return sql, args
}

func buildSearchQuery(f SearchFilter) (string, []any) {
	var q searchQuery

	if f.Query != "" {
		q.and("e.name LIKE ?", "%"+f.Query+"%")
	}

	switch f.Status {
	case StatusMyEvents:
		q.and("e.creator_id = ?", f.UserID)
	case StatusAttending:
		q.and("e.event_id IN (SELECT event_id FROM attendees WHERE user_id = ?)", f.UserID)
		q.and("e.close_registration != ?", int64(model.CancelledRegistration))
		q.and("e.start_date >= ?", f.Now)
	case StatusOpen:
		q.and("e.close_registration > ?", f.Now)
	case StatusArchive:
		q.and("(e.close_registration = ? OR e.start_date < ?)",
			int64(model.CancelledRegistration), f.Now)
	}

	if f.NoCategory {
		q.and("NOT EXISTS (SELECT 1 FROM event_categories ec WHERE ec.event_id = e.event_id)")
	} else if f.CategoryID > 0 {
		q.and("e.event_id IN (SELECT event_id FROM event_categories WHERE category_id = ?)", f.CategoryID)
	}

	return q.render("ORDER BY e.start_date DESC LIMIT ? OFFSET ?", f.Limit, f.Offset)
}

func (r *repository) SearchEvents(ctx context.Context, f SearchFilter) ([]EventWithCreator, error) {
	query, args := buildSearchQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	defer rows.Close()

	var results []EventWithCreator
	for rows.Next() {
		var ec EventWithCreator
		if err := rows.Scan(
			&ec.Event.ID, &ec.Event.Name, &ec.Event.Description, &ec.Event.Location,
			&ec.Event.StartDate, &ec.Event.CloseRegistration, &ec.Event.MaxAttendees, &ec.Event.CreatorID,
			&ec.Creator.ID, &ec.Creator.FirstName, &ec.Creator.LastName, &ec.Creator.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, ec)
	}
	return results, rows.Err()
}
