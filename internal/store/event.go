package store

import (
	"database/sql"
	"time"
)

// Event is a persisted tracker state transition.
type Event struct {
	ID         int64
	SessionID  string
	Kind       string
	Frame      int
	DriftError float64
	CreatedAt  time.Time
}

// EventRepository records tracker events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts an event and sets its ID.
func (r *EventRepository) Record(e *Event) error {
	e.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO tracker_events (session_id, kind, frame, drift_error, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.Frame, e.DriftError, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession returns the events of a session in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, kind, frame, drift_error, created_at
		 FROM tracker_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Frame, &e.DriftError, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
