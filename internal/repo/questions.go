package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatherly/internal/model"
)

func (r *repository) CreateQuestion(ctx context.Context, q *model.Question) (int64, error) {
	query := `
		INSERT INTO questions (question, asked_by, event_id, votes)
		VALUES ($1, $2, $3, 0)
		RETURNING question_id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, q.Text, q.AskedBy, q.EventID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert question: %w", err)
	}
	return id, nil
}

func (r *repository) GetQuestion(ctx context.Context, id int64) (*QuestionWithContext, error) {
	query := `
		SELECT q.question_id, q.question, q.asked_by, q.event_id, q.votes, e.creator_id
		FROM questions q
		JOIN events e ON e.event_id = q.event_id
		WHERE q.question_id = $1
	`

	var qc QuestionWithContext
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&qc.Question.ID, &qc.Question.Text, &qc.Question.AskedBy,
		&qc.Question.EventID, &qc.Question.Votes, &qc.EventCreatorID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &qc, nil
}

// ListEventQuestions returns the event's questions newest-first.
func (r *repository) ListEventQuestions(ctx context.Context, eventID int64) ([]QuestionDetail, error) {
	query := `
		SELECT q.question_id, q.question, q.asked_by, q.event_id, q.votes, au.first_name
		FROM questions q
		LEFT JOIN users au ON au.user_id = q.asked_by
		WHERE q.event_id = $1
		ORDER BY q.question_id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []QuestionDetail
	for rows.Next() {
		var qd QuestionDetail
		var firstName sql.NullString
		if err := rows.Scan(
			&qd.Question.ID, &qd.Question.Text, &qd.Question.AskedBy,
			&qd.Question.EventID, &qd.Question.Votes, &firstName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		qd.AskedByFirstName = firstName.String
		questions = append(questions, qd)
	}
	return questions, rows.Err()
}

func (r *repository) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE question_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted question: %w", err)
	}
	if affected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// VoteTx records a one-shot vote. The question row is locked first so a
// voter cannot slip two votes through concurrent requests; whichever
// direction was cast first consumes the (question, voter) budget.
func (r *repository) VoteTx(ctx context.Context, questionID, voterID int64, delta int) error {
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

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT question_id FROM questions WHERE question_id = $1 FOR UPDATE`,
		questionID,
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to lock question: %w", err)
	}

	var voted bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM votes WHERE question_id = $1 AND voter_id = $2)`,
		questionID, voterID,
	).Scan(&voted)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check existing vote: %w", err)
	}
	if voted {
		_ = tx.Rollback()
		return ErrAlreadyVoted
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO votes (question_id, voter_id) VALUES ($1, $2)`,
		questionID, voterID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE questions SET votes = votes + $1 WHERE question_id = $2`,
		delta, questionID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update vote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
