package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonjohansson/taskboard/internal/model"
)

type CommentRepository struct {
	q querier
}

const commentColumns = `SELECT id, message, date, card_id, user_id FROM comments`

// GetByID looks a comment up within its parent card.
func (r *CommentRepository) GetByID(ctx context.Context, cardID, id int64) (model.Comment, error) {
	row := r.q.QueryRowContext(ctx, commentColumns+` WHERE id = ? AND card_id = ?`, id, cardID)
	comment, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, ErrNotFound
		}
		return model.Comment{}, err
	}
	return comment, nil
}

func (r *CommentRepository) Insert(ctx context.Context, comment *model.Comment) error {
	res, err := r.q.ExecContext(ctx, `
INSERT INTO comments (message, date, card_id, user_id)
VALUES (?, ?, ?, ?)
`,
		comment.Message,
		formatDate(comment.Date),
		comment.CardID,
		comment.UserID,
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	comment.ID = id
	return nil
}

func (r *CommentRepository) Update(ctx context.Context, comment model.Comment) error {
	res, err := r.q.ExecContext(ctx, `UPDATE comments SET message = ? WHERE id = ?`, comment.Message, comment.ID)
	if err != nil {
		return fmt.Errorf("update comment %d: %w", comment.ID, err)
	}
	return requireAffected(res, "update comment")
}

func (r *CommentRepository) Delete(ctx context.Context, comment model.Comment) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, comment.ID)
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", comment.ID, err)
	}
	return requireAffected(res, "delete comment")
}

func (r *CommentRepository) listByCard(ctx context.Context, cardID int64) ([]model.Comment, error) {
	rows, err := r.q.QueryContext(ctx, commentColumns+` WHERE card_id = ? ORDER BY id ASC`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list comments for card %d: %w", cardID, err)
	}
	return collectComments(rows)
}

func (r *CommentRepository) listAll(ctx context.Context) ([]model.Comment, error) {
	rows, err := r.q.QueryContext(ctx, commentColumns+` ORDER BY card_id ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return collectComments(rows)
}

func collectComments(rows *sql.Rows) ([]model.Comment, error) {
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func scanComment(row rowScanner) (model.Comment, error) {
	var (
		c    model.Comment
		date string
	)
	if err := row.Scan(&c.ID, &c.Message, &date, &c.CardID, &c.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, err
		}
		return model.Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	parsed, err := parseDate(date)
	if err != nil {
		return model.Comment{}, fmt.Errorf("comment %d date: %w", c.ID, err)
	}
	c.Date = parsed
	return c, nil
}
