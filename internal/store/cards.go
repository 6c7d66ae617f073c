package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonjohansson/taskboard/internal/model"
)

type CardRepository struct {
	q querier
}

const cardColumns = `
SELECT c.id, c.title, c.description, c.date, c.status, c.priority, c.user_id,
       u.id, u.name, u.email, u.is_admin
FROM cards c
JOIN users u ON u.id = c.user_id`

// ListAll returns every card newest first. Cards sharing a date keep
// insertion order.
func (r *CardRepository) ListAll(ctx context.Context) ([]model.Card, error) {
	rows, err := r.q.QueryContext(ctx, cardColumns+` ORDER BY c.date DESC, c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := make([]model.Card, 0)
	index := make(map[int64]int)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		index[card.ID] = len(cards)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	if len(cards) == 0 {
		return cards, nil
	}

	comments, err := (&CommentRepository{q: r.q}).listAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, comment := range comments {
		if i, ok := index[comment.CardID]; ok {
			cards[i].Comments = append(cards[i].Comments, comment)
		}
	}
	return cards, nil
}

func (r *CardRepository) GetByID(ctx context.Context, id int64) (model.Card, error) {
	row := r.q.QueryRowContext(ctx, cardColumns+` WHERE c.id = ?`, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Card{}, ErrNotFound
		}
		return model.Card{}, err
	}
	card.Comments, err = (&CommentRepository{q: r.q}).listByCard(ctx, id)
	if err != nil {
		return model.Card{}, err
	}
	return card, nil
}

func (r *CardRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM cards WHERE status = ?`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards by status: %w", err)
	}
	return count, nil
}

func (r *CardRepository) Insert(ctx context.Context, card *model.Card) error {
	res, err := r.q.ExecContext(ctx, `
INSERT INTO cards (title, description, date, status, priority, user_id)
VALUES (?, ?, ?, ?, ?, ?)
`,
		card.Title,
		nullableString(card.Description),
		formatDate(card.Date),
		nullableString(card.Status),
		nullableString(card.Priority),
		card.UserID,
	)
	if err != nil {
		if isUniqueViolation(err, "cards.status") {
			return ErrOngoingConflict
		}
		return fmt.Errorf("insert card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	card.ID = id
	return nil
}

// Update writes the mutable fields. Date and owner never change.
func (r *CardRepository) Update(ctx context.Context, card model.Card) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE cards SET title = ?, description = ?, status = ?, priority = ?
WHERE id = ?
`,
		card.Title,
		nullableString(card.Description),
		nullableString(card.Status),
		nullableString(card.Priority),
		card.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "cards.status") {
			return ErrOngoingConflict
		}
		return fmt.Errorf("update card %d: %w", card.ID, err)
	}
	return requireAffected(res, "update card")
}

// Delete removes the card; its comments go with it through ON DELETE CASCADE.
func (r *CardRepository) Delete(ctx context.Context, card model.Card) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, card.ID)
	if err != nil {
		return fmt.Errorf("delete card %d: %w", card.ID, err)
	}
	return requireAffected(res, "delete card")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (model.Card, error) {
	var (
		c           model.Card
		description sql.NullString
		status      sql.NullString
		priority    sql.NullString
		date        string
		isAdmin     int
	)
	if err := row.Scan(
		&c.ID, &c.Title, &description, &date, &status, &priority, &c.UserID,
		&c.Owner.ID, &c.Owner.Name, &c.Owner.Email, &isAdmin,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Card{}, err
		}
		return model.Card{}, fmt.Errorf("scan card: %w", err)
	}
	parsed, err := parseDate(date)
	if err != nil {
		return model.Card{}, fmt.Errorf("card %d date: %w", c.ID, err)
	}
	c.Date = parsed
	c.Description = stringPtr(description)
	c.Status = stringPtr(status)
	c.Priority = stringPtr(priority)
	c.Owner.IsAdmin = isAdmin == 1
	c.Comments = []model.Comment{}
	return c, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
