package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
)

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author, body, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id::text, created_at`
	err := r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.Author,
		comment.Body,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
	return storageErr(err, comment.TicketID)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id::text, ticket_id, author, body, is_internal, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, storageErr(err, ticketID)
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.Author,
			&comment.Body,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, storageErr(err, ticketID)
		}
		result = append(result, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, ticketID)
	}
	return result, nil
}
