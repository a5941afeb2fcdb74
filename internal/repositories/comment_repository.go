package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"memorybox/internal/database"
	"memorybox/internal/models"

	"go.uber.org/zap"
)

// commentRepository implements CommentRepository
type commentRepository struct {
	*BaseRepository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.Manager, logger *zap.Logger) CommentRepository {
	return &commentRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const commentColumns = `id, post_id, nickname, content, password_hash, created_at, updated_at`

// Create inserts the comment and bumps the post's comment counter
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO comments (post_id, nickname, content, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			comment.PostID, comment.Nickname, comment.Content, comment.PasswordHash,
		).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1`,
			comment.PostID); err != nil {
			return fmt.Errorf("failed to bump comment count: %w", err)
		}
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return sql.ErrNoRows
		}
		r.GetLogger().Error("Failed to create comment",
			zap.Int64("post_id", comment.PostID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetByID returns nil, nil when the comment does not exist
func (r *commentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	comment, err := scanComment(r.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comment %d: %w", id, err)
	}
	return comment, nil
}

// ListByPost returns one page of comments, newest first
func (r *commentRepository) ListByPost(ctx context.Context, postID int64, params models.PaginationParams) ([]*models.Comment, int64, error) {
	var total int64
	if err := r.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	rows, err := r.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, postID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, total, nil
}

// Update overwrites nickname and content
func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	err := r.QueryRowContext(ctx, `
		UPDATE comments SET nickname = $2, content = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		comment.ID, comment.Nickname, comment.Content,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("failed to update comment %d: %w", comment.ID, err)
	}
	return nil
}

// Delete removes the comment and decrements the post's comment counter
func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, comment.ID)
		if err != nil {
			return fmt.Errorf("failed to delete comment %d: %w", comment.ID, err)
		}
		if ok, err := rowsAffected(result); err != nil || !ok {
			return sql.ErrNoRows
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET comment_count = GREATEST(comment_count - 1, 0) WHERE id = $1`,
			comment.PostID); err != nil {
			return fmt.Errorf("failed to decrement comment count: %w", err)
		}
		return nil
	})
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.Nickname, &c.Content, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
