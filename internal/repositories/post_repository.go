// file: internal/repositories/post_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"memorybox/internal/badges"
	"memorybox/internal/database"
	"memorybox/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// postRepository implements PostRepository
type postRepository struct {
	*BaseRepository
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *database.Manager, logger *zap.Logger) PostRepository {
	return &postRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const postColumns = `
	id, group_id, nickname, title, content, password_hash, image_url, tags,
	location, moment, is_public, like_count, comment_count, created_at, updated_at`

var postOrderings = map[string]string{
	models.PostSortLatest:        "created_at DESC, id DESC",
	models.PostSortMostCommented: "comment_count DESC, id DESC",
	models.PostSortMostLiked:     "like_count DESC, id DESC",
}

// ===============================
// BASIC CRUD OPERATIONS
// ===============================

// Create inserts the post and increments the group's post counter
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Tags == nil {
		post.Tags = pq.StringArray{}
	}

	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (
				group_id, nickname, title, content, password_hash,
				image_url, tags, location, moment, is_public
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, like_count, comment_count, created_at, updated_at`,
			post.GroupID, post.Nickname, post.Title, post.Content, post.PasswordHash,
			post.ImageURL, post.Tags, post.Location, post.Moment, post.IsPublic,
		).Scan(&post.ID, &post.LikeCount, &post.CommentCount, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE groups SET post_count = post_count + 1, updated_at = NOW()
			WHERE id = $1`, post.GroupID)
		if err != nil {
			return fmt.Errorf("failed to bump post count: %w", err)
		}
		if ok, err := rowsAffected(result); err != nil || !ok {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return sql.ErrNoRows
		}
		r.GetLogger().Error("Failed to create post",
			zap.Error(err),
			zap.Int64("group_id", post.GroupID),
		)
		return err
	}

	r.GetLogger().Info("Post created",
		zap.Int64("post_id", post.ID),
		zap.Int64("group_id", post.GroupID),
	)
	return nil
}

// GetByID returns nil, nil when the post does not exist
func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(r.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return post, nil
}

// ListByGroup returns one page of a group's posts
func (r *postRepository) ListByGroup(ctx context.Context, params models.PostListParams) ([]*models.Post, int64, error) {
	var where whereBuilder
	where.add("group_id = ?", params.GroupID)
	if params.Keyword != "" {
		where.add(`(title ILIKE ? ESCAPE '\' OR content ILIKE ? ESCAPE '\' OR EXISTS (
			SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ? ESCAPE '\'))`, likePattern(params.Keyword))
	}
	if params.IsPublic != nil {
		where.add("is_public = ?", *params.IsPublic)
	}

	var total int64
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	orderBy, ok := postOrderings[params.SortBy]
	if !ok {
		orderBy = postOrderings[models.PostSortLatest]
	}

	query := `SELECT ` + postColumns + ` FROM posts` + where.sql() +
		` ORDER BY ` + orderBy +
		` LIMIT ` + where.next() + ` OFFSET ` + placeholder(len(where.args)+2)

	args := append(where.args, params.PageSize, params.Offset())
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, total, nil
}

// Update overwrites the editable fields
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if post.Tags == nil {
		post.Tags = pq.StringArray{}
	}
	err := r.QueryRowContext(ctx, `
		UPDATE posts
		SET nickname = $2, title = $3, content = $4, password_hash = $5, image_url = $6,
			tags = $7, location = $8, moment = $9, is_public = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING like_count, comment_count, created_at, updated_at`,
		post.ID, post.Nickname, post.Title, post.Content, post.PasswordHash, post.ImageURL,
		post.Tags, post.Location, post.Moment, post.IsPublic,
	).Scan(&post.LikeCount, &post.CommentCount, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("failed to update post %d: %w", post.ID, err)
	}
	return nil
}

// Delete removes the post and decrements the group's post counter
func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, post.ID)
		if err != nil {
			return fmt.Errorf("failed to delete post %d: %w", post.ID, err)
		}
		if ok, err := rowsAffected(result); err != nil || !ok {
			return sql.ErrNoRows
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE groups SET post_count = GREATEST(post_count - 1, 0), updated_at = NOW()
			WHERE id = $1`, post.GroupID); err != nil {
			return fmt.Errorf("failed to decrement post count: %w", err)
		}
		return nil
	})
}

// IncrementLikes atomically bumps the post like counter
func (r *postRepository) IncrementLikes(ctx context.Context, id int64) (int64, error) {
	var likes int64
	err := r.QueryRowContext(ctx, `
		UPDATE posts SET like_count = like_count + 1
		WHERE id = $1
		RETURNING like_count`, id,
	).Scan(&likes)
	if err != nil {
		if IsNotFound(err) {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("failed to like post %d: %w", id, err)
	}
	return likes, nil
}

// ===============================
// BADGE STATISTICS
// ===============================

// PostActivity implements badges.ActivitySource. Totals cover every post of
// the group; the per-day rows only cover posts created at or after since,
// bucketed by UTC calendar date.
func (r *postRepository) PostActivity(ctx context.Context, groupID int64, since time.Time) (*badges.PostActivity, error) {
	activity := &badges.PostActivity{}
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(like_count), 0), COALESCE(MAX(like_count), 0)
		FROM posts
		WHERE group_id = $1`, groupID,
	).Scan(&activity.PostCount, &activity.TotalLikes, &activity.MaxPostLikes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate posts: %w", err)
	}

	if activity.PostCount == 0 {
		return activity, nil
	}

	rows, err := r.QueryContext(ctx, `
		SELECT (created_at AT TIME ZONE 'UTC')::date AS day, MAX(created_at)
		FROM posts
		WHERE group_id = $1 AND created_at >= $2
		GROUP BY day
		ORDER BY day`, groupID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load daily activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day badges.DayActivity
		if err := rows.Scan(&day.Day, &day.LatestAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily activity: %w", err)
		}
		day.Day = day.Day.UTC()
		day.LatestAt = day.LatestAt.UTC()
		activity.Days = append(activity.Days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily activity: %w", err)
	}

	return activity, nil
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var moment sql.NullTime
	err := row.Scan(
		&p.ID, &p.GroupID, &p.Nickname, &p.Title, &p.Content, &p.PasswordHash,
		&p.ImageURL, &p.Tags, &p.Location, &moment, &p.IsPublic,
		&p.LikeCount, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if moment.Valid {
		t := moment.Time
		p.Moment = &t
	}
	if p.Tags == nil {
		p.Tags = pq.StringArray{}
	}
	return &p, nil
}
