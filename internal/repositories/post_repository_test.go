package repositories

import (
	"context"
	"testing"
	"time"

	"memorybox/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostRepository_CreateBumpsGroupCounter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db, zap.NewNop())
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "like_count", "comment_count", "created_at", "updated_at"}).
			AddRow(int64(21), int64(0), 0, now, now))
	mock.ExpectExec(`UPDATE groups SET post_count = post_count \+ 1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	post := &models.Post{GroupID: 3, Nickname: "kim", Title: "trip", Content: "sea", PasswordHash: "h"}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, int64(21), post.ID)
	assert.NotNil(t, post.Tags)
}

func TestPostRepository_CreateRollsBackWhenGroupMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db, zap.NewNop())
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "like_count", "comment_count", "created_at", "updated_at"}).
			AddRow(int64(21), int64(0), 0, now, now))
	mock.ExpectExec(`UPDATE groups SET post_count`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{GroupID: 3})
	assert.True(t, IsNotFound(err))
}

func TestPostRepository_PostActivity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db, zap.NewNop())
	since := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	d1 := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(like_count\), 0\), COALESCE\(MAX\(like_count\), 0\)`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum", "max"}).AddRow(25, int64(50), int64(4)))
	mock.ExpectQuery(`\(created_at AT TIME ZONE 'UTC'\)::date AS day, MAX\(created_at\)`).
		WithArgs(int64(3), since).
		WillReturnRows(sqlmock.NewRows([]string{"day", "max"}).
			AddRow(d1, d1.Add(5*time.Hour)).
			AddRow(d2, d2.Add(9*time.Hour)))

	activity, err := repo.PostActivity(context.Background(), 3, since)
	require.NoError(t, err)
	assert.Equal(t, 25, activity.PostCount)
	assert.EqualValues(t, 50, activity.TotalLikes)
	assert.EqualValues(t, 4, activity.MaxPostLikes)
	require.Len(t, activity.Days, 2)
	assert.Equal(t, d2.Add(9*time.Hour), activity.Days[1].LatestAt)
}

func TestPostRepository_PostActivitySkipsDaysWithoutPosts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum", "max"}).AddRow(0, int64(0), int64(0)))

	activity, err := repo.PostActivity(context.Background(), 3, time.Now())
	require.NoError(t, err)
	assert.Zero(t, activity.PostCount)
	assert.Empty(t, activity.Days)
}

func TestPostRepository_ListByGroupKeywordSearchesTags(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db, zap.NewNop())
	now := time.Now().UTC()
	cols := []string{
		"id", "group_id", "nickname", "title", "content", "password_hash", "image_url", "tags",
		"location", "moment", "is_public", "like_count", "comment_count", "created_at", "updated_at",
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts WHERE group_id = \$1 AND \(title ILIKE \$2`).
		WithArgs(int64(3), "%sea%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY like_count DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(int64(3), "%sea%", 10, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			int64(1), int64(3), "kim", "trip", "sea", "h", "", "{sea,summer}",
			"busan", nil, true, int64(7), 2, now, now,
		))

	posts, total, err := repo.ListByGroup(context.Background(), models.PostListParams{
		PaginationParams: models.PaginationParams{Page: 1, PageSize: 10},
		GroupID:          3,
		SortBy:           models.PostSortMostLiked,
		Keyword:          "sea",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, pq.StringArray{"sea", "summer"}, posts[0].Tags)
	assert.Nil(t, posts[0].Moment)
}
