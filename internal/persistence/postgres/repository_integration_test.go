//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("moodle"),
		postgrescontainer.WithUsername("moodle"),
		postgrescontainer.WithPassword("moodle"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestRepositoryReplaceKeepsOrderPerInstance(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupPool(t), DefaultTable)

	first := []domain.ParameterRow{
		{EventType: domain.EventTypeJoin, Name: "firstname", Value: "%user.firstname%"},
		{EventType: domain.EventTypeBoth, Name: "coursename", Value: "%courseinfo.fullname%"},
		{EventType: domain.EventTypeCreate, Name: "welcome", Value: "Hello"},
	}
	require.NoError(t, repo.Replace(ctx, 1, first))
	require.NoError(t, repo.Replace(ctx, 2, []domain.ParameterRow{{EventType: domain.EventTypeJoin, Name: "other", Value: "x"}}))

	stored, err := repo.ListByInstance(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, row := range stored {
		require.Equal(t, first[i].Name, row.Name)
		require.Equal(t, first[i].Value, row.Value)
		require.Equal(t, first[i].EventType, row.EventType)
		require.Equal(t, int64(1), row.InstanceID)
		require.NotZero(t, row.ID)
	}

	require.NoError(t, repo.Replace(ctx, 1, first[:1]))
	stored, err = repo.ListByInstance(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.NoError(t, repo.DeleteByInstance(ctx, 1))
	stored, err = repo.ListByInstance(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, stored)

	other, err := repo.ListByInstance(ctx, 2)
	require.NoError(t, err)
	require.Len(t, other, 1, "rows of other instances must survive")
}

func TestHostAccessorReadsProjections(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t)

	_, err := pool.Exec(ctx, `INSERT INTO course_categories (id, name) VALUES (1, 'Science')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO course (id, category, fullname, shortname, visible) VALUES (4, 1, 'BBBCourse FULL', 'BBBC', TRUE)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO bigbluebuttonbn (id, course, name) VALUES (21, 4, 'Weekly sync')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO course_modules (id, course, instance, modname) VALUES (30, 4, 21, 'bigbluebuttonbn')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO "user" (id, firstname, lastname) VALUES (3, 'BBB User FN', 'BBB LN')`)
	require.NoError(t, err)

	accessor := NewHostAccessor(pool, "http://moodle.test")

	instance, err := accessor.InstanceByID(ctx, 21)
	require.NoError(t, err)
	require.Equal(t, host.Instance{ID: 21, CourseID: 4, CourseModuleID: 30, Name: "Weekly sync"}, *instance)

	course, err := accessor.CourseSummary(ctx, *instance)
	require.NoError(t, err)
	require.Equal(t, "BBBCourse FULL", course.FullName)
	require.Equal(t, "Science", course.CourseCategory)

	activity, err := accessor.ActivitySummary(ctx, *instance)
	require.NoError(t, err)
	require.Equal(t, "http://moodle.test/mod/bigbluebuttonbn/view.php?id=30", activity.URL)

	user, err := accessor.UserProfile(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, "BBB User FN", user.FirstName)

	missingUser, err := accessor.UserProfile(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, missingUser)

	_, err = accessor.InstanceByID(ctx, 99)
	require.ErrorIs(t, err, host.ErrInstanceNotFound)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
