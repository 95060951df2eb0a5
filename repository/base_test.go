/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/dao/database"
	"github.com/tomoncle/dao/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`
	types.Model
	Title string `bun:"title,notnull"`
}

type logEntry struct {
	level  string
	msg    string
	fields []interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg, fields})
}

func (l *recordingLogger) SetLevel(database.LogLevel) {}
func (l *recordingLogger) Debug(msg string, fields ...interface{}) { l.add("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...interface{})  { l.add("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...interface{})  { l.add("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...interface{}) { l.add("error", msg, fields) }

func (l *recordingLogger) warnings() []logEntry {
	return l.at("warn")
}

func (l *recordingLogger) at(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*article)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func newTestRepository(t *testing.T, opts ...Option) (Repository[article], *bun.DB) {
	t.Helper()
	db := newTestDB(t)
	opts = append([]Option{WithLogger(database.NopLogger())}, opts...)
	return NewRepository[article](database.NewSessionProvider(db), opts...), db
}

var baseTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// seedArticles inserts n articles created one minute apart, in scrambled
// insertion order, and returns them ordered by creation time.
func seedArticles(t *testing.T, repo Repository[article], n int) []*article {
	t.Helper()
	ctx := context.Background()
	ordered := make([]*article, n)
	for i := range ordered {
		ordered[i] = &article{Title: fmt.Sprintf("a%d", i)}
		ordered[i].CreatedDate = baseTime.Add(time.Duration(i) * time.Minute)
	}
	for i := n - 1; i >= 0; i -= 2 {
		_, err := repo.Create(ctx, ordered[i])
		require.NoError(t, err)
	}
	for i := n - 2; i >= 0; i -= 2 {
		_, err := repo.Create(ctx, ordered[i])
		require.NoError(t, err)
	}
	return ordered
}

func titles(items []*article) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.Title)
	}
	return out
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	a := &article{Title: "first"}
	created, err := repo.Create(ctx, a)
	require.NoError(t, err)
	assert.Same(t, a, created)
	assert.NotZero(t, a.ID)
	assert.False(t, a.CreatedDate.IsZero())

	found, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID, found.ID)
	assert.Equal(t, "first", found.Title)
	assert.True(t, a.CreatedDate.Equal(found.CreatedDate))
}

func TestRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepository(t)

	found, err := repo.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_CreateNil(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilEntity)
}

func TestRepository_Update(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	a := &article{Title: "draft"}
	_, err := repo.Create(ctx, a)
	require.NoError(t, err)
	created := a.CreatedDate

	a.Title = "published"
	updated, err := repo.Update(ctx, a)
	require.NoError(t, err)
	assert.Same(t, a, updated)

	found, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "published", found.Title)
	assert.True(t, created.Equal(found.CreatedDate))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_UpdateInsertsNewEntities(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	fresh := &article{Title: "fresh"}
	_, err := repo.Update(ctx, fresh)
	require.NoError(t, err)
	assert.NotZero(t, fresh.ID)

	withID := &article{Title: "explicit"}
	withID.ID = 42
	_, err = repo.Update(ctx, withID)
	require.NoError(t, err)

	found, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "explicit", found.Title)
}

func TestRepository_Refresh(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	a := &article{Title: "stored"}
	_, err := repo.Create(ctx, a)
	require.NoError(t, err)

	a.Title = "unsaved change"
	refreshed, err := repo.Refresh(ctx, a)
	require.NoError(t, err)
	assert.Same(t, a, refreshed)
	assert.Equal(t, "stored", a.Title)
}

func TestRepository_RefreshRequiresPersistedEntity(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Refresh(ctx, &article{Title: "transient"})
	assert.ErrorIs(t, err, ErrNotPersisted)

	gone := &article{Title: "gone"}
	gone.ID = 999
	_, err = repo.Refresh(ctx, gone)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRepository_Delete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	a := &article{Title: "doomed"}
	_, err := repo.Create(ctx, a)
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = repo.Delete(ctx, &article{})
	assert.ErrorIs(t, err, ErrNotPersisted)
	_, err = repo.Delete(ctx, nil)
	assert.ErrorIs(t, err, ErrNilEntity)
}

func TestRepository_DeleteByID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	ok, err := repo.DeleteByID(ctx, 12345)
	require.NoError(t, err)
	assert.True(t, ok)

	a := &article{Title: "by id"}
	_, err = repo.Create(ctx, a)
	require.NoError(t, err)

	ok, err = repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	ok, err = repo.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_LockInTransaction(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	a := &article{Title: "locked"}
	_, err := repo.Create(ctx, a)
	require.NoError(t, err)

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txCtx := database.ContextWithTx(ctx, tx)

		ok, err := repo.Lock(txCtx, a)
		if err != nil {
			return err
		}
		assert.True(t, ok)

		a.Title = "changed under lock"
		_, err = repo.Update(txCtx, a)
		return err
	})
	require.NoError(t, err)

	found, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "changed under lock", found.Title)
}

func TestRepository_LockRequiresPersistedEntity(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	ok, err := repo.Lock(ctx, &article{Title: "transient"})
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.False(t, ok)

	missing := &article{}
	missing.ID = 77
	ok, err = repo.Lock(ctx, missing)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, ok)
}

func TestRepository_TransactionRollback(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	errAbort := errors.New("abort")

	a := &article{Title: "rolled back"}
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := repo.Create(database.ContextWithTx(ctx, tx), a); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	require.NotZero(t, a.ID)

	found, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_List(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedArticles(t, repo, 3)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a0", "a1", "a2"}, titles(all))
}

func TestRepository_ListPageLastPagePolicy(t *testing.T) {
	repo, _ := newTestRepository(t, WithOffsetPolicy(types.OffsetPolicyLastPage))
	ctx := context.Background()
	seedArticles(t, repo, 5)

	tests := []struct {
		page  int
		limit int
		want  []string
	}{
		{0, 2, []string{"a0", "a1"}},
		{1, 2, []string{"a2", "a3"}},
		{2, 2, []string{"a4"}},
		{10, 2, []string{"a4"}},
		{0, 10, []string{"a0", "a1", "a2", "a3", "a4"}},
		{1, 5, []string{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tt.page, tt.limit), func(t *testing.T) {
			items, err := repo.ListPage(ctx, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(items))
		})
	}
}

func TestRepository_ListPageLegacyPolicy(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	seedArticles(t, repo, 5)

	for _, page := range []int{0, 1, 2, 10} {
		items, err := repo.ListPage(ctx, page, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a0", "a1"}, titles(items), "page %d", page)
	}
}

func TestRepository_PageMetadata(t *testing.T) {
	logger := &recordingLogger{}
	repo, _ := newTestRepository(t,
		WithOffsetPolicy(types.OffsetPolicyLastPage),
		WithLogger(logger),
	)
	ctx := context.Background()
	seedArticles(t, repo, 5)

	inRange, err := repo.Page(ctx, types.NewPageRequest(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, inRange.Total)
	assert.Equal(t, 2, inRange.Offset)
	assert.False(t, inRange.Adjusted)
	assert.Equal(t, []string{"a2", "a3"}, titles(inRange.Items))
	assert.Empty(t, logger.warnings())

	outOfRange, err := repo.Page(ctx, types.NewPageRequest(10, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, outOfRange.Offset)
	assert.True(t, outOfRange.Adjusted)
	assert.Equal(t, 10, outOfRange.Page)
	assert.Equal(t, []string{"a4"}, titles(outOfRange.Items))

	warnings := logger.warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].msg, "past the end")
}

func TestRepository_PageWithOverflowingPageNumber(t *testing.T) {
	repo, _ := newTestRepository(t, WithOffsetPolicy(types.OffsetPolicyLastPage))
	ctx := context.Background()
	seedArticles(t, repo, 5)

	p, err := repo.Page(ctx, types.NewPageRequest(math.MaxInt/2+1, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Offset)
	assert.True(t, p.Adjusted)
	assert.Equal(t, []string{"a4"}, titles(p.Items))
}

func TestRepository_FailuresLoggedAtDebug(t *testing.T) {
	logger := &recordingLogger{}
	repo, _ := newTestRepository(t, WithLogger(logger))
	ctx := context.Background()

	missing := &article{}
	missing.ID = 77
	_, err := repo.Refresh(ctx, missing)
	require.ErrorIs(t, err, sql.ErrNoRows)

	assert.Empty(t, logger.warnings())
	debug := logger.at("debug")
	require.Len(t, debug, 1)
	assert.Equal(t, "Repository operation failed", debug[0].msg)
	assert.Contains(t, debug[0].fields, "refresh")
}

func TestRepository_PageRejectsInvalidRequests(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.ListPage(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = repo.ListPage(ctx, 0, -3)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = repo.ListPage(ctx, -1, 2)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = repo.Page(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestRepository_PageOnEmptyTable(t *testing.T) {
	repo, _ := newTestRepository(t, WithOffsetPolicy(types.OffsetPolicyLastPage))

	p, err := repo.Page(context.Background(), types.NewPageRequest(3, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 0, p.Offset)
	assert.Empty(t, p.Items)
}

func TestRepository_NoSession(t *testing.T) {
	provider := database.SessionProviderFunc(func(context.Context) bun.IDB { return nil })
	repo := NewRepository[article](provider, WithLogger(database.NopLogger()))
	ctx := context.Background()

	_, err := repo.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = repo.ListPage(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}
