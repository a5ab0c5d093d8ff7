package filter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/feedflow/pkg/domain"
	"github.com/umputun/feedflow/pkg/store"
)

var fixedNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.New(context.Background(), store.Config{DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, store.NoSeed{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, func() time.Time { return fixedNow })
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate keyword ignoring case", func(t *testing.T) {
		svc := setupTestService(t)
		f, err := svc.Create(ctx, domain.FilterInput{Keyword: "spam", IsActive: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), f.ID)
		assert.Zero(t, f.BlockedCount)
		assert.Equal(t, fixedNow, f.CreatedAt)

		_, err = svc.Create(ctx, domain.FilterInput{Keyword: "SPAM"})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.ErrorIs(t, err, domain.ErrDuplicateKeyword)

		filters, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, filters, 1)
	})

	t.Run("keyword is trimmed", func(t *testing.T) {
		svc := setupTestService(t)
		f, err := svc.Create(ctx, domain.FilterInput{Keyword: "  crypto  "})
		require.NoError(t, err)
		assert.Equal(t, "crypto", f.Keyword)

		_, err = svc.Create(ctx, domain.FilterInput{Keyword: "Crypto"})
		assert.ErrorIs(t, err, domain.ErrDuplicateKeyword)
	})

	t.Run("empty keyword", func(t *testing.T) {
		svc := setupTestService(t)
		_, err := svc.Create(ctx, domain.FilterInput{Keyword: " \t"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("new filters go first", func(t *testing.T) {
		svc := setupTestService(t)
		for _, kw := range []string{"a", "b", "c"} {
			_, err := svc.Create(ctx, domain.FilterInput{Keyword: kw})
			require.NoError(t, err)
		}
		filters, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, filters, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{filters[0].Keyword, filters[1].Keyword, filters[2].Keyword})
		assert.Equal(t, int64(3), filters[0].ID)
	})
}

func TestService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	spam, err := svc.Create(ctx, domain.FilterInput{Keyword: "spam", IsActive: true})
	require.NoError(t, err)
	ads, err := svc.Create(ctx, domain.FilterInput{Keyword: "ads", IsActive: true})
	require.NoError(t, err)

	t.Run("rename to existing keyword", func(t *testing.T) {
		kw := "Spam"
		_, err := svc.Update(ctx, ads.ID, domain.FilterUpdate{Keyword: &kw})
		assert.ErrorIs(t, err, domain.ErrDuplicateKeyword)
	})

	t.Run("same keyword with other case on itself", func(t *testing.T) {
		kw := "SPAM"
		f, err := svc.Update(ctx, spam.ID, domain.FilterUpdate{Keyword: &kw})
		require.NoError(t, err)
		assert.Equal(t, "SPAM", f.Keyword)
	})

	t.Run("deactivate", func(t *testing.T) {
		active := false
		f, err := svc.Update(ctx, ads.ID, domain.FilterUpdate{IsActive: &active})
		require.NoError(t, err)
		assert.False(t, f.IsActive)
		assert.Equal(t, "ads", f.Keyword)
	})

	t.Run("unknown", func(t *testing.T) {
		active := true
		_, err := svc.Update(ctx, 99, domain.FilterUpdate{IsActive: &active})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, 99), domain.ErrNotFound)
		_, err = svc.Get(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, ads.ID))
		filters, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, filters, 1)
		assert.Equal(t, spam.ID, filters[0].ID)
	})
}

func TestService_MatchAndRecord(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)
	_, err := svc.Create(ctx, domain.FilterInput{Keyword: "casino", IsActive: false})
	require.NoError(t, err)
	sponsored, err := svc.Create(ctx, domain.FilterInput{Keyword: "Sponsored", IsActive: true})
	require.NoError(t, err)

	f, err := svc.Match(ctx, "Weekly news", "This post is SPONSORED content")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, sponsored.ID, f.ID)

	f, err = svc.Match(ctx, "online casino bonus")
	require.NoError(t, err)
	assert.Nil(t, f, "inactive filters never match")

	require.NoError(t, svc.RecordBlocked(ctx, sponsored.ID))
	require.NoError(t, svc.RecordBlocked(ctx, sponsored.ID))
	got, err := svc.Get(ctx, sponsored.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.BlockedCount)

	assert.ErrorIs(t, svc.RecordBlocked(ctx, 42), domain.ErrNotFound)
}

func TestService_Test(t *testing.T) {
	svc := setupTestService(t)

	res := svc.Test("Bitcoin", "Why bitcoin fell today")
	assert.True(t, res.Matches)
	assert.Equal(t, "Bitcoin", res.Keyword)
	assert.Equal(t, "Why bitcoin fell today...", res.TestText)

	long := strings.Repeat("x", 150)
	res = svc.Test("y", long)
	assert.False(t, res.Matches)
	assert.Equal(t, strings.Repeat("x", 100)+"...", res.TestText)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FilterStats{}, st)

	for _, kw := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, domain.FilterInput{Keyword: kw, IsActive: kw != "c"})
		require.NoError(t, err)
	}
	for _, upd := range []struct {
		id    int64
		count int
	}{{1, 3}, {2, 1}, {3, 1}} {
		cnt := upd.count
		_, err := svc.Update(ctx, upd.id, domain.FilterUpdate{BlockedCount: &cnt})
		require.NoError(t, err)
	}

	st, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FilterStats{TotalFilters: 3, ActiveFilters: 2, TotalBlocked: 5, AverageBlocked: 2}, st)
}
