package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)

	val, ok, err := repo.Get(context.Background(), "antigravity_api_keys")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", val)
}

func TestKVRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "antigravity_api_keys", `[{"id":"a"}]`))

	val, ok, err := repo.Get(ctx, "antigravity_api_keys")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, val)
}

func TestKVRepo_SetOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", "old"))
	require.NoError(t, repo.Set(ctx, "k", "new"))

	val, ok, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", val)
}

func TestKVRepo_EmptyValueIsPresent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", ""))

	_, ok, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok, "an empty stored value is still a stored value")
}

func TestKVRepo_KeysAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", "1"))
	require.NoError(t, repo.Set(ctx, "b", "2"))

	a, _, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	b, _, err := repo.Get(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestKVRepo_UpdateMissingKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)
	ctx := context.Background()

	err := repo.Update(ctx, "k", func(current string, ok bool) (string, error) {
		assert.False(t, ok)
		assert.Equal(t, "", current)
		return "first", nil
	})
	require.NoError(t, err)

	val, ok, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", val)
}

func TestKVRepo_UpdateErrorWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKVRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", "old"))

	boom := errors.New("boom")
	err := repo.Update(ctx, "k", func(current string, _ bool) (string, error) {
		assert.Equal(t, "old", current)
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	val, _, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "old", val)
}

// Two DB handles on one file stand in for the server and keyctl processes.
func TestKVRepo_UpdateAcrossConnectionsLosesNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "antigravity.db")

	var repos []*KVRepo
	for range 2 {
		db, err := NewDB(ctx, path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		_, err = RunMigrations(db.Writer)
		require.NoError(t, err)
		repos = append(repos, NewKVRepo(db))
	}

	const perRepo = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*perRepo)
	for _, repo := range repos {
		for range perRepo {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Update(ctx, "counter", func(current string, ok bool) (string, error) {
					n := 0
					if ok {
						var err error
						if n, err = strconv.Atoi(current); err != nil {
							return "", err
						}
					}
					return strconv.Itoa(n + 1), nil
				})
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	val, ok, err := repos[0].Get(ctx, "counter")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, strconv.Itoa(2*perRepo), val)
}
