package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/model"
)

func newTestRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo, err := NewRedisRepository(context.Background(), config.RedisConfig{DataAddress: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, mr
}

func officialResults(id string, voted int) *model.ElectionResults {
	return &model.ElectionResults{
		ElectionID: id,
		Status:     model.StatusCompleted,
		IsOfficial: true,
		Turnout:    model.Turnout{TotalVoters: 10, VotedCount: voted, NotVotedCount: 10 - voted, Percentage: "50"},
	}
}

func TestOfficialResultsCache(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRedisRepo(t)

	_, ok, err := repo.GetOfficialResults(ctx, "e1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.SetOfficialResults(ctx, officialResults("e1", 5)))
	require.True(t, mr.Exists(OfficialResultsKey+"e1"))

	// 已存在时不覆盖
	require.NoError(t, repo.SetOfficialResults(ctx, officialResults("e1", 7)))

	got, ok, err := repo.GetOfficialResults(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, got.Turnout.VotedCount)
	require.Zero(t, mr.TTL(OfficialResultsKey+"e1"))
}

func TestSetOfficialResultsRejectsLiveResults(t *testing.T) {
	repo, mr := newTestRedisRepo(t)

	err := repo.SetOfficialResults(context.Background(), &model.ElectionResults{ElectionID: "e1", Status: model.StatusOngoing})
	require.Error(t, err)
	require.False(t, mr.Exists(OfficialResultsKey+"e1"))
}

func TestSetOfficialResultsAfterScriptFlush(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRedisRepo(t)
	require.NoError(t, repo.client.ScriptFlush(ctx).Err())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.SetOfficialResults(ctx, officialResults("e1", i))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	_, ok, err := repo.GetOfficialResults(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewRedisRepositoryUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisRepository(context.Background(), config.RedisConfig{DataAddress: addr})
	require.Error(t, err)
}
