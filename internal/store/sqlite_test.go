package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fzserpent/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestInvocationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	started := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateInvocation(ctx, core.InvocationRecord{
		InvocationID: "calc-0001",
		InputFile:    "case1.inp",
		WorkDir:      "/work/case1",
		Backend:      "/usr/bin/sss2",
		ExtraArgs:    []string{"n=4"},
		Status:       core.InvocationRunning,
		LogPath:      "/work/case1/serpent.out",
		StartedAt:    started,
	}))

	require.NoError(t, s.FinishInvocation(ctx, "calc-0001", core.InvocationSucceeded, 0, "/work/case1/case1_res.m", 1500))

	records, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "calc-0001", rec.InvocationID)
	require.Equal(t, "case1.inp", rec.InputFile)
	require.Equal(t, "/usr/bin/sss2", rec.Backend)
	require.Equal(t, []string{"n=4"}, rec.ExtraArgs)
	require.Equal(t, core.InvocationSucceeded, rec.Status)
	require.Zero(t, rec.ExitCode)
	require.Equal(t, "/work/case1/case1_res.m", rec.ResultFile)
	require.Equal(t, int64(1500), rec.DurationMs)
	require.True(t, rec.StartedAt.Equal(started))
	require.False(t, rec.FinishedAt.IsZero())
}

func TestFinishRecordsFailureExitCode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateInvocation(ctx, core.InvocationRecord{
		InvocationID: "calc-0002",
		InputFile:    "case2.inp",
		WorkDir:      "/work/case2",
		Backend:      "sss2",
		Status:       core.InvocationRunning,
		StartedAt:    time.Now(),
	}))
	require.NoError(t, s.FinishInvocation(ctx, "calc-0002", core.InvocationFailed, 3, "", 40))

	records, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, core.InvocationFailed, records[0].Status)
	require.Equal(t, 3, records[0].ExitCode)
	require.Empty(t, records[0].ResultFile)
}

func TestListRecentOrdersNewestFirstAndLimits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"calc-a", "calc-b", "calc-c"} {
		require.NoError(t, s.CreateInvocation(ctx, core.InvocationRecord{
			InvocationID: id,
			InputFile:    "case.inp",
			WorkDir:      "/work",
			Backend:      "sss2",
			Status:       core.InvocationRunning,
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "calc-c", records[0].InvocationID)
	require.Equal(t, "calc-b", records[1].InvocationID)
}

func TestInitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init(context.Background()))
}
