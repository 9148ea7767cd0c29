package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop())
	require.Error(t, err)
}

func TestStoresKeepNewestFirst(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "recobot.db")}, logx.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })

			runs, err := st.RecentRuns(ctx, 5)
			require.NoError(t, err)
			assert.Empty(t, runs)

			start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
			for i, id := range []string{"r1", "r2", "r3"} {
				require.NoError(t, st.AppendRun(ctx, RunRecord{
					RunID:      id,
					Mode:       "tabular",
					StartedAt:  start.Add(time.Duration(i) * time.Minute),
					FinishedAt: start.Add(time.Duration(i)*time.Minute + 30*time.Second),
					Groups:     2,
					OK:         1,
					Fail:       1,
					TookMS:     30000,
				}))
			}

			runs, err = st.RecentRuns(ctx, 2)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "r3", runs[0].RunID)
			assert.Equal(t, "r2", runs[1].RunID)
			assert.Equal(t, 1, runs[0].Fail)
			assert.True(t, runs[0].StartedAt.Equal(start.Add(2*time.Minute)))
		})
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)
}
