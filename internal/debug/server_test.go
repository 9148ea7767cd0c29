package debug

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtsup "recobot/internal/runtime/supervisor"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

func openStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "recobot")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestHealthz(t *testing.T) {
	s := New(Deps{
		Busy:       func() bool { return true },
		Supervisor: func() []rtsup.Stats { return []rtsup.Stats{{Name: "scheduler", Active: 1}} },
	}, logx.Nop())
	ts := httptest.NewServer(s.Handler(Config{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.RunActive)
	require.Len(t, h.Goroutines, 1)
}

func TestRunsLast(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.AppendRun(context.Background(), storage.RunRecord{RunID: "r1", Mode: "tabular", Groups: 3, OK: 2, Fail: 1}))
	require.NoError(t, st.AppendRun(context.Background(), storage.RunRecord{RunID: "r2", Mode: "broadcast", Groups: 1, OK: 1}))

	ts := httptest.NewServer(New(Deps{Store: st}, logx.Nop()).Handler(Config{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/runs/last")
	require.NoError(t, err)
	defer resp.Body.Close()
	var runs []storage.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].RunID)

	resp2, err := http.Get(ts.URL + "/runs/last?n=0")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestRunsWithoutStore(t *testing.T) {
	ts := httptest.NewServer(New(Deps{}, logx.Nop()).Handler(Config{}))
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/runs/last")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTokenAuth(t *testing.T) {
	ts := httptest.NewServer(New(Deps{}, logx.Nop()).Handler(Config{Token: "s3cret"}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/debug/pprof/?token=s3cret")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplyStartStop(t *testing.T) {
	s := New(Deps{}, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Apply(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"}))
	addr := s.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Apply(ctx, Config{Enabled: false}))
	assert.Empty(t, s.Addr())
}

func TestApplyRefusesPublicWithoutToken(t *testing.T) {
	s := New(Deps{}, logx.Nop())
	err := s.Apply(context.Background(), Config{Enabled: true, Addr: "0.0.0.0:0"})
	require.Error(t, err)
	assert.Empty(t, s.Addr())
}
