package cmd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrlens/internal/config"
	"github.com/MeKo-Tech/qrlens/internal/scan"
)

func TestServerConfigMapping(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.CORSOrigin = "https://app.example.com"
	cfg.Server.MaxUploadMB = 5
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.MaxDataPerDayMB = 2
	cfg.Scan.Strategies = []string{scan.StrategyInvert}

	sc := serverConfig(&cfg)
	assert.Equal(t, "https://app.example.com", sc.CORSOrigin)
	assert.Equal(t, int64(5), sc.MaxUploadMB)
	assert.Equal(t, cfg.Server.TimeoutSec, sc.TimeoutSec)
	assert.Equal(t, cfg.Server.HistorySize, sc.HistorySize)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, int64(2*1024*1024), sc.RateLimit.MaxDataPerDay)
	require.Len(t, sc.Scan.Strategies, 1)
	assert.Equal(t, scan.StrategyInvert, sc.Scan.Strategies[0].Name)
	assert.Equal(t, cfg.Generate.Size, sc.Generate.Size)
}

func TestRunServe_ShutsDownOnCancel(t *testing.T) {
	isolate(t)

	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.RateLimit.Enabled = true
	a := &app{cfg: &cfg}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServe_ListenError(t *testing.T) {
	isolate(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()

	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = busy.Addr().(*net.TCPAddr).Port
	a := &app{cfg: &cfg}

	err = runServe(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
