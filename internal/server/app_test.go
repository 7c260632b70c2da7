package server

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/server/config"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.DatabaseDSN = "file:" + t.Name() + "?mode=memory&cache=shared"
	c.SettleDuration = time.Millisecond
	c.NoticeDuration = time.Millisecond
	return c
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureStdout(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	orig := stdout
	stdout = buf
	t.Cleanup(func() { stdout = orig })
	return buf
}

func TestNewApp_SeedsAndWires(t *testing.T) {
	logs := captureStdout(t)
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.close)

	assert.Equal(t, 4, app.registry.Len())
	v, err := app.registry.Get(0)
	require.NoError(t, err)
	assert.True(t, v.Occupied)
	assert.Equal(t, models.Locked, v.Status)

	assert.Nil(t, app.snapshots, "snapshots stay off without a bucket")
	assert.Contains(t, logs.String(), "no secret key configured")
}

func TestNewApp_RejectsBadConfig(t *testing.T) {
	captureStdout(t)

	c := testConfig(t)
	c.HardwareDriver = "gpio"
	_, err := NewApp(context.Background(), c)
	require.Error(t, err)

	c = testConfig(t)
	c.DatabaseDriver = "mysql"
	_, err = NewApp(context.Background(), c)
	require.Error(t, err)

	c = testConfig(t)
	c.LogLevel = "chatty"
	_, err = NewApp(context.Background(), c)
	require.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	logs := captureStdout(t)
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.NoError(t, app.registry.ApplyUnlock(context.Background(), 1))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Contains(t, logs.String(), "App stopped")
}
