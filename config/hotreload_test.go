package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadManager_ReloadAppliesValidConfig(t *testing.T) {
	path := writeConfigFile(t, "engine:\n  top_k: 5\n")
	m := NewReloadManager(MustLoad(path), path, nil)

	require.NoError(t, os.WriteFile(path, []byte("engine:\n  top_k: 9\n"), 0o644))
	require.NoError(t, m.Reload())

	assert.Equal(t, 9, m.Current().Engine.TopK)

	history := m.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Applied)
}

func TestReloadManager_InvalidConfigKeepsOld(t *testing.T) {
	path := writeConfigFile(t, "engine:\n  top_k: 5\n")
	m := NewReloadManager(MustLoad(path), path, nil)

	require.NoError(t, os.WriteFile(path, []byte("engine:\n  top_k: -1\n"), 0o644))
	require.Error(t, m.Reload())

	// 旧配置保持生效
	assert.Equal(t, 5, m.Current().Engine.TopK)

	history := m.History()
	require.Len(t, history, 1)
	assert.False(t, history[0].Applied)
	assert.NotEmpty(t, history[0].Error)
}

func TestReloadManager_NotifiesSubscribers(t *testing.T) {
	path := writeConfigFile(t, "engine:\n  top_k: 5\n")
	m := NewReloadManager(MustLoad(path), path, nil)

	notified := make(chan struct{}, 1)
	var oldK, newK int
	m.Subscribe(func(old, new *Config) {
		oldK, newK = old.Engine.TopK, new.Engine.TopK
		notified <- struct{}{}
	})

	require.NoError(t, os.WriteFile(path, []byte("engine:\n  top_k: 7\n"), 0o644))
	require.NoError(t, m.Reload())

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("subscriber not notified")
	}
	assert.Equal(t, 5, oldK)
	assert.Equal(t, 7, newK)
}

func TestReloadManager_WatcherTriggersReload(t *testing.T) {
	path := writeConfigFile(t, "engine:\n  top_k: 5\n")
	m := NewReloadManager(MustLoad(path), path, nil)

	applied := make(chan struct{}, 1)
	m.Subscribe(func(old, new *Config) {
		select {
		case applied <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx,
		WithPollInterval(20*time.Millisecond),
		WithDebounce(10*time.Millisecond)))
	defer m.Stop()

	// 修改时间粒度可能是秒级，显式前移
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  top_k: 11\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case <-applied:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not trigger reload")
	}
	assert.Equal(t, 11, m.Current().Engine.TopK)
}

func TestFileWatcher_StartStop(t *testing.T) {
	path := writeConfigFile(t, "engine:\n  top_k: 5\n")
	w := NewFileWatcher(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	require.Error(t, w.Start(ctx))

	w.Stop()
	assert.False(t, w.IsRunning())
}
