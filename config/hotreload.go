// 配置热重载管理器。
//
// 文件变更后重新加载配置，校验通过才原子替换当前配置，
// 并保留有限长度的变更历史用于排查。
package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxHistoryEntries 是保留的变更历史上限。
const maxHistoryEntries = 32

// ReloadEvent 记录一次重载尝试。
type ReloadEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Applied   bool      `json:"applied"`
	Error     string    `json:"error,omitempty"`
}

// ReloadManager 管理配置热重载。
// 重载失败（读取或校验错误）保留旧配置不变。
type ReloadManager struct {
	mu sync.RWMutex

	current    *Config
	configPath string
	loader     *Loader

	watcher     *FileWatcher
	subscribers []func(old, new *Config)
	history     []ReloadEvent

	logger *zap.Logger
}

// NewReloadManager 创建热重载管理器，initial 是当前生效的配置。
func NewReloadManager(initial *Config, configPath string, logger *zap.Logger) *ReloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReloadManager{
		current:    initial,
		configPath: configPath,
		loader:     NewLoader().WithConfigPath(configPath).WithValidator((*Config).Validate),
		logger:     logger.With(zap.String("component", "config_reload")),
	}
}

// Current 返回当前生效的配置。返回值不允许被修改。
func (m *ReloadManager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe 注册配置变更通知，回调收到旧配置与新配置。
func (m *ReloadManager) Subscribe(fn func(old, new *Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// History 返回重载历史的副本，最近的在末尾。
func (m *ReloadManager) History() []ReloadEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ReloadEvent, len(m.history))
	copy(out, m.history)
	return out
}

// Start 开始监听配置文件并在变更时自动重载。
func (m *ReloadManager) Start(ctx context.Context, opts ...WatcherOption) error {
	m.mu.Lock()
	if m.watcher != nil {
		m.mu.Unlock()
		return fmt.Errorf("reload manager already started")
	}
	watcher := NewFileWatcher(m.configPath, opts...)
	m.watcher = watcher
	m.mu.Unlock()

	watcher.OnChange(func(string) {
		if err := m.Reload(); err != nil {
			m.logger.Warn("config reload rejected", zap.Error(err))
		}
	})
	return watcher.Start(ctx)
}

// Stop 停止自动重载。
func (m *ReloadManager) Stop() {
	m.mu.Lock()
	watcher := m.watcher
	m.mu.Unlock()
	if watcher != nil {
		watcher.Stop()
	}
}

// Reload 立即从文件重载一次配置。
// 新配置通过校验后替换当前配置并通知订阅者；
// 失败时当前配置保持不变，事件仍记入历史。
func (m *ReloadManager) Reload() error {
	event := ReloadEvent{Timestamp: time.Now(), Path: m.configPath}

	next, err := m.loader.Load()
	if err != nil {
		event.Error = err.Error()
		m.appendHistory(event)
		return err
	}

	m.mu.Lock()
	old := m.current
	m.current = next
	subscribers := make([]func(old, new *Config), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	event.Applied = true
	m.appendHistory(event)

	m.logger.Info("config reloaded", zap.String("path", m.configPath))
	for _, fn := range subscribers {
		fn(old, next)
	}
	return nil
}

func (m *ReloadManager) appendHistory(event ReloadEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, event)
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[len(m.history)-maxHistoryEntries:]
	}
}
