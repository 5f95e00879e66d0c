// 配置文件变更监听器。
//
// 轮询文件修改时间并做防抖，不依赖平台文件系统事件。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileWatcher 监听单个配置文件的变更。
type FileWatcher struct {
	mu sync.Mutex

	path         string
	pollInterval time.Duration
	debounce     time.Duration

	running  bool
	stopChan chan struct{}

	callbacks []func(path string)
	logger    *zap.Logger

	lastModTime time.Time
}

// WatcherOption 配置 FileWatcher。
type WatcherOption func(*FileWatcher)

// WithPollInterval 设置轮询间隔。
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.pollInterval = d }
}

// WithDebounce 设置变更事件的防抖窗口。
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *FileWatcher) { w.debounce = d }
}

// WithWatcherLogger 设置记录器。
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) { w.logger = logger }
}

// NewFileWatcher 创建文件监听器。文件不存在时仍然可以监听，
// 等它被创建后触发首次回调。
func NewFileWatcher(path string, opts ...WatcherOption) *FileWatcher {
	w := &FileWatcher{
		path:         path,
		pollInterval: time.Second,
		debounce:     100 * time.Millisecond,
		stopChan:     make(chan struct{}),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"))
	return w
}

// OnChange 注册变更回调。
func (w *FileWatcher) OnChange(callback func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 开始监听。重复启动返回错误。
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	if info, err := os.Stat(w.path); err == nil {
		w.lastModTime = info.ModTime()
	}
	w.mu.Unlock()

	go w.pollLoop(ctx)

	w.logger.Info("config watcher started",
		zap.String("path", w.path),
		zap.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop 停止监听。
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	w.running = false
	w.logger.Info("config watcher stopped")
}

// IsRunning 返回监听器是否在运行。
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *FileWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if !w.changed() {
				continue
			}
			// 防抖：快速连续写入只触发最后一次
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.notify)
		}
	}
}

// changed 检查文件修改时间是否前进。
func (w *FileWatcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if info.ModTime().After(w.lastModTime) {
		w.lastModTime = info.ModTime()
		return true
	}
	return false
}

func (w *FileWatcher) notify() {
	w.mu.Lock()
	callbacks := make([]func(string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Debug("config file changed", zap.String("path", w.path))
	for _, cb := range callbacks {
		cb(w.path)
	}
}
