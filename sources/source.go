package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/medgraph/types"
)

// RetrieveClient 是所有知识源实现与装饰器共享的检索契约，
// 与 retrieval.SourceClient 一致。在本包内声明以避免
// 装饰器对 retrieval 包的反向依赖。
type RetrieveClient interface {
	Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error)
}

// Registry 按 SourceID 管理来源客户端及其描述符。
// 并发安全；注册同名来源会覆盖旧条目。
type Registry struct {
	mu      sync.RWMutex
	clients map[types.SourceID]RetrieveClient
	descs   map[types.SourceID]types.SourceDescriptor
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[types.SourceID]RetrieveClient),
		descs:   make(map[types.SourceID]types.SourceDescriptor),
	}
}

// Register 注册一个来源。
func (r *Registry) Register(desc types.SourceDescriptor, client RetrieveClient) error {
	if desc.SourceID == "" {
		return fmt.Errorf("source id must not be empty")
	}
	if client == nil {
		return fmt.Errorf("client must not be nil for source %q", desc.SourceID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[desc.SourceID] = client
	r.descs[desc.SourceID] = desc
	return nil
}

// Get 返回指定来源的客户端。
func (r *Registry) Get(id types.SourceID) (RetrieveClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Descriptors 返回全部已注册来源的描述符，按 SourceID 排序。
func (r *Registry) Descriptors() []types.SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.SourceDescriptor, 0, len(r.descs))
	for _, d := range r.descs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Clients 返回 SourceID → 客户端的副本，可直接交给派发器。
func (r *Registry) Clients() map[types.SourceID]RetrieveClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[types.SourceID]RetrieveClient, len(r.clients))
	for id, c := range r.clients {
		out[id] = c
	}
	return out
}
