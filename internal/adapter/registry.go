package adapter

import (
	"sync"

	"github.com/golang-chatmsg-core/internal/model"
)

// Factory 适配器工厂函数
type Factory func(env *Env) Adapter

// regEntry 注册表条目
type regEntry struct {
	name    string
	match   func(site model.Site) bool
	factory Factory
}

var (
	regMu          sync.RWMutex
	entries        []regEntry
	genericFactory Factory
)

// Register 注册专属适配器，注册顺序即匹配顺序
func Register(name string, match func(site model.Site) bool, factory Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	entries = append(entries, regEntry{name: name, match: match, factory: factory})
}

// RegisterGeneric 注册通用兜底适配器，永远排在所有专属适配器之后
func RegisterGeneric(factory Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	genericFactory = factory
}

// Selector 一次调度运行内的适配器分发器
// 被专属适配器认领过的站点名记入 claimed，通用适配器拒绝匹配它们
type Selector struct {
	claimed map[string]bool
}

// NewSelector 创建分发器
func NewSelector() *Selector {
	return &Selector{claimed: make(map[string]bool)}
}

// ForSite 返回第一个接受该站点的适配器，专属优先、通用兜底
func (s *Selector) ForSite(env *Env) Adapter {
	regMu.RLock()
	defer regMu.RUnlock()

	for _, e := range entries {
		if e.match(env.Site) {
			s.claimed[env.Site.Name] = true
			return e.factory(env)
		}
	}
	if genericFactory != nil && !s.claimed[env.Site.Name] {
		return genericFactory(env)
	}
	return nil
}

// RegisteredNames 已注册的专属适配器名称，按匹配顺序
func RegisteredNames() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.name)
	}
	return names
}
