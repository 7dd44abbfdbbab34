package secmap

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Priority 是重载监听器的优先级，数值越小越先调用。
type Priority int

const (
	PriorityHighest Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityLowest

	priorityCount = int(PriorityLowest) + 1
)

var priorityNames = [priorityCount]string{"HIGHEST", "HIGH", "MEDIUM", "LOW", "LOWEST"}

func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Priority(%d)", int(p))
	}

	return priorityNames[p]
}

// Valid 判断是否为五个优先级之一。
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

// EnumValues 实现 [Enum]，配置中可直接写 "high"、"LOW" 等。
func (Priority) EnumValues() []any {
	out := make([]any, 0, priorityCount)
	for p := PriorityHighest; p <= PriorityLowest; p++ {
		out = append(out, p)
	}

	return out
}

// Listener 在重载成功后被调用，返回错误会中止其后的通知。
type Listener func() error

// Source 为每次重载提供新的绑定会话（通常先重新读取文件）。
type Source func() (*Mapper, error)

// Keeper 持有一棵已绑定的根 section，负责重载并按优先级通知监听器。
//
// Root 可在任意 goroutine 读取；Reload 之间需由调用方串行化。
type Keeper[T any] struct {
	source  Source
	root    string
	current atomic.Pointer[T]
	logger  *slog.Logger

	mu        sync.Mutex
	listeners [priorityCount][]Listener
}

// NewKeeper 创建 Keeper 并立即完成第一次绑定。
func NewKeeper[T any](source Source, root string) (*Keeper[T], error) {
	k := &Keeper[T]{source: source, root: root, logger: slog.Default()}

	next, err := k.bind()
	if err != nil {
		return nil, err
	}
	k.current.Store(next)

	return k, nil
}

// SetLogger 设置重载日志输出。
func (k *Keeper[T]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		k.logger = logger
	}
}

// Root 返回当前的根 section，调用方不应修改它。
func (k *Keeper[T]) Root() *T {
	return k.current.Load()
}

// OnReload 以 [PriorityMedium] 注册监听器。
func (k *Keeper[T]) OnReload(l Listener) {
	k.OnReloadPriority(PriorityMedium, l)
}

// OnReloadPriority 以指定优先级注册监听器，同一优先级内按注册顺序调用。
func (k *Keeper[T]) OnReloadPriority(p Priority, l Listener) {
	if !p.Valid() {
		panic(fmt.Sprintf("secmap: invalid listener priority %d", int(p)))
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.listeners[p] = append(k.listeners[p], l)
}

// Reload 重新绑定根 section。
//
// 绑定失败时保留旧的根并返回错误，不通知监听器；成功后先替换根，再按优先级依次通知。
// 监听器返回错误时停止通知并返回该错误，新的根不会回滚。
func (k *Keeper[T]) Reload() error {
	next, err := k.bind()
	if err != nil {
		k.logger.Warn("Reload failed, keeping previous configuration", "root", k.root, "error", err)

		return err
	}
	k.current.Store(next)

	k.mu.Lock()
	var tiers [priorityCount][]Listener
	for i := range k.listeners {
		tiers[i] = append([]Listener(nil), k.listeners[i]...)
	}
	k.mu.Unlock()

	for p, tier := range tiers {
		for i, l := range tier {
			if err := l(); err != nil {
				return fmt.Errorf("reload listener %s#%d: %w", Priority(p), i, err)
			}
		}
	}

	k.logger.Debug("Reloaded configuration", "root", k.root)

	return nil
}

func (k *Keeper[T]) bind() (*T, error) {
	m, err := k.source()
	if err != nil {
		return nil, err
	}

	root, err := Bind[T](m, k.root)
	if err != nil {
		name := k.root
		if strings.TrimSpace(name) == "" {
			name = "<root>"
		}

		return nil, fmt.Errorf("bind %s: %w", name, err)
	}

	return root, nil
}
