package confdir

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/agilira/go-errors"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/section"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// 目录层错误码。
const (
	ErrCodeNotDirectory   = "CONFDIR_NOT_DIRECTORY"
	ErrCodeNotFile        = "CONFDIR_NOT_FILE"
	ErrCodeMissingDefault = "CONFDIR_MISSING_DEFAULT"
	ErrCodeNotLoaded      = "CONFDIR_NOT_LOADED"
)

// 查找表在文件中的 key 与在解释上下文中的变量名。
const (
	ComponentLutKey = "cLut"
	StringLutKey    = "sLut"
	LutVariable     = "lut"
)

// Loaded 是一个已加载的配置文件。
type Loaded struct {
	Name     string
	Path     string
	Document *store.Document
	Mapper   *secmap.Mapper
	Lut      map[string]any
}

// Handler 管理一个目录下的配置文件，持有已加载文件的注册表。
//
// 同一文件再次 [Handler.Load] 会替换注册表中的旧条目。
type Handler struct {
	dir  string
	opts options

	mu     sync.RWMutex
	loaded map[string]*Loaded
}

// New 创建 Handler，目录不存在时自动创建。
func New(dir string, opts ...Option) (*Handler, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, errors.New(ErrCodeNotDirectory, fmt.Sprintf("config location %s is not a directory", dir))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create config directory %s: %w", dir, err)
	}

	return &Handler{dir: dir, opts: o, loaded: make(map[string]*Loaded)}, nil
}

// Dir 返回配置目录。
func (h *Handler) Dir() string {
	return h.dir
}

// Load 加载（或重新加载）fileName 并登记到注册表。
//
// 处理顺序：
//  1. 文件不存在时从内置默认文件创建
//  2. 已存在时从默认文件补齐缺失 key，有新增则回写
//  3. 模板展开（[WithTemplateExpansion]）
//  4. 环境变量覆盖（[WithEnvPrefix]）
//  5. key=value 覆盖（[WithOverrides]）
//  6. CLI flags（[WithCommand]）
//  7. 构建查找表 lut，创建绑定会话
func (h *Handler) Load(fileName string) (*secmap.Mapper, error) {
	loaded, err := h.load(fileName)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.loaded[fileName] = loaded
	h.mu.Unlock()

	return loaded.Mapper, nil
}

func (h *Handler) load(fileName string) (*Loaded, error) {
	path := filepath.Join(h.dir, filepath.FromSlash(fileName))
	logger := h.opts.logger.With("file", fileName)

	created, err := h.ensureFile(path, fileName)
	if err != nil {
		return nil, err
	}

	doc, err := store.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if !created {
		if err := h.extend(path, fileName, doc, logger); err != nil {
			return nil, err
		}
	}

	if h.opts.expand != nil {
		doc, err = store.LoadFile(path, store.WithTemplateExpansion(h.opts.expand))
		if err != nil {
			return nil, err
		}
	}

	if h.opts.envPrefix != "" {
		for _, key := range doc.ApplyEnv(h.opts.envPrefix, nil) {
			logger.Debug("Loaded env binding", "env", store.EnvName(h.opts.envPrefix, key), "path", key)
		}
	}

	for _, key := range sortedKeys(h.opts.overrides) {
		doc.Set(key, h.opts.overrides[key])
		logger.Debug("Applied override", "path", key)
	}

	for _, binding := range h.opts.flags {
		for _, key := range binding.apply(doc) {
			logger.Debug("Applied CLI flag", "flag", FlagName(key), "path", key)
		}
	}

	sink := secmap.SlogSink(h.opts.logger, fileName)
	env := secmap.NewEnv()
	for name, value := range h.opts.variables {
		env.With(name, value)
	}
	lut := buildLut(doc, env, sink, func(key string) {
		logger.Warn(fmt.Sprintf("Duplicate s-lut-entry %q in %s", key, fileName))
	})
	env.With(LutVariable, lut)

	mapper := secmap.New(doc,
		secmap.WithEnv(env),
		secmap.WithSink(sink),
		secmap.WithLogger(h.opts.logger),
		secmap.WithConverter(secmap.ChainConverters(
			h.opts.converter,
			section.Converter(env, sink),
			secmap.WeakConverter,
		)),
	)

	return &Loaded{Name: fileName, Path: path, Document: doc, Mapper: mapper, Lut: lut}, nil
}

// ensureFile 在文件缺失时从默认文件复制，返回是否新建。
func (h *Handler) ensureFile(path, fileName string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, errors.New(ErrCodeNotFile, fmt.Sprintf("tried to read file; unexpected directory at %s", path))
		}

		return false, nil
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	content, err := h.defaultContent(fileName)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}

	h.opts.logger.Info("Created configuration from bundled default", "file", fileName, "path", path)

	return true, nil
}

func (h *Handler) defaultContent(fileName string) ([]byte, error) {
	if h.opts.defaults == nil {
		return nil, errors.New(ErrCodeMissingDefault,
			fmt.Sprintf("%s does not exist and no bundled defaults are configured", fileName))
	}

	content, err := fs.ReadFile(h.opts.defaults, fileName)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeMissingDefault,
			fmt.Sprintf("could not load bundled default for %s", fileName))
	}

	return content, nil
}

// extend 从默认文件补齐缺失 key，有新增时回写文件。
func (h *Handler) extend(path, fileName string, doc *store.Document, logger *slog.Logger) error {
	if h.opts.defaults == nil {
		return nil
	}
	content, err := fs.ReadFile(h.opts.defaults, fileName)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read bundled default for %s: %w", fileName, err)
	}

	defaults, err := store.Parse(content)
	if err != nil {
		return fmt.Errorf("parse bundled default for %s: %w", fileName, err)
	}

	if added := doc.ExtendMissingKeys(defaults); added > 0 {
		logger.Info(fmt.Sprintf("Extended %d new keys on the configuration %s", added, fileName))
		if err := store.SaveFile(path, doc); err != nil {
			return err
		}
	}

	return nil
}

// buildLut 构建查找表：cLut 的叶子解析为 [section.Text]，sLut 原样复制。
//
// sLut 中与已有条目忽略大小写重名的 key 会触发 duplicate 回调，后者覆盖前者。
func buildLut(doc *store.Document, env *secmap.Env, sink secmap.Sink, duplicate func(key string)) map[string]any {
	lut := make(map[string]any)

	if m, ok := doc.Get(ComponentLutKey).(*store.Map); ok {
		for key, value := range m.All() {
			lut[fmt.Sprint(key)] = parseLeaves(value, env, sink)
		}
	}

	if m, ok := doc.Get(StringLutKey).(*store.Map); ok {
		for key, value := range m.All() {
			name := fmt.Sprint(key)
			for existing := range lut {
				if strings.EqualFold(existing, name) {
					duplicate(name)

					break
				}
			}
			lut[name] = value
		}
	}

	return lut
}

func parseLeaves(value any, env *secmap.Env, sink secmap.Sink) any {
	switch typed := value.(type) {
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = parseLeaves(typed[i], env, sink)
		}

		return out
	case *store.Map:
		out := store.NewMap()
		for key, val := range typed.All() {
			out.Set(key, parseLeaves(val, env, sink))
		}

		return out
	case nil:
		return nil
	}

	text, err := section.ParseText(fmt.Sprint(value), env, sink)
	if err != nil {
		return value
	}

	return text
}

// Get 返回已加载的文件。
func (h *Handler) Get(fileName string) (*Loaded, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	loaded, ok := h.loaded[fileName]

	return loaded, ok
}

// Mapper 返回已加载文件的绑定会话。
func (h *Handler) Mapper(fileName string) (*secmap.Mapper, error) {
	loaded, ok := h.Get(fileName)
	if !ok {
		return nil, errors.New(ErrCodeNotLoaded, fmt.Sprintf("configuration %s has not been loaded", fileName))
	}

	return loaded.Mapper, nil
}

// Files 返回已加载的文件名（已排序）。
func (h *Handler) Files() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	files := make([]string, 0, len(h.loaded))
	for name := range h.loaded {
		files = append(files, name)
	}
	sort.Strings(files)

	return files
}

// Drop 从注册表移除文件，返回是否存在。
func (h *Handler) Drop(fileName string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.loaded[fileName]
	delete(h.loaded, fileName)

	return ok
}

// ReloadAll 重新加载注册表中的所有文件，失败的文件保留旧条目。
func (h *Handler) ReloadAll() error {
	var errs []error
	for _, name := range h.Files() {
		if _, err := h.Load(name); err != nil {
			h.opts.logger.Warn("Reload failed, keeping previous configuration", "file", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return stderrors.Join(errs...)
}

// Open 加载 fileName 并返回绑定其 root 路径的 [secmap.Keeper]，每次重载都会重新读取文件。
func Open[T any](h *Handler, fileName, root string) (*secmap.Keeper[T], error) {
	keeper, err := secmap.NewKeeper[T](func() (*secmap.Mapper, error) {
		return h.Load(fileName)
	}, root)
	if err != nil {
		return nil, err
	}
	keeper.SetLogger(h.opts.logger)

	return keeper, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}
