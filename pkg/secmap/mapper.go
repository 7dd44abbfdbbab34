package secmap

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/agilira/go-errors"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

// Mapper 是一次绑定会话：存储、解释上下文、诊断输出与转换钩子。
//
// Mapper 本身不缓存绑定结果，同一 Mapper 可多次绑定；存储内容不变时结果逐字段相等。
type Mapper struct {
	store     store.Store
	env       *Env
	sink      Sink
	converter Converter
	logger    *slog.Logger
}

// New 创建绑定会话，默认使用 [WeakConverter] 与空的解释上下文。
func New(st store.Store, opts ...Option) *Mapper {
	m := &Mapper{
		store:     st,
		env:       NewEnv(),
		sink:      Discard,
		converter: WeakConverter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Store 返回绑定使用的存储。
func (m *Mapper) Store() store.Store {
	return m.store
}

// Env 返回传给 section 的解释上下文。
func (m *Mapper) Env() *Env {
	return m.env
}

// Bind 以 root 为根路径，从存储绑定 section 类型 T。root 为空表示整个存储。
func Bind[T any](m *Mapper, root string) (*T, error) {
	out, err := m.BindType(root, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	return out.(*T), nil
}

// MustBind 同 [Bind]，失败时 panic。
func MustBind[T any](m *Mapper, root string) *T {
	out, err := Bind[T](m, root)
	if err != nil {
		panic(fmt.Sprintf("secmap: bind %s: %v", reflect.TypeFor[T](), err))
	}

	return out
}

// BindType 绑定 typ（结构体或其指针），返回指向新实例的指针。
func (m *Mapper) BindType(root string, typ reflect.Type) (any, error) {
	return m.BindFrom(root, typ, nil)
}

// BindFrom 以替代映射 source 代替存储进行绑定，source 为 nil 时等同 [Mapper.BindType]。
func (m *Mapper) BindFrom(root string, typ reflect.Type, source *store.Map) (any, error) {
	st, ok := sectionStruct(typ)
	if !ok {
		if st == nil {
			return nil, errors.New(ErrCodeInvalidTarget, fmt.Sprintf("cannot bind %s: not a struct type", typ))
		}

		return nil, errors.New(ErrCodeNoConstructor,
			fmt.Sprintf("cannot bind %s: it does not implement secmap.Section", st))
	}

	ptr, err := m.bindStruct(st, root, source)
	if err != nil {
		return nil, err
	}

	return ptr.Interface(), nil
}

// bindStruct 构造 st 的实例并逐个处理字段，最后调用 Finalize。
func (m *Mapper) bindStruct(st reflect.Type, root string, source *store.Map) (reflect.Value, error) {
	fields, err := Fields(st)
	if err != nil {
		return reflect.Value{}, err
	}

	ptr := reflect.New(st)
	section, ok := ptr.Interface().(Section)
	if !ok {
		return reflect.Value{}, errors.New(ErrCodeNoConstructor, fmt.Sprintf("%s does not implement secmap.Section", st))
	}
	section.Construct(m.env, m.sink)

	for _, field := range fields {
		if err := m.bindField(ptr, field, root, source); err != nil {
			return reflect.Value{}, err
		}
	}

	if fin, ok := section.(Finalizer); ok {
		if err := fin.Finalize(fields); err != nil {
			return reflect.Value{}, finalizeError(err)
		}
	}

	m.logger.Debug("Bound section", "type", st.String(), "path", root)

	return ptr, nil
}

func finalizeError(err error) error {
	var me *MappingError
	if IsStructural(err) || stderrors.As(err, &me) {
		return err
	}

	return &MappingError{Message: err.Error(), Cause: err}
}

// bindField 处理单个字段；映射失败附加 "(at path '...')" 后向上传播。
func (m *Mapper) bindField(ptr reflect.Value, field Field, root string, source *store.Map) error {
	effective := field.Type
	if field.Open() {
		decided, err := decideType(ptr, field)
		if err != nil {
			return err
		}
		effective = decided
	}

	path := root
	if !field.Inline {
		path = JoinPaths(root, field.Key)
	}

	value, err := m.resolveField(ptr, field, effective, path, source)
	if err != nil {
		return annotate(err, fmt.Sprintf(" (at path '%s')", path))
	}
	if value.IsValid() {
		ptr.Elem().FieldByIndex(field.Index).Set(value)
	}

	return nil
}

func decideType(ptr reflect.Value, field Field) (reflect.Type, error) {
	var decided reflect.Type
	if decider, ok := ptr.Interface().(RuntimeDecider); ok {
		decided = decider.RuntimeDecide(field.Key)
	}
	if decided == nil {
		return nil, errors.New(ErrCodePlainObject, fmt.Sprintf(
			"requesting plain objects is disallowed: %s.%s needs a type from RuntimeDecide",
			ptr.Elem().Type().Name(), field.Name))
	}
	if !decided.AssignableTo(field.Type) {
		return nil, errors.New(ErrCodeDecidedType, fmt.Sprintf(
			"decided type %s cannot be stored in %s.%s (%s)",
			decided, ptr.Elem().Type().Name(), field.Name, field.Type))
	}

	return decided, nil
}

func (m *Mapper) resolveField(ptr reflect.Value, field Field, effective reflect.Type, path string, source *store.Map) (reflect.Value, error) {
	raw, err := resolvePath(m.store, path, source)
	if err != nil {
		return reflect.Value{}, err
	}

	st, nested := sectionStruct(effective)
	if !nested && !field.Always && raw == nil {
		return reflect.Value{}, nil
	}

	var value reflect.Value
	switch {
	case nested:
		inner, err := m.bindStruct(st, path, source)
		if err != nil {
			return reflect.Value{}, err
		}
		value = reflect.ValueOf(sectionValue(inner, effective))
	case isOpen(effective):
		if raw != nil {
			value = reflect.ValueOf(raw)
		}
	case raw == nil && isCollection(effective):
		// always 字段缺失时得到空集合
		value, err = m.convertCollection(nil, effective)
		if err != nil {
			return reflect.Value{}, err
		}
	default:
		value, err = m.convert(raw, effective)
		if err != nil {
			return reflect.Value{}, err
		}
	}

	if !value.IsValid() {
		if defaulter, ok := ptr.Interface().(Defaulter); ok {
			if def := defaulter.DefaultFor(field); def != nil {
				value = reflect.ValueOf(def)
			}
		}
	}
	if !value.IsValid() {
		return reflect.Value{}, nil
	}
	if value.Type().AssignableTo(effective) {
		return value, nil
	}

	return m.applyConverter(value, effective)
}
