package secmap

import (
	"reflect"
)

// Section 是可绑定类型的构造约定。
//
// 引擎通过 reflect.New 分配实例后调用 Construct，传入解释上下文与诊断输出，
// 实现可在此设置字段默认值。通常嵌入 [Base] 即可满足该接口。
type Section interface {
	Construct(env *Env, sink Sink)
}

// RuntimeDecider 为 any 类型或带 decide 标记的字段在运行时决定具体类型。
//
// 调用时机在该字段取值之前，此时具体类型字段均已赋值，可据此判断。
// 返回 nil 表示无法决定，绑定以结构性错误终止。
type RuntimeDecider interface {
	RuntimeDecide(key string) reflect.Type
}

// Defaulter 在字段解析与转换均无结果时提供默认值，返回 nil 表示保持构造时的值。
type Defaulter interface {
	DefaultFor(field Field) any
}

// Finalizer 在所有字段处理完毕后恰好调用一次，参数为全部参与映射的字段。
//
// 常见用途：由原始字段计算派生字段、跨字段校验。返回的普通 error 视为映射失败。
type Finalizer interface {
	Finalize(fields []Field) error
}

// Base 提供 [Section] 的默认实现，保存构造时传入的上下文。
type Base struct {
	env  *Env
	sink Sink
}

// Construct 实现 [Section]。
func (b *Base) Construct(env *Env, sink Sink) {
	b.env = env
	b.sink = sink
}

// Env 返回构造时的解释上下文。
func (b *Base) Env() *Env {
	return b.env
}

// Sink 返回构造时的诊断输出。
func (b *Base) Sink() Sink {
	if b.sink == nil {
		return Discard
	}

	return b.sink
}

// Always 是类型级标记：嵌入它的结构体所声明的字段在缺失时也会被实例化（等同逐个加 always）。
type Always struct{}

var (
	sectionIface  = reflect.TypeFor[Section]()
	alwaysType    = reflect.TypeFor[Always]()
	baseType      = reflect.TypeFor[Base]()
	enumIface     = reflect.TypeFor[Enum]()
	emptyStruct   = reflect.TypeFor[struct{}]()
	orderedTarget = reflect.TypeFor[orderedMapping]()
)

// sectionStruct 判断 typ（或其指向的类型）是否为 Section 结构体。
func sectionStruct(typ reflect.Type) (reflect.Type, bool) {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, false
	}

	return typ, reflect.PointerTo(typ).Implements(sectionIface)
}

// isOpen 判断是否为 any（空接口）类型。
func isOpen(typ reflect.Type) bool {
	return typ.Kind() == reflect.Interface && typ.NumMethod() == 0
}

// sectionValue 按目标类型返回指针或值。
func sectionValue(ptr reflect.Value, typ reflect.Type) any {
	if typ.Kind() == reflect.Pointer {
		return ptr.Interface()
	}

	return ptr.Elem().Interface()
}
