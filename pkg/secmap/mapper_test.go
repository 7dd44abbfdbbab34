package secmap_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

func mustDoc(t *testing.T, text string) *store.Document {
	t.Helper()
	doc, err := store.Parse([]byte(text))
	require.NoError(t, err)

	return doc
}

type Size string

const (
	Small Size = "SMALL"
	Large Size = "LARGE"
)

func (Size) EnumValues() []any { return []any{Small, Large} }

type item struct {
	secmap.Base
	Type   string `secmap:"type"`
	Amount int    `secmap:"amount"`
}

type shopItem struct {
	secmap.Base
	Name string `secmap:"name"`
	Size Size   `secmap:"size"`
}

type shop struct {
	secmap.Base
	Items []shopItem          `secmap:"items"`
	Sizes map[string]Size     `secmap:"sizes"`
	Tags  map[string]struct{} `secmap:"tags"`
}

type server struct {
	secmap.Base
	Host    string        `secmap:"host"`
	Port    int           `secmap:"port"`
	Timeout time.Duration `secmap:"timeout"`
	Weight  float64       `secmap:"weight"`
	Retries *int          `secmap:"retries"`
	Small   int8          `secmap:"small"`
}

func (s *server) Construct(env *secmap.Env, sink secmap.Sink) {
	s.Base.Construct(env, sink)
	s.Host = "localhost"
	s.Port = 8080
}

type app struct {
	secmap.Base
	Name   string  `secmap:"name"`
	Server server  `secmap:"server"`
	Backup *server `secmap:"backup"`
}

type collections struct {
	secmap.Base
	List   []int                          `secmap:"list"`
	Pair   [2]string                      `secmap:"pair"`
	ByID   map[int]string                 `secmap:"byID"`
	Order  secmap.Ordered[int, string]    `secmap:"order"`
	Nested *secmap.Ordered[string, []int] `secmap:"nested"`
	Matrix [][]int                        `secmap:"matrix"`
}

func TestBind_ScalarScenario(t *testing.T) {
	doc := mustDoc(t, `
items:
  sword:
    type: diamond_sword
    amount: 3
`)

	got, err := secmap.Bind[item](secmap.New(doc), "items.sword")
	require.NoError(t, err)
	assert.Equal(t, "diamond_sword", got.Type)
	assert.Equal(t, 3, got.Amount)
}

func TestBind_ScalarConversions(t *testing.T) {
	doc := mustDoc(t, `
server:
  port: "9090"
  timeout: 30s
  weight: 2
  retries: 5
  small: 12
`)

	got, err := secmap.Bind[server](secmap.New(doc), "server")
	require.NoError(t, err)
	assert.Equal(t, "localhost", got.Host, "constructor value stands when absent")
	assert.Equal(t, 9090, got.Port)
	assert.Equal(t, 30*time.Second, got.Timeout)
	assert.InDelta(t, 2.0, got.Weight, 1e-9)
	require.NotNil(t, got.Retries)
	assert.Equal(t, 5, *got.Retries)
	assert.Equal(t, int8(12), got.Small)
}

func TestBind_NumericOverflowFails(t *testing.T) {
	doc := mustDoc(t, "server:\n  small: 1000\n")

	_, err := secmap.Bind[server](secmap.New(doc), "server")
	require.Error(t, err)

	var me *secmap.MappingError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, err.Error(), "(at path 'server.small')")
}

func TestBind_NestedSectionsAlwaysConstructed(t *testing.T) {
	doc := mustDoc(t, "name: demo\n")

	got, err := secmap.Bind[app](secmap.New(doc), "")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, 8080, got.Server.Port)
	require.NotNil(t, got.Backup)
	assert.Equal(t, "localhost", got.Backup.Host)
}

func TestBind_Enum(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		doc := mustDoc(t, "items:\n  - {name: a, size: small}\n  - {name: b, size: Large}\n")

		got, err := secmap.Bind[shop](secmap.New(doc), "")
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, Small, got.Items[0].Size)
		assert.Equal(t, Large, got.Items[1].Size)
	})

	t.Run("unknown symbol lists every name with the full trail", func(t *testing.T) {
		doc := mustDoc(t, `
shop:
  items:
    - {name: a, size: small}
    - {name: b, size: huge}
`)

		_, err := secmap.Bind[shop](secmap.New(doc), "shop")
		require.Error(t, err)
		assert.Equal(t,
			`value "huge" was not one of SMALL, LARGE (at path 'size') (at index 1 of a list) (at path 'shop.items')`,
			err.Error())
		assert.False(t, secmap.IsStructural(err))
	})
}

func TestBind_Collections(t *testing.T) {
	doc := mustDoc(t, `
list: [1, 2, 3]
pair: [a, b]
byID: {"1": one, "2": two}
order: {"2": b, "1": a, "3": c}
nested:
  first: [1, 2]
  second: []
matrix: [[1], [2, 3]]
`)

	got, err := secmap.Bind[collections](secmap.New(doc), "")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, got.List)
	assert.Equal(t, [2]string{"a", "b"}, got.Pair)
	assert.Equal(t, map[int]string{1: "one", 2: "two"}, got.ByID)
	assert.Equal(t, []int{2, 1, 3}, got.Order.Keys(), "store order is preserved")
	val, ok := got.Order.Get(3)
	assert.True(t, ok)
	assert.Equal(t, "c", val)

	require.NotNil(t, got.Nested)
	assert.Equal(t, []string{"first", "second"}, got.Nested.Keys())
	first, _ := got.Nested.Get("first")
	assert.Equal(t, []int{1, 2}, first)
	assert.Equal(t, [][]int{{1}, {2, 3}}, got.Matrix)
}

func TestBind_OrderedScenario(t *testing.T) {
	type scenario struct {
		secmap.Base
		Entries secmap.Ordered[int, string] `secmap:"entries"`
	}

	doc := mustDoc(t, "entries: {\"1\": a, \"2\": b}\n")
	got, err := secmap.Bind[scenario](secmap.New(doc), "")
	require.NoError(t, err)

	var keys []int
	var values []string
	for k, v := range got.Entries.All() {
		keys = append(keys, k)
		values = append(values, v)
	}
	assert.Equal(t, []int{1, 2}, keys)
	assert.Equal(t, []string{"a", "b"}, values)
}

func TestBind_CollectionsFromWrongShape(t *testing.T) {
	doc := mustDoc(t, `
list: nope
pair: {a: b}
byID: [1, 2]
order: 3
tags: plain
`)

	got, err := secmap.Bind[collections](secmap.New(doc), "")
	require.NoError(t, err)
	assert.Empty(t, got.List)
	assert.NotNil(t, got.List)
	assert.Equal(t, [2]string{}, got.Pair)
	assert.Empty(t, got.ByID)
	assert.NotNil(t, got.ByID)
	assert.Equal(t, 0, got.Order.Len())

	s, err := secmap.Bind[shop](secmap.New(doc), "")
	require.NoError(t, err)
	assert.Empty(t, s.Tags)
}

func TestBind_CollectionFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "list element",
			yaml: "list: [1, x]\n",
			want: "(at index 1 of a list) (at path 'list')",
		},
		{
			name: "array too long",
			yaml: "pair: [a, b, c]\n",
			want: "expected at most 2 elements but got 3 (at path 'pair')",
		},
		{
			name: "map key",
			yaml: "byID: {x: one}\n",
			want: "(at the key of a map) (at path 'byID')",
		},
		{
			name: "nested list inside ordered value",
			yaml: "nested: {first: [1, y]}\n",
			want: "(at index 1 of a list) (at value for key=first of a map) (at path 'nested')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := secmap.Bind[collections](secmap.New(mustDoc(t, tt.yaml)), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("map value", func(t *testing.T) {
		doc := mustDoc(t, "sizes: {a: small, b: huge}\n")
		_, err := secmap.Bind[shop](secmap.New(doc), "")
		require.Error(t, err)
		assert.Equal(t, `value "huge" was not one of SMALL, LARGE (at value for key=b of a map) (at path 'sizes')`, err.Error())
	})
}

func TestBind_SetDeduplicates(t *testing.T) {
	doc := mustDoc(t, "tags: [a, b, a]\n")

	got, err := secmap.Bind[shop](secmap.New(doc), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, got.Tags)
}

func TestBind_Idempotent(t *testing.T) {
	doc := mustDoc(t, `
name: demo
server: {host: example.org, port: 1, timeout: 1m}
`)
	m := secmap.New(doc)

	first, err := secmap.Bind[app](m, "")
	require.NoError(t, err)
	second, err := secmap.Bind[app](m, "")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Server.Host, second.Server.Host)
	assert.Equal(t, first.Server.Port, second.Server.Port)
	assert.Equal(t, first.Server.Timeout, second.Server.Timeout)
	assert.Equal(t, first.Backup.Host, second.Backup.Host)
}

type countingStore struct {
	calls int
}

func (c *countingStore) Get(string) any {
	c.calls++

	return nil
}

func TestBind_SelfReferenceFailsBeforeStoreAccess(t *testing.T) {
	st := &countingStore{}

	_, err := secmap.Bind[loop](secmap.New(st), "")
	require.Error(t, err)
	assert.Equal(t, secmap.ErrCodeSelfReference, secmap.ErrorCode(err))
	assert.Zero(t, st.calls)
}

func TestBind_NotASection(t *testing.T) {
	_, err := secmap.Bind[notSection](secmap.New(store.NewDocument()), "")
	require.Error(t, err)
	assert.Equal(t, secmap.ErrCodeNoConstructor, secmap.ErrorCode(err))
}

func (o *openFirst) RuntimeDecide(key string) reflect.Type {
	if key != "value" {
		return nil
	}
	switch o.Kind {
	case "number":
		return reflect.TypeFor[int]()
	case "text":
		return reflect.TypeFor[string]()
	case "raw":
		return reflect.TypeFor[any]()
	case "bad":
		return reflect.TypeFor[shopItem]()
	}

	return nil
}

func TestBind_RuntimeDecide(t *testing.T) {
	tests := []struct {
		yaml string
		want any
	}{
		{"value: \"42\"\nkind: number\n", 42},
		{"value: 42\nkind: text\n", "42"},
		{"value: [1, 2]\nkind: raw\n", []any{1, 2}},
	}

	for _, tt := range tests {
		got, err := secmap.Bind[openFirst](secmap.New(mustDoc(t, tt.yaml)), "")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Value)
	}
}

func TestBind_RuntimeDecideErrors(t *testing.T) {
	_, err := secmap.Bind[openFirst](secmap.New(mustDoc(t, "value: 1\nkind: unknown\n")), "")
	require.Error(t, err)
	assert.Equal(t, secmap.ErrCodePlainObject, secmap.ErrorCode(err))

	_, err = secmap.Bind[openLast](secmap.New(mustDoc(t, "value: 1\n")), "")
	require.Error(t, err)
	assert.Equal(t, secmap.ErrCodePlainObject, secmap.ErrorCode(err), "no decider at all")
}

type withHooks struct {
	secmap.Base
	Low      int    `secmap:"low"`
	High     int    `secmap:"high"`
	Label    string `secmap:"label,always"`
	Span     int    `secmap:"-"`
	finished int
}

func (w *withHooks) DefaultFor(field secmap.Field) any {
	if field.Key == "label" {
		return "unnamed"
	}

	return nil
}

func (w *withHooks) Finalize(fields []secmap.Field) error {
	w.finished++
	if len(fields) != 3 {
		return errors.New("unexpected field count")
	}
	if w.High < w.Low {
		return errors.New("high must not be below low")
	}
	w.Span = w.High - w.Low

	return nil
}

type hookHolder struct {
	secmap.Base
	Range withHooks `secmap:"range"`
}

func TestBind_Hooks(t *testing.T) {
	got, err := secmap.Bind[withHooks](secmap.New(mustDoc(t, "low: 2\nhigh: 7\n")), "")
	require.NoError(t, err)
	assert.Equal(t, "unnamed", got.Label)
	assert.Equal(t, 5, got.Span)
	assert.Equal(t, 1, got.finished)

	_, err = secmap.Bind[hookHolder](secmap.New(mustDoc(t, "range: {low: 9, high: 1}\n")), "")
	require.Error(t, err)
	assert.Equal(t, "high must not be below low (at path 'range')", err.Error())
}

type inlined struct {
	secmap.Base
	Server server `secmap:"server,inline"`
	Name   string `secmap:"name"`
}

func TestBind_Inline(t *testing.T) {
	got, err := secmap.Bind[inlined](secmap.New(mustDoc(t, "host: h\nport: 1\nname: n\n")), "")
	require.NoError(t, err)
	assert.Equal(t, "h", got.Server.Host)
	assert.Equal(t, 1, got.Server.Port)
	assert.Equal(t, "n", got.Name)
}

func TestBind_ConverterAndContext(t *testing.T) {
	env := secmap.NewEnv().With("greeting", "hi")
	upper := func(raw any, target reflect.Type) (any, error) {
		if s, ok := raw.(string); ok && target == reflect.TypeFor[int]() && s == "many" {
			return 99, nil
		}

		return raw, nil
	}

	m := secmap.New(mustDoc(t, "type: t\namount: many\n"),
		secmap.WithEnv(env),
		secmap.WithConverter(secmap.ChainConverters(upper, secmap.WeakConverter)),
	)
	got, err := secmap.Bind[item](m, "")
	require.NoError(t, err)
	assert.Equal(t, 99, got.Amount)

	assert.Same(t, env, got.Env())
	assert.NotNil(t, got.Sink())
}

func TestBind_NoConverter(t *testing.T) {
	m := secmap.New(mustDoc(t, "amount: \"3\"\n"), secmap.WithConverter(nil))

	_, err := secmap.Bind[item](m, "")
	require.Error(t, err)
	assert.Equal(t, secmap.ErrCodeUnsupportedType, secmap.ErrorCode(err))
}

func TestMustBind_Panics(t *testing.T) {
	assert.Panics(t, func() {
		secmap.MustBind[loop](secmap.New(store.NewDocument()), "")
	})
}

func TestBindFrom_Substitute(t *testing.T) {
	src := store.FromGo(map[string]any{"type": "bow", "amount": 2})

	out, err := secmap.New(nil).BindFrom("", reflect.TypeFor[item](), src)
	require.NoError(t, err)

	got, ok := out.(*item)
	require.True(t, ok)
	assert.Equal(t, "bow", got.Type)
	assert.Equal(t, 2, got.Amount)
}

type alwaysCollections struct {
	secmap.Base
	Names []string                    `secmap:"names,always"`
	Table map[string]string           `secmap:"table,always"`
	Tags  map[string]struct{}         `secmap:"tags,always"`
	Pair  [2]int                      `secmap:"pair,always"`
	Order secmap.Ordered[string, int] `secmap:"order,always"`
	Loose []string                    `secmap:"loose"`
}

func TestBind_AlwaysCollectionsFromAbsent(t *testing.T) {
	got, err := secmap.Bind[alwaysCollections](secmap.New(mustDoc(t, "other: 1\n")), "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
	}{
		{"list", got.Names},
		{"map", got.Table},
		{"set", got.Tags},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.value)
			assert.Empty(t, tt.value)
		})
	}

	assert.Equal(t, [2]int{}, got.Pair)
	assert.Equal(t, 0, got.Order.Len())
	assert.Nil(t, got.Loose, "fields without always stay unset")
}

type decidedDefault struct {
	secmap.Base
	Value any `secmap:"value,always"`
}

func (d *decidedDefault) RuntimeDecide(key string) reflect.Type {
	if key == "value" {
		return reflect.TypeFor[int]()
	}

	return nil
}

func (d *decidedDefault) DefaultFor(field secmap.Field) any {
	if field.Key == "value" {
		return "5"
	}

	return nil
}

func TestBind_DecidedDefaultIsConverted(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want any
	}{
		{"default converted to decided type", "other: 1\n", 5},
		{"stored value wins", "value: \"7\"\n", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secmap.Bind[decidedDefault](secmap.New(mustDoc(t, tt.yaml)), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
			assert.IsType(t, 0, got.Value)
		})
	}
}
