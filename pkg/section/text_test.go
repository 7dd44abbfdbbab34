package section_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/section"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

type logEntry struct {
	source  string
	pos     int
	message string
}

type recorder struct {
	entries []logEntry
}

func (r *recorder) Log(source string, pos int, message string, _ error) {
	r.entries = append(r.entries, logEntry{source, pos, message})
}

func TestParseText_Render(t *testing.T) {
	env := secmap.NewEnv().With("name", "world").With("count", 3)

	text, err := section.ParseText("hello ${name} x${count} ${missing:-none}", env, nil)
	require.NoError(t, err)

	out, err := text.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world x3 none", out)

	out, err = text.Render(secmap.NewEnv().With("name", "override"))
	require.NoError(t, err)
	assert.Equal(t, "hello override x3 none", out)

	assert.False(t, text.IsLiteral())
	assert.Equal(t, "hello ${name} x${count} ${missing:-none}", text.Source())
}

func TestParseText_SyntaxErrorIsLogged(t *testing.T) {
	rec := &recorder{}

	_, err := section.ParseText("abc ${open", nil, rec)
	require.Error(t, err)

	var me *secmap.MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "the above error occurred while trying to parse a template", me.Message)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "abc ${open", rec.entries[0].source)
	assert.Equal(t, 4, rec.entries[0].pos)
}

func TestText_NestedLookupTable(t *testing.T) {
	env := secmap.NewEnv()
	greeting, err := section.ParseText("hi ${user}", env, nil)
	require.NoError(t, err)
	env.With("lut", map[string]any{"greeting": greeting}).With("user", "ann")

	text, err := section.ParseText("[${lut.greeting}]", env, nil)
	require.NoError(t, err)
	assert.Equal(t, "[hi ann]", text.String())
}

func TestText_RecursionIsBounded(t *testing.T) {
	env := secmap.NewEnv()
	loop, err := section.ParseText("${self}", env, nil)
	require.NoError(t, err)
	env.With("self", loop)

	_, err = loop.Render(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting deeper")
	assert.Equal(t, "${self}", loop.String(), "String falls back to the source")
}

func TestText_PlainLogsRequiredErrors(t *testing.T) {
	rec := &recorder{}
	text, err := section.ParseText("v=${must:?is required}", secmap.NewEnv(), rec)
	require.NoError(t, err)

	assert.Empty(t, text.Plain(nil))
	require.Len(t, rec.entries, 1)
	assert.Equal(t, 2, rec.entries[0].pos)
	assert.Equal(t, "must: is required", rec.entries[0].message)
}

func TestText_ZeroValue(t *testing.T) {
	var text section.Text

	out, err := text.Render(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, text.IsLiteral())

	raw, err := text.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, raw)
}

type banner struct {
	secmap.Base
	Title    section.Text   `secmap:"title"`
	Subtitle *section.Text  `secmap:"subtitle"`
	Port     int            `secmap:"port"`
	Enabled  bool           `secmap:"enabled"`
	Lines    []section.Text `secmap:"lines"`
}

func newMapper(t *testing.T, yaml string, env *secmap.Env, sink secmap.Sink) *secmap.Mapper {
	t.Helper()
	doc, err := store.Parse([]byte(yaml))
	require.NoError(t, err)

	return secmap.New(doc,
		secmap.WithEnv(env),
		secmap.WithSink(sink),
		secmap.WithConverter(secmap.ChainConverters(section.Converter(env, sink), secmap.WeakConverter)),
	)
}

func TestConverter_BindsTemplates(t *testing.T) {
	env := secmap.NewEnv().With("app", "demo").With("port", "9000")

	got, err := secmap.Bind[banner](newMapper(t, `
title: "Welcome to ${app}"
subtitle: 42
port: ${port:-8080}
enabled: ${missing:-true}
lines: [a, "${app}"]
`, env, nil), "")
	require.NoError(t, err)

	assert.Equal(t, "Welcome to demo", got.Title.String())
	require.NotNil(t, got.Subtitle)
	assert.Equal(t, "42", got.Subtitle.String())
	assert.Equal(t, 9000, got.Port)
	assert.True(t, got.Enabled)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "demo", got.Lines[1].String())
}

func TestConverter_Failures(t *testing.T) {
	rec := &recorder{}

	_, err := secmap.Bind[banner](newMapper(t, "title: \"${broken\"\n", secmap.NewEnv(), rec), "")
	require.Error(t, err)
	assert.Equal(t, "the above error occurred while trying to parse a template (at path 'title')", err.Error())
	assert.Len(t, rec.entries, 1)

	_, err = secmap.Bind[banner](newMapper(t, "title: {a: b}\n", secmap.NewEnv(), nil), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected text but found")

	_, err = secmap.Bind[banner](newMapper(t, "port: \"${p:?port needed}\"\n", secmap.NewEnv(), nil), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port needed")
	assert.Contains(t, err.Error(), "(at path 'port')")
}

func TestConverter_LeavesOtherValues(t *testing.T) {
	conv := section.Converter(secmap.NewEnv(), nil)

	out, err := conv("plain", reflect.TypeFor[int]())
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = conv("${x}", reflect.TypeFor[string]())
	require.NoError(t, err)
	assert.Equal(t, "${x}", out, "strings are bound as written")

	out, err = conv("${x:-LOW}", reflect.TypeFor[secmap.Priority]())
	require.NoError(t, err)
	assert.Equal(t, "${x:-LOW}", out, "enums are matched by name")
}
