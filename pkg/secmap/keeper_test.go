package secmap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

type reloadable struct {
	secmap.Base
	Name  string          `secmap:"name"`
	Size  Size            `secmap:"size"`
	Order secmap.Priority `secmap:"order"`
}

func newTestKeeper(t *testing.T, text *string) *secmap.Keeper[reloadable] {
	t.Helper()

	source := func() (*secmap.Mapper, error) {
		doc, err := store.Parse([]byte(*text))
		if err != nil {
			return nil, err
		}

		return secmap.New(doc), nil
	}

	k, err := secmap.NewKeeper[reloadable](source, "")
	require.NoError(t, err)

	return k
}

func TestKeeper_ListenersRunInPriorityOrder(t *testing.T) {
	text := "name: first\n"
	k := newTestKeeper(t, &text)

	var calls []string
	record := func(name string) secmap.Listener {
		return func() error {
			calls = append(calls, name)

			return nil
		}
	}

	k.OnReloadPriority(secmap.PriorityLow, record("low"))
	k.OnReload(record("medium"))
	k.OnReloadPriority(secmap.PriorityHigh, record("high-1"))
	k.OnReloadPriority(secmap.PriorityLowest, record("lowest"))
	k.OnReloadPriority(secmap.PriorityHigh, record("high-2"))
	k.OnReloadPriority(secmap.PriorityHighest, record("highest"))

	text = "name: second\n"
	require.NoError(t, k.Reload())

	assert.Equal(t, []string{"highest", "high-1", "high-2", "medium", "low", "lowest"}, calls)
	assert.Equal(t, "second", k.Root().Name)
}

func TestKeeper_FailedReloadKeepsPreviousRoot(t *testing.T) {
	text := "name: good\nsize: small\n"
	k := newTestKeeper(t, &text)
	before := k.Root()

	called := false
	k.OnReload(func() error {
		called = true

		return nil
	})

	text = "name: bad\nsize: enormous\n"
	err := k.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value "enormous" was not one of SMALL, LARGE (at path 'size')`)

	var me *secmap.MappingError
	assert.ErrorAs(t, err, &me)
	assert.Same(t, before, k.Root())
	assert.False(t, called)

	text = "name: broken: yaml: [\n"
	require.Error(t, k.Reload())
	assert.Same(t, before, k.Root())
}

func TestKeeper_ListenerErrorStopsNotification(t *testing.T) {
	text := "name: a\n"
	k := newTestKeeper(t, &text)

	boom := errors.New("boom")
	lowCalled := false
	k.OnReloadPriority(secmap.PriorityHigh, func() error { return boom })
	k.OnReloadPriority(secmap.PriorityLow, func() error {
		lowCalled = true

		return nil
	})

	text = "name: b\n"
	err := k.Reload()
	require.ErrorIs(t, err, boom)
	assert.False(t, lowCalled)
	assert.Equal(t, "b", k.Root().Name, "new root is not rolled back")
}

func TestKeeper_InitialBindFailure(t *testing.T) {
	text := "size: nope\n"
	source := func() (*secmap.Mapper, error) {
		doc, err := store.Parse([]byte(text))
		if err != nil {
			return nil, err
		}

		return secmap.New(doc), nil
	}

	_, err := secmap.NewKeeper[reloadable](source, "")
	require.Error(t, err)
}

func TestKeeper_InvalidPriorityPanics(t *testing.T) {
	text := ""
	k := newTestKeeper(t, &text)

	assert.Panics(t, func() {
		k.OnReloadPriority(secmap.Priority(7), func() error { return nil })
	})
}

func TestPriority_BindsFromText(t *testing.T) {
	text := "order: low\n"
	k := newTestKeeper(t, &text)
	assert.Equal(t, secmap.PriorityLow, k.Root().Order)

	assert.Equal(t, "HIGH", secmap.PriorityHigh.String())
	assert.Equal(t, "Priority(9)", secmap.Priority(9).String())
	assert.Len(t, secmap.PriorityMedium.EnumValues(), 5)
}
