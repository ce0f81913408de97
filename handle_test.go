package anyhandle

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	herrors "github.com/wippyai/anyhandle/errors"
)

type record struct {
	Value int
}

type label string

type dropCounter struct {
	n *atomic.Int32
}

func (d dropCounter) Drop() { d.n.Add(1) }

type ptrDropper struct {
	dropped int
}

func (d *ptrDropper) Drop() { d.dropped++ }

func requireReleasedPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, ErrReleased)
	}()
	fn()
}

func TestHandle_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"int", func(t *testing.T) { roundTrip(t, 42) }},
		{"string", func(t *testing.T) { roundTrip(t, "hello") }},
		{"struct", func(t *testing.T) { roundTrip(t, record{Value: 7}) }},
		{"slice", func(t *testing.T) { roundTrip(t, []string{"a", "b"}) }},
		{"pointer", func(t *testing.T) { roundTrip(t, &record{Value: 3}) }},
		{"named", func(t *testing.T) { roundTrip(t, label("x")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func roundTrip[T any](t *testing.T, v T) {
	t.Helper()
	h := New(v)
	e := h.Erase()
	require.True(t, h.Released())
	require.Equal(t, reflect.TypeFor[T](), e.Type())

	back, err := Downcast[T](e)
	require.NoError(t, err)
	require.True(t, e.Released())
	require.Equal(t, 1, back.RefCount())
	require.Equal(t, v, back.Load())
	back.Release()
}

func TestHandle_InterfaceTypeRoundTrip(t *testing.T) {
	h := New[io.Reader](strings.NewReader("abc"))
	e := h.Erase()
	require.Equal(t, reflect.TypeFor[io.Reader](), e.Type())

	_, err := Downcast[*strings.Reader](e)
	require.ErrorIs(t, err, ErrTypeMismatch)

	r, err := Downcast[io.Reader](e)
	require.NoError(t, err)
	defer r.Release()

	data, err := io.ReadAll(r.Load())
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
}

func TestDowncast_Mismatch(t *testing.T) {
	e := NewErased(record{Value: 12})
	defer e.Release()

	h, err := Downcast[string](e)
	require.Nil(t, h)
	require.ErrorIs(t, err, ErrTypeMismatch)

	var herr *herrors.Error
	require.True(t, errors.As(err, &herr))
	require.Equal(t, herrors.PhaseDowncast, herr.Phase)
	require.Equal(t, "anyhandle.record", herr.HaveType)
	require.Equal(t, "string", herr.WantType)
	require.Same(t, e, herr.Value)

	// Nothing was consumed or changed.
	require.False(t, e.Released())
	require.Equal(t, 1, e.RefCount())
	require.Equal(t, record{Value: 12}, e.Load())

	// A named type is not its underlying type.
	_, err = Downcast[struct{ Value int }](e)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestDowncast_AsAndIs(t *testing.T) {
	e := NewErased(5)
	require.True(t, Is[int](e))
	require.False(t, Is[int64](e))

	_, ok := As[int64](e)
	require.False(t, ok)
	require.False(t, e.Released())

	h, ok := As[int](e)
	require.True(t, ok)
	require.True(t, e.Released())
	require.Equal(t, 5, h.Load())
	h.Release()
}

func TestNewErased_Nil(t *testing.T) {
	e := NewErased(nil)
	require.Equal(t, reflect.TypeFor[any](), e.Type())
	require.Nil(t, e.Load())

	_, err := Downcast[int](e)
	require.ErrorIs(t, err, ErrTypeMismatch)

	h, err := Downcast[any](e)
	require.NoError(t, err)
	h.Store(3)
	require.Equal(t, any(3), h.Load())
	h.Release()
}

func TestNew_AnyIsStaticallyTagged(t *testing.T) {
	e := New[any](5).Erase()
	defer e.Release()
	require.Equal(t, reflect.TypeFor[any](), e.Type())
	require.False(t, Is[int](e))
}

func TestHandle_SharedMutationVisibility(t *testing.T) {
	h1 := New(record{Value: 1})
	h2 := h1.Clone()
	require.True(t, h1.Same(h2))
	require.Equal(t, 2, h1.RefCount())

	w := h1.Write()
	w.Ptr().Value = 2
	w.Release()

	r := h2.Read()
	require.Equal(t, 2, r.Value().Value)
	r.Release()

	// Through the erased view of a clone as well.
	e := h2.Clone().Erase()
	require.NoError(t, e.Store(record{Value: 3}))
	require.Equal(t, 3, h1.Load().Value)

	e.Release()
	h2.Release()
	require.Equal(t, 1, h1.RefCount())
	h1.Release()
}

func TestHandle_CloneDoesNotCopy(t *testing.T) {
	h := New([]int{1, 2, 3})
	c := h.Clone()
	h.Update(func(p *[]int) { (*p)[0] = 9 })
	require.Equal(t, []int{9, 2, 3}, c.Load())
	h.Release()
	c.Release()
}

func TestErasedWriteGuard_TypeFixed(t *testing.T) {
	e := NewErased(record{Value: 1})
	defer e.Release()

	g := e.Write()
	err := g.Set("not a record")
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.ErrorIs(t, err, &herrors.Error{Phase: herrors.PhaseWrite, Kind: herrors.KindTypeMismatch})
	require.Equal(t, record{Value: 1}, g.Value())

	require.NoError(t, g.Set(record{Value: 2}))
	g.Release()

	require.Equal(t, record{Value: 2}, e.Load())
	require.True(t, Is[record](e))
}

func TestErasedWriteGuard_InterfaceTag(t *testing.T) {
	e := New[io.Reader](strings.NewReader("abc")).Erase()
	defer e.Release()

	require.NoError(t, e.Store(strings.NewReader("xyz")))
	require.Equal(t, reflect.TypeFor[io.Reader](), e.Type())

	require.ErrorIs(t, e.Store(&strings.Builder{}), ErrTypeMismatch)
	require.ErrorIs(t, e.Store(42), ErrTypeMismatch)

	g := e.Write()
	require.NoError(t, g.Set(nil))
	require.Nil(t, g.Value())
	g.Release()

	r, err := Downcast[io.Reader](e)
	require.NoError(t, err)
	defer r.Release()
	r.Store(strings.NewReader("back"))
	data, err := io.ReadAll(r.Load())
	require.NoError(t, err)
	require.Equal(t, "back", string(data))
}

func TestHandle_Exclusivity(t *testing.T) {
	h := New(0)
	defer h.Release()

	var (
		readers   atomic.Int32
		writers   atomic.Int32
		violation atomic.Bool
		wg        sync.WaitGroup
	)

	const workers = 8
	const iterations = 500

	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				g := h.Write()
				if writers.Add(1) != 1 || readers.Load() != 0 {
					violation.Store(true)
				}
				g.Set(g.Value() + 1)
				writers.Add(-1)
				g.Release()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				g := h.Read()
				readers.Add(1)
				if writers.Load() != 0 {
					violation.Store(true)
				}
				_ = g.Value()
				readers.Add(-1)
				g.Release()
			}
		}()
	}
	wg.Wait()

	require.False(t, violation.Load(), "reader and writer overlapped")
	require.Equal(t, workers*iterations, h.Load())
	require.Equal(t, 1, h.RefCount())
}

func TestHandle_ConcurrentReaders(t *testing.T) {
	h := New("shared")
	defer h.Release()

	first := h.Read()
	done := make(chan struct{})
	go func() {
		g := h.Read()
		g.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second reader blocked behind the first")
	}
	first.Release()
}

func TestHandle_WriterBlocksReader(t *testing.T) {
	h := New(1)
	defer h.Release()

	w := h.Write()
	got := make(chan int)
	go func() {
		got <- h.Load()
	}()

	select {
	case <-got:
		t.Fatal("reader proceeded while a writer held the cell")
	case <-time.After(50 * time.Millisecond):
	}

	w.Set(2)
	w.Release()
	require.Equal(t, 2, <-got)
}

func TestHandle_Teardown(t *testing.T) {
	var n atomic.Int32
	h := New(dropCounter{n: &n})
	clones := []*Handle[dropCounter]{h.Clone(), h.Clone()}
	e := clones[1].Erase()

	h.Release()
	clones[0].Release()
	require.Equal(t, int32(0), n.Load())

	e.Release()
	require.Equal(t, int32(1), n.Load())

	// Release is idempotent per handle.
	h.Release()
	e.Release()
	require.Equal(t, int32(1), n.Load())
}

func TestHandle_TeardownConcurrentRelease(t *testing.T) {
	var n atomic.Int32
	h := New(dropCounter{n: &n})

	const owners = 64
	clones := make([]*Handle[dropCounter], owners)
	for i := range clones {
		clones[i] = h.Clone()
	}
	h.Release()

	var wg sync.WaitGroup
	for _, c := range clones {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Release()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), n.Load())
}

func TestHandle_TeardownPointerReceiver(t *testing.T) {
	d := &ptrDropper{}
	e := NewErased(d)
	e.Release()
	require.Equal(t, 1, d.dropped)

	h := New(ptrDropper{})
	var inner *ptrDropper
	h.Update(func(p *ptrDropper) { inner = p })
	h.Release()
	require.Equal(t, 1, inner.dropped)
}

func TestGuard_PinsCell(t *testing.T) {
	var n atomic.Int32
	h := New(dropCounter{n: &n})

	g := h.Read()
	require.Equal(t, 1, h.RefCount())
	h.Release()
	require.Equal(t, int32(0), n.Load())

	g.Release()
	require.Equal(t, int32(1), n.Load())
}

func TestGuard_NotCountedAsOwner(t *testing.T) {
	h := New(record{Value: 1})
	c := h.Clone()
	defer c.Release()

	r := h.Read()
	require.Equal(t, 2, h.RefCount())
	r.Release()

	e := c.Clone().Erase()
	w := e.Write()
	require.Equal(t, 3, c.RefCount())
	require.Equal(t, 3, e.RefCount())
	w.Release()
	e.Release()

	h.Release()
	require.Equal(t, 1, c.RefCount())
}

func TestGuard_Release(t *testing.T) {
	h := New(record{Value: 1})
	defer h.Release()

	r := h.Read()
	r.Release()
	r.Release()
	requireReleasedPanic(t, func() { r.Value() })

	w := h.Write()
	w.Release()
	w.Release()
	requireReleasedPanic(t, func() { w.Set(record{}) })

	// Both released cleanly, so a writer can get in.
	h.Store(record{Value: 5})
	require.Equal(t, 5, h.Load().Value)
}

func TestHandle_UpdateReleasesOnPanic(t *testing.T) {
	h := New(1)
	defer h.Release()

	require.Panics(t, func() {
		h.Update(func(p *int) {
			*p = 2
			panic("boom")
		})
	})
	require.Equal(t, 2, h.Load())
	require.Equal(t, 1, h.RefCount())
}

func TestHandle_UseAfterRelease(t *testing.T) {
	h := New(1)
	h.Release()
	requireReleasedPanic(t, func() { h.Read() })
	requireReleasedPanic(t, func() { h.Clone() })
	requireReleasedPanic(t, func() { h.Erase() })

	e := NewErased(1)
	typed, err := Downcast[int](e)
	require.NoError(t, err)
	defer typed.Release()
	requireReleasedPanic(t, func() { e.Write() })
	requireReleasedPanic(t, func() { _, _ = Downcast[int](e) })
}

func TestScenario_RecordDowncastAndMutate(t *testing.T) {
	e := NewErased(record{Value: 12})

	h, err := Downcast[record](e)
	require.NoError(t, err)
	defer h.Release()

	w := h.Write()
	w.Ptr().Value = 99
	w.Release()

	r := h.Read()
	require.Equal(t, 99, r.Value().Value)
	r.Release()

	other := NewErased("not a record")
	defer other.Release()
	_, err = Downcast[record](other)
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.Equal(t, "not a record", other.Load())
}
