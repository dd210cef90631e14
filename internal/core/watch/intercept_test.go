package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/methodwatch/internal/core/stats"
	"github.com/zeusync/methodwatch/pkg/encoding"
)

type explodingSerializer struct{}

func (explodingSerializer) Serialize(any) string { panic("cannot serialize") }

type order struct {
	ID    int      `json:"id"`
	Items []string `json:"items"`
}

func TestIntercept(t *testing.T) {
	ctx := context.Background()

	t.Run("Key From Marker", func(t *testing.T) {
		inv := Invocation{Scope: "TestController", Operation: "FastOperation"}
		require.Equal(t, "TestController.FastOperation", inv.Key(Marker{}))
		require.Equal(t, "TestController.Custom", inv.Key(Marker{Name: "Custom"}))
	})

	t.Run("Parameters And Result", func(t *testing.T) {
		w, reg, sink := newTestWatcher(true)
		inv := Invocation{
			Scope:     "Orders",
			Operation: "Create",
			Params: []Param{
				{Name: "name", Value: "widget"},
				{Name: "value", Value: 42},
			},
		}

		out, err := Intercept(ctx, w, inv, Marker{ThresholdMs: 10_000, LogParameters: true, LogResult: true},
			func(context.Context) (order, error) {
				return order{ID: 1, Items: []string{"a"}}, nil
			})
		require.NoError(t, err)
		require.Equal(t, 1, out.ID)

		reports := sink.all()
		require.Len(t, reports, 1)
		require.Equal(t, `name="widget", value=42`, reports[0].Params)
		require.JSONEq(t, `{"id":1,"items":["a"]}`, reports[0].Output)
		require.Equal(t, Normal, reports[0].Classification)

		snap, ok := reg.Get("Orders.Create")
		require.True(t, ok)
		require.EqualValues(t, 1, snap.TotalExecutions)
	})

	t.Run("No Rendering Unless Marked", func(t *testing.T) {
		w, _, sink := newTestWatcher(true)
		inv := Invocation{Scope: "S", Operation: "Op", Params: []Param{{Name: "secret", Value: "x"}}}
		_, err := Intercept(ctx, w, inv, Marker{ThresholdMs: 10_000}, func(context.Context) (string, error) {
			return "value", nil
		})
		require.NoError(t, err)
		require.Empty(t, sink.all()[0].Params)
		require.Empty(t, sink.all()[0].Output)
	})

	t.Run("Error Propagates", func(t *testing.T) {
		w, reg, sink := newTestWatcher(true)
		boom := errors.New("Test exception")
		_, err := Intercept(ctx, w, Invocation{Scope: "T", Operation: "Throw"}, Marker{LogResult: true},
			func(context.Context) (int, error) { return 0, boom })
		require.Same(t, boom, err)

		snap, _ := reg.Get("T.Throw")
		require.EqualValues(t, 1, snap.TotalFailures)
		require.Equal(t, "Test exception", snap.LastError)
		require.Equal(t, Failed, sink.all()[0].Classification)
		require.Empty(t, sink.all()[0].Output)
	})

	t.Run("Serializer Failure Degrades", func(t *testing.T) {
		reg := stats.New(stats.DefaultConfig())
		sink := &recordingSink{}
		w := New(reg, WithSinks(sink), WithSerializer(explodingSerializer{}))

		inv := Invocation{Scope: "S", Operation: "Op", Params: []Param{{Name: "p", Value: 1}}}
		v, err := Intercept(ctx, w, inv, Marker{ThresholdMs: 10_000, LogParameters: true, LogResult: true},
			func(context.Context) (int, error) { return 5, nil })
		require.NoError(t, err)
		require.Equal(t, 5, v)

		r := sink.all()[0]
		require.Equal(t, "p="+encoding.UnserializablePlaceholder, r.Params)
		require.Equal(t, encoding.UnserializablePlaceholder, r.Output)
		require.Equal(t, Normal, r.Classification)
	})

	t.Run("Context Passed Through", func(t *testing.T) {
		w, _, _ := newTestWatcher(true)
		type ctxKey struct{}
		in := context.WithValue(ctx, ctxKey{}, "v")
		got, err := Intercept(in, w, Invocation{Operation: "Ctx"}, Marker{}, func(c context.Context) (any, error) {
			return c.Value(ctxKey{}), nil
		})
		require.NoError(t, err)
		require.Equal(t, "v", got)
	})

	t.Run("Canceled Context Error Is Failure", func(t *testing.T) {
		w, reg, _ := newTestWatcher(true)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Intercept(cctx, w, Invocation{Operation: "Cancel"}, Marker{ThresholdMs: 10_000}, func(c context.Context) (int, error) {
			return 0, c.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
		snap, _ := reg.Get("Cancel")
		require.EqualValues(t, 1, snap.TotalFailures)
	})
}

func TestIntercept_DisabledStatistics(t *testing.T) {
	w, reg, sink := newTestWatcher(false)
	_, err := Intercept(context.Background(), w, Invocation{Scope: "S", Operation: "Op"}, Marker{},
		func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.Empty(t, reg.All())
	require.Len(t, sink.all(), 1)
}
