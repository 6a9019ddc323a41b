package world

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillmark/world/access"
	"github.com/quillmark/world/errs"
	"github.com/quillmark/world/vfs"
)

type mainText struct{}
type lineTally struct{}
type failing struct{}

func testGraph(files map[string][]byte, main string) *Graph {
	v := vfs.New(access.NewMemoryWith(files), vfs.WithWorkspaceRoot("/ws"))
	entry := EntryState{Root: "/ws", Main: v.FileIDForPath(main)}
	return NewGraph(FromWorld(v, entry, nil))
}

func TestCompute_RunsOnce(t *testing.T) {
	g := testGraph(map[string][]byte{"/ws/main.qm": []byte("hello")}, "/ws/main.qm")

	var runs atomic.Int32
	computeText := func(g *Graph) (string, error) {
		runs.Add(1)
		data, err := g.Snap.Vfs.Content(g.Snap.Entry.Main)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	text, err := Compute[mainText](g, computeText)
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	text, err = Compute[mainText](g, computeText)
	require.NoError(t, err)
	require.Equal(t, "hello", text)
	require.Equal(t, int32(1), runs.Load())
}

func TestCompute_RacersShareOutcome(t *testing.T) {
	g := testGraph(map[string][]byte{"/ws/main.qm": []byte("hello")}, "/ws/main.qm")

	var runs atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := Compute[mainText](g, func(*Graph) (string, error) {
				runs.Add(1)
				return "winner", nil
			})
			require.NoError(t, err)
			require.Equal(t, "winner", text)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), runs.Load())
}

func TestCompute_ErrorsAreCached(t *testing.T) {
	g := testGraph(nil, "/ws/missing.qm")

	var runs atomic.Int32
	computeFail := func(*Graph) (int, error) {
		runs.Add(1)
		return 0, errs.New(errs.CodeNotFound, "missing.qm")
	}

	_, err := Compute[failing](g, computeFail)
	require.Equal(t, errs.CodeNotFound, errs.CodeOf(err))

	_, err2 := Compute[failing](g, computeFail)
	require.Equal(t, err, err2)
	require.Equal(t, int32(1), runs.Load(), "a failed computation is never retried")
}

func TestCompute_Recursive(t *testing.T) {
	g := testGraph(map[string][]byte{"/ws/main.qm": []byte("a\nb\nc")}, "/ws/main.qm")

	tally, err := Compute[lineTally](g, func(g *Graph) (int, error) {
		text, err := Compute[mainText](g, func(g *Graph) (string, error) {
			data, err := g.Snap.Vfs.Content(g.Snap.Entry.Main)
			return string(data), err
		})
		if err != nil {
			return 0, err
		}
		n := 1
		for _, c := range text {
			if c == '\n' {
				n++
			}
		}
		return n, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, tally)
}

func TestProvideAndGet(t *testing.T) {
	g := testGraph(nil, "/ws/main.qm")

	_, _, ok := Get[mainText, string](g)
	require.False(t, ok)

	_, err := MustGet[mainText, string](g)
	require.Equal(t, errs.CodeInternal, errs.CodeOf(err))

	require.True(t, Provide[mainText](g, "seeded", nil))
	require.False(t, Provide[mainText](g, "late", nil), "second provide loses")

	text, err, ok := Get[mainText, string](g)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "seeded", text)

	// Compute observes the provided value and never runs.
	text, err = Compute[mainText](g, func(*Graph) (string, error) {
		t.Fatal("provided entries must short-circuit compute")
		return "", nil
	})
	require.NoError(t, err)
	require.Equal(t, "seeded", text)
}

func TestMustProvide_PanicsWhenResolved(t *testing.T) {
	g := testGraph(nil, "/ws/main.qm")
	MustProvide[mainText](g, "first", nil)
	require.Panics(t, func() { MustProvide[mainText](g, "second", nil) })
}

func TestCompute_MismatchedValueTypePanics(t *testing.T) {
	g := testGraph(nil, "/ws/main.qm")
	MustProvide[mainText](g, "text", nil)

	require.Panics(t, func() {
		_, _ = Compute[mainText](g, func(*Graph) (int, error) { return 0, nil })
	})
}

func TestGraphSnapshot_SharesResolvedEntries(t *testing.T) {
	g := testGraph(nil, "/ws/main.qm")
	MustProvide[mainText](g, "shared", nil)

	clone := g.Snapshot()
	text, err, ok := Get[mainText, string](clone)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "shared", text)

	// Entries first touched after the split stay independent.
	MustProvide[lineTally](clone, 7, nil)
	_, _, ok = Get[lineTally, int](g)
	require.False(t, ok)
}
