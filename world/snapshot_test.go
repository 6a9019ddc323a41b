package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillmark/world/access"
	"github.com/quillmark/world/vfs"
)

func TestSignal(t *testing.T) {
	require.False(t, Signal{}.Any())

	s := Signal{ByMemEvents: true}.Merge(Signal{ByFsEvents: true})
	require.True(t, s.ByMemEvents)
	require.True(t, s.ByFsEvents)
	require.False(t, s.ByEntryUpdate)
	require.True(t, s.Any())

	s = s.Exclude(Signal{ByMemEvents: true})
	require.False(t, s.ByMemEvents)
	require.True(t, s.ByFsEvents)
}

func TestInputs(t *testing.T) {
	a := NewInputs(map[string]string{"theme": "dark", "lang": "en"})
	b := NewInputs(map[string]string{"lang": "en", "theme": "dark"})
	c := NewInputs(map[string]string{"theme": "light", "lang": "en"})

	v, ok := a.Get("theme")
	require.True(t, ok)
	require.Equal(t, "dark", v)
	_, ok = a.Get("missing")
	require.False(t, ok)

	// Insertion order never affects the fingerprint.
	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.True(t, a.Equal(b))
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	require.False(t, a.Equal(c))

	var nilInputs *Inputs
	require.Equal(t, 0, nilInputs.Len())
	require.True(t, nilInputs.Equal(NewInputs(nil)))
}

func TestNewTaskID(t *testing.T) {
	a := NewTaskID("export")
	b := NewTaskID("export")
	require.NotEqual(t, a, b)
	require.Contains(t, string(a), "export/")
}

func testSnapshot(files map[string][]byte, main string) *Snapshot {
	v := vfs.New(access.NewMemoryWith(files), vfs.WithWorkspaceRoot("/ws"))
	entry := EntryState{Root: "/ws", Main: v.FileIDForPath(main)}
	return FromWorld(v, entry, nil)
}

func TestSnapshotTask_UnchangedReturnsReceiver(t *testing.T) {
	s := testSnapshot(map[string][]byte{"/ws/main.qm": []byte("x")}, "/ws/main.qm")

	require.Same(t, s, s.Task(TaskInputs{}))

	sameEntry := s.Entry
	require.Same(t, s, s.Task(TaskInputs{Entry: &sameEntry}))
	require.Same(t, s, s.Task(TaskInputs{Inputs: NewInputs(nil)}))
}

func TestSnapshotTask_DerivedSnapshot(t *testing.T) {
	s := testSnapshot(map[string][]byte{
		"/ws/main.qm":  []byte("main"),
		"/ws/other.qm": []byte("other"),
	}, "/ws/main.qm")

	otherEntry := EntryState{Root: "/ws", Main: s.Vfs.FileIDForPath("/ws/other.qm")}
	derived := s.Task(TaskInputs{Entry: &otherEntry})
	require.NotSame(t, s, derived)
	require.Equal(t, otherEntry, derived.Entry)
	require.True(t, derived.Signal.ByEntryUpdate)
	require.False(t, s.Signal.ByEntryUpdate, "the receiver stays untouched")

	// The derived view is isolated from later edits to the original.
	s.Vfs.AddShadow("/ws/other.qm", []byte("edited"))
	data, err := derived.Vfs.Content(otherEntry.Main)
	require.NoError(t, err)
	require.Equal(t, []byte("other"), data)
}

func TestSnapshotIsolation_EndToEnd(t *testing.T) {
	v := vfs.New(access.NewMemoryWith(map[string][]byte{
		"/ws/main.qm": []byte("x"),
	}), vfs.WithWorkspaceRoot("/ws"))
	main := v.FileIDForPath("/ws/main.qm")

	readMain := func(g *Graph) (string, error) {
		src, err := g.Snap.Vfs.Source(g.Snap.Entry.Main)
		if err != nil {
			return "", err
		}
		return src.Text, nil
	}

	s1 := FromWorld(v.Fork(), EntryState{Root: "/ws", Main: main}, nil)
	g1 := NewGraph(s1)
	text, err := Compute[mainText](g1, readMain)
	require.NoError(t, err)
	require.Equal(t, "x", text)

	v.AddShadow("/ws/main.qm", []byte("y"))

	s2 := FromWorld(v.Fork(), EntryState{Root: "/ws", Main: main}, nil)
	g2 := NewGraph(s2)
	text, err = Compute[mainText](g2, readMain)
	require.NoError(t, err)
	require.Equal(t, "y", text)

	// The older snapshot keeps serving its own revision.
	text, err = Compute[mainText](g1, readMain)
	require.NoError(t, err)
	require.Equal(t, "x", text)
	require.Less(t, s1.Revision(), s2.Revision())
}
