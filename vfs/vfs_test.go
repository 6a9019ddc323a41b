package vfs

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillmark/world/access"
	"github.com/quillmark/world/errs"
	"github.com/quillmark/world/interner"
)

func testVfs(files map[string][]byte) *Vfs {
	return New(access.NewMemoryWith(files), WithWorkspaceRoot("/ws"))
}

func TestContent_Backing(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("x")})
	id := v.FileIDForPath("/ws/a.qm")

	data, err := v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), data)
}

func TestContent_MissingFileIsTagged(t *testing.T) {
	v := testVfs(nil)
	id := v.FileIDForPath("/ws/missing.qm")

	_, err := v.Content(id)
	require.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	require.True(t, errs.IsFileError(err))

	// An unreadable file never blocks unrelated files.
	v.AddShadow("/ws/ok.qm", []byte("fine"))
	data, err := v.Content(v.FileIDForPath("/ws/ok.qm"))
	require.NoError(t, err)
	require.Equal(t, []byte("fine"), data)
}

func TestShadow_RoundTrip(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("backing")})
	id := v.FileIDForPath("/ws/a.qm")

	v.AddShadow("/ws/a.qm", []byte("shadow"))
	data, err := v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("shadow"), data)

	// Removing the shadow reverts to exactly the pre-shadow backing bytes.
	v.RemoveShadow("/ws/a.qm")
	data, err = v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("backing"), data)
}

func TestShadow_UntitledByID(t *testing.T) {
	v := testVfs(nil)
	id := interner.RootlessFile("untitled-vfs-1")

	_, err := v.Content(id)
	require.Equal(t, errs.CodeAccessDenied, errs.CodeOf(err))

	v.AddShadowByID(id, []byte("draft"))
	data, err := v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("draft"), data)
}

func TestFork_Isolation(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("v1")})
	id := v.FileIDForPath("/ws/a.qm")

	fork := v.Fork()
	v.AddShadow("/ws/a.qm", []byte("v2"))

	// The fork still sees the state it was forked at.
	data, err := fork.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)

	data, err = v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), data)

	// Mutating the fork never leaks back either.
	fork2 := v.Fork()
	fork2.AddShadow("/ws/a.qm", []byte("v3"))
	data, err = v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), data)
}

func TestRevision_MonotonicPerMutation(t *testing.T) {
	v := testVfs(nil)
	require.Equal(t, uint64(1), v.Revision())

	v.AddShadow("/ws/a.qm", []byte("x"))
	require.Equal(t, uint64(2), v.Revision())

	fork := v.Fork()
	require.Equal(t, uint64(2), fork.Revision())

	v.RemoveShadow("/ws/a.qm")
	require.Equal(t, uint64(3), v.Revision())
	require.Equal(t, uint64(2), fork.Revision())
}

func TestContent_BackingReadOnce(t *testing.T) {
	var reads atomic.Int32
	model := access.NewProxy(func(path string) ([]byte, error) {
		reads.Add(1)
		return []byte("content"), nil
	}, nil)
	v := New(model, WithWorkspaceRoot("/ws"))
	id := v.FileIDForPath("/ws/a.qm")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := v.Content(id)
			require.NoError(t, err)
			require.Equal(t, []byte("content"), data)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), reads.Load(), "a published view reads each file at most once")
}

func TestNotifyChanges(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("disk")})
	id := v.FileIDForPath("/ws/a.qm")

	v.NotifyChanges(ChangeSet{Inserts: []FileEntry{{
		Path:    "/ws/a.qm",
		Content: []byte("event"),
		Mtime:   time.Now(),
	}}})
	data, err := v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("event"), data)

	// Overlay shadows still win over watcher captures.
	v.AddShadow("/ws/a.qm", []byte("editor"))
	data, err = v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("editor"), data)

	// Removal falls back to the backing read.
	v.RemoveShadow("/ws/a.qm")
	v.NotifyChanges(ChangeSet{Removes: []string{"/ws/a.qm"}})
	data, err = v.Content(id)
	require.NoError(t, err)
	require.Equal(t, []byte("disk"), data)

	// Empty change sets do not publish a revision.
	rev := v.Revision()
	v.NotifyChanges(ChangeSet{})
	require.Equal(t, rev, v.Revision())
}

func TestSource_ParseAndMemoize(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("line one\nline two\n")})
	id := v.FileIDForPath("/ws/a.qm")

	src, err := v.Source(id)
	require.NoError(t, err)
	require.Equal(t, "line one\nline two\n", src.Text)
	require.Equal(t, 3, src.LineCount())

	again, err := v.Source(id)
	require.NoError(t, err)
	require.Same(t, src, again, "same content must return the memoized source")
}

func TestSource_InvalidUTF8(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/bad.qm": {0xff, 0xfe, 0x01}})
	id := v.FileIDForPath("/ws/bad.qm")

	_, err := v.Source(id)
	require.Equal(t, errs.CodeInvalidUTF8, errs.CodeOf(err))

	// The error outcome is memoized too.
	_, err2 := v.Source(id)
	require.Equal(t, err, err2)
}

func TestSource_BOMStripped(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/bom.qm": []byte("\xef\xbb\xbfhello")})
	id := v.FileIDForPath("/ws/bom.qm")

	src, err := v.Source(id)
	require.NoError(t, err)
	require.Equal(t, "hello", src.Text)
}

func TestMtime_ShadowWins(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("x")})
	id := v.AddShadow("/ws/a.qm", []byte("y"))

	mt, err := v.Mtime(id)
	require.NoError(t, err)
	require.False(t, mt.IsZero())
	require.WithinDuration(t, time.Now(), mt, time.Minute)
}

func TestIsFile(t *testing.T) {
	v := testVfs(map[string][]byte{"/ws/a.qm": []byte("x")})

	ok, err := v.IsFile(v.FileIDForPath("/ws/a.qm"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.IsFile(v.FileIDForPath("/ws/missing.qm"))
	require.NoError(t, err)
	require.False(t, ok)

	// Rootless files are not files until shadowed.
	id := interner.RootlessFile("untitled-vfs-2")
	ok, err = v.IsFile(id)
	require.NoError(t, err)
	require.False(t, ok)

	v.AddShadowByID(id, []byte("now"))
	ok, err = v.IsFile(id)
	require.NoError(t, err)
	require.True(t, ok)
}
