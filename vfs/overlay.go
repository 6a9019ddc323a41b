package vfs

import (
	"bytes"
	"time"

	"github.com/benbjohnson/immutable"

	"github.com/quillmark/world/interner"
)

// fileSnapshot is the overlay record for one shadowed file.
type fileSnapshot struct {
	content []byte
	mtime   time.Time
}

type fileIDComparer struct{}

func (fileIDComparer) Compare(a, b interner.FileID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Overlay is a persistent map of in-memory file contents shadowing the
// backing access model. Set and Delete return new overlay values in
// O(log n); existing holders never observe the mutation, which is what
// makes forked virtual-file-system views cheap and isolated.
//
// Shadows take precedence over backing content but never alter it:
// deleting a shadow reverts visibility to the backing file.
type Overlay struct {
	files *immutable.SortedMap[interner.FileID, fileSnapshot]
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		files: immutable.NewSortedMap[interner.FileID, fileSnapshot](fileIDComparer{}),
	}
}

// Get returns the shadow content for id, if present.
func (o *Overlay) Get(id interner.FileID) ([]byte, bool) {
	snap, ok := o.files.Get(id)
	if !ok {
		return nil, false
	}
	return snap.content, true
}

// Mtime returns the shadow write time for id, if present.
func (o *Overlay) Mtime(id interner.FileID) (time.Time, bool) {
	snap, ok := o.files.Get(id)
	if !ok {
		return time.Time{}, false
	}
	return snap.mtime, true
}

// Set returns a new overlay with the shadow for id replaced. When the clock
// has not advanced past the previous write of different content, the stored
// time is nudged 1ms past it so newer content never carries an older or
// equal mtime.
func (o *Overlay) Set(id interner.FileID, content []byte) *Overlay {
	mt := time.Now()
	if prev, ok := o.files.Get(id); ok {
		if !mt.After(prev.mtime) && !bytes.Equal(prev.content, content) {
			mt = prev.mtime.Add(time.Millisecond)
		}
	}
	return &Overlay{files: o.files.Set(id, fileSnapshot{content: content, mtime: mt})}
}

// Delete returns a new overlay without a shadow for id.
func (o *Overlay) Delete(id interner.FileID) *Overlay {
	return &Overlay{files: o.files.Delete(id)}
}

// Len returns the number of shadowed files.
func (o *Overlay) Len() int {
	return o.files.Len()
}

// IDs returns the shadowed file ids in key order.
func (o *Overlay) IDs() []interner.FileID {
	ids := make([]interner.FileID, 0, o.files.Len())
	itr := o.files.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		ids = append(ids, id)
	}
	return ids
}
