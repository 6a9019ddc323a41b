// Package world bundles one complete compilation context at one revision
// and memoizes artifacts derived from it.
//
// A Snapshot is an immutable view: the file system state, the entry point,
// the task inputs and the font handle that together determine every derived
// artifact. A Graph binds to exactly one Snapshot and computes each artifact
// type at most once.
package world

import (
	"sort"

	"github.com/google/uuid"

	"github.com/quillmark/world/fingerprint"
	"github.com/quillmark/world/interner"
	"github.com/quillmark/world/vfs"
)

// ProjectID identifies a project instance. Instance ids are ephemeral and
// distinct from any ids persisted on disk.
type ProjectID string

// Primary is the id of the session's main project instance.
const Primary ProjectID = "primary"

// NewTaskID mints a fresh id for an ad-hoc task instance, such as an export
// run against alternate inputs.
func NewTaskID(prefix string) ProjectID {
	return ProjectID(prefix + "/" + uuid.NewString())
}

// Signal records why a revision was published. Whether downstream work runs
// depends on the signal and the consumer's settings.
type Signal struct {
	// ByMemEvents marks the revision as caused by in-memory shadow edits.
	ByMemEvents bool
	// ByFsEvents marks the revision as caused by file system events.
	ByFsEvents bool
	// ByEntryUpdate marks the revision as caused by an entry change.
	ByEntryUpdate bool
}

// Merge combines two signals.
func (s Signal) Merge(other Signal) Signal {
	return Signal{
		ByMemEvents:   s.ByMemEvents || other.ByMemEvents,
		ByFsEvents:    s.ByFsEvents || other.ByFsEvents,
		ByEntryUpdate: s.ByEntryUpdate || other.ByEntryUpdate,
	}
}

// Any reports whether there is any reason to act on the revision.
func (s Signal) Any() bool {
	return s.ByMemEvents || s.ByFsEvents || s.ByEntryUpdate
}

// Exclude clears the reasons set in excluded.
func (s Signal) Exclude(excluded Signal) Signal {
	return Signal{
		ByMemEvents:   s.ByMemEvents && !excluded.ByMemEvents,
		ByFsEvents:    s.ByFsEvents && !excluded.ByFsEvents,
		ByEntryUpdate: s.ByEntryUpdate && !excluded.ByEntryUpdate,
	}
}

// EntryState names the compilation entry: the workspace root and the main
// file.
type EntryState struct {
	Root string
	Main interner.FileID
}

// IsSet reports whether a main file has been selected.
func (e EntryState) IsSet() bool {
	return e.Main != 0
}

// Inputs is an immutable string dictionary passed to the compilation, with a
// stable fingerprint for cache keys. The zero value and nil are both the
// empty dictionary.
type Inputs struct {
	keys   []string
	values map[string]string
	fp     fingerprint.Fingerprint
}

// NewInputs builds an input dictionary from a map. The map is copied.
func NewInputs(m map[string]string) *Inputs {
	in := &Inputs{values: make(map[string]string, len(m))}
	for k, v := range m {
		in.keys = append(in.keys, k)
		in.values[k] = v
	}
	sort.Strings(in.keys)
	fp := fingerprint.FromString("inputs")
	for _, k := range in.keys {
		fp = fp.Combine(fingerprint.FromString(k + "\x00" + in.values[k]))
	}
	in.fp = fp
	return in
}

// Get looks up a key.
func (in *Inputs) Get(key string) (string, bool) {
	if in == nil {
		return "", false
	}
	v, ok := in.values[key]
	return v, ok
}

// Len returns the number of entries.
func (in *Inputs) Len() int {
	if in == nil {
		return 0
	}
	return len(in.keys)
}

// Fingerprint returns a stable digest over the sorted entries.
func (in *Inputs) Fingerprint() fingerprint.Fingerprint {
	if in == nil {
		return fingerprint.Fingerprint{}
	}
	return in.fp
}

// Equal reports whether two dictionaries hold the same entries.
func (in *Inputs) Equal(other *Inputs) bool {
	if in.Len() != other.Len() {
		return false
	}
	if in.Len() == 0 {
		return true
	}
	return in.fp == other.fp
}

// TaskInputs overrides parts of a snapshot for a derived task. Nil fields
// keep the snapshot's current value.
type TaskInputs struct {
	Entry  *EntryState
	Inputs *Inputs
}

// FontResolver is the collaborator that supplies fonts to a compilation.
// Discovery and loading live with the embedder; snapshots only carry the
// handle.
type FontResolver interface {
	Font(index int) ([]byte, bool)
	FontCount() int
}

// Document is the record of a finished compilation kept for warm starts.
type Document struct {
	Fingerprint fingerprint.Fingerprint
	Title       string
	PageCount   int
}

// Snapshot describes one complete compilation context at one revision. It is
// immutable after construction; deriving a variant always allocates.
type Snapshot struct {
	ID         ProjectID
	Signal     Signal
	Entry      EntryState
	Inputs     *Inputs
	Fonts      FontResolver
	Vfs        *vfs.Vfs
	SuccessDoc *Document
}

// FromWorld creates the primary snapshot over a file system view.
func FromWorld(v *vfs.Vfs, entry EntryState, fonts FontResolver) *Snapshot {
	return &Snapshot{
		ID:     Primary,
		Entry:  entry,
		Inputs: NewInputs(nil),
		Fonts:  fonts,
		Vfs:    v,
	}
}

// Revision returns the revision of the underlying file system view.
func (s *Snapshot) Revision() uint64 {
	return s.Vfs.Revision()
}

// Task derives a snapshot for different inputs. When the overrides match the
// snapshot's current entry and inputs the receiver is returned unchanged;
// otherwise the derived snapshot shares an isolated fork of the file system
// view. Derived documents should not be published as revisioned state.
func (s *Snapshot) Task(t TaskInputs) *Snapshot {
	entryChanged := t.Entry != nil && *t.Entry != s.Entry
	inputsChanged := t.Inputs != nil && !t.Inputs.Equal(s.Inputs)
	if !entryChanged && !inputsChanged {
		return s
	}

	derived := *s
	derived.Vfs = s.Vfs.Fork()
	if entryChanged {
		derived.Entry = *t.Entry
		derived.Signal = derived.Signal.Merge(Signal{ByEntryUpdate: true})
	}
	if inputsChanged {
		derived.Inputs = t.Inputs
	}
	return &derived
}
