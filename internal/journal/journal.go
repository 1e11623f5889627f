package journal

import "fmt"

// Journal is an undo log. Mutations register an undo func; reverting to a
// snapshot runs the undo funcs recorded after it in reverse order.
type Journal struct {
	entries []func()
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{}
}

// Append records an undo func for a mutation that has already been applied.
func (j *Journal) Append(undo func()) {
	j.entries = append(j.entries, undo)
}

// Snapshot returns an id usable with Revert.
func (j *Journal) Snapshot() int {
	return len(j.entries)
}

// Revert undoes every mutation recorded after the snapshot id.
func (j *Journal) Revert(id int) {
	if id < 0 || id > len(j.entries) {
		panic(fmt.Sprintf("journal: invalid snapshot %d (len %d)", id, len(j.entries)))
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i]()
		j.entries[i] = nil
	}
	j.entries = j.entries[:id]
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	return len(j.entries)
}

// Reset drops all entries, committing the applied mutations.
func (j *Journal) Reset() {
	j.entries = j.entries[:0]
}

// Set assigns value to *field and records the undo.
func Set[T any](j *Journal, field *T, value T) {
	prev := *field
	*field = value
	j.Append(func() { *field = prev })
}
