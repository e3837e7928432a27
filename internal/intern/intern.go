// Package intern provides a bidirectional map from task-id strings to dense
// integer indices, used to key the forward scheduler's unscheduled-task set
// (schedcore.State). Insertions are
// idempotent, and ids are assigned in first-seen order starting at zero.
package intern

// Interner assigns dense, zero-based integer ids to strings on first sight
// and returns the same id on every subsequent Intern call for that string.
// Not safe for concurrent use; each scheduler run owns its own Interner.
type Interner struct {
	toInt map[string]int
	toStr []string
}

// New returns an empty Interner.
func New() *Interner {
	return &Interner{toInt: make(map[string]int)}
}

// Intern returns s's id, assigning the next dense id if s has not been seen.
func (in *Interner) Intern(s string) int {
	if id, ok := in.toInt[s]; ok {
		return id
	}
	id := len(in.toStr)
	in.toInt[s] = id
	in.toStr = append(in.toStr, s)
	return id
}

// Lookup returns s's id and whether it has been interned.
func (in *Interner) Lookup(s string) (int, bool) {
	id, ok := in.toInt[s]
	return id, ok
}

// Resolve returns the string for a previously assigned id. Panics if id is
// out of range, which indicates a caller bug (an id that was never issued
// by this Interner).
func (in *Interner) Resolve(id int) string {
	return in.toStr[id]
}

// Len returns the number of distinct strings interned so far.
func (in *Interner) Len() int {
	return len(in.toStr)
}
