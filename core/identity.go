package core

// Identity identifies the author of storage commits when the engine runs on
// the git-backed store.
type Identity struct {
	Name  string
	Email string
}
