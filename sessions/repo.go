package sessions

// Repo is the persisted tier of the session store. It must survive process
// restarts. Implementations are used under the store's lock and need not be
// safe for concurrent use by other callers.
type Repo interface {
	// Load returns every persisted key. Missing storage is an empty map, not an error.
	Load() (map[string]string, error)

	// Update writes the given keys and removes the listed ones in a single write.
	// Removal deletes the key; it never stores an empty value.
	Update(set map[string]string, remove ...string) error
}
