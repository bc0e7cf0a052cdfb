// Package filerepo persists the session store's credential tier to a YAML
// file under the user's state directory. Values are sealed at rest.
package filerepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jrsteele09/go-timetrack-client/sessions"
	"gopkg.in/yaml.v3"
)

var _ sessions.Repo = (*Repo)(nil)

const fileVersion = 1

// sessionFile is the on-disk layout of session.yml.
type sessionFile struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values,omitempty"`
}

type Repo struct {
	path   string
	sealer *Sealer
	mu     sync.Mutex
}

// New returns a repo backed by path. The file is created on first write.
func New(path string, sealer *Sealer) *Repo {
	return &Repo{path: path, sealer: sealer}
}

// Open builds a repo for the session file and its key file, creating the
// key material if needed.
func Open(sessionFile, keyFile string) (*Repo, error) {
	sealer, err := NewSealer(keyFile)
	if err != nil {
		return nil, fmt.Errorf("filerepo.Open: %w", err)
	}
	return New(sessionFile, sealer), nil
}

func (r *Repo) Path() string {
	return r.path
}

// Load returns the unsealed values. A missing file is an empty session.
func (r *Repo) Load() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sealed, err := r.read()
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(sealed))
	for k, v := range sealed {
		plain, err := r.sealer.Open(k, v)
		if err != nil {
			return nil, fmt.Errorf("unseal session file: %w", err)
		}
		values[k] = plain
	}
	return values, nil
}

// Update applies set and remove in one atomic file replacement. When no
// values remain the file is deleted.
func (r *Repo) Update(set map[string]string, remove ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sealed, err := r.read()
	if err != nil {
		// An unreadable file is replaced rather than merged.
		sealed = make(map[string]string)
	}
	for _, k := range remove {
		delete(sealed, k)
	}
	for k, v := range set {
		s, err := r.sealer.Seal(k, v)
		if err != nil {
			return fmt.Errorf("seal %s: %w", k, err)
		}
		sealed[k] = s
	}

	if len(sealed) == 0 {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove session file: %w", err)
		}
		return nil
	}
	return r.write(sealed)
}

// Keys lists the persisted keys without unsealing them.
func (r *Repo) Keys() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sealed, err := r.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(sealed))
	for k := range sealed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Repo) read() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if f.Version != fileVersion {
		return nil, fmt.Errorf("parse session file: unsupported version %d", f.Version)
	}
	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	return f.Values, nil
}

func (r *Repo) write(sealed map[string]string) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(sessionFile{Version: fileVersion, Values: sealed})
	if err != nil {
		return fmt.Errorf("marshal session file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yml")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
