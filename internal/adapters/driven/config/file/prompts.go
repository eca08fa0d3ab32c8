package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// ErrUnknownPrompt is returned for names with neither a file nor a default.
var ErrUnknownPrompt = errors.New("unknown prompt")

// promptExt is the file extension of prompt overrides.
const promptExt = ".txt"

// PromptStore serves prompt templates from <dir>/<name>.txt, falling back to
// the defaults it was built with. The directory is seeded with the defaults
// on first Load so users have something to edit.
type PromptStore struct {
	mu       sync.RWMutex
	dir      string
	defaults map[string]string
	cache    map[string]string

	seedOnce sync.Once
	seedErr  error
}

// NewPromptStore creates a store rooted at dir (~/.kbassist/prompts when
// empty). No I/O happens until the first Load.
func NewPromptStore(dir string, defaults map[string]string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".kbassist", "prompts")
	}

	d := make(map[string]string, len(defaults))
	for name, tmpl := range defaults {
		d[name] = tmpl
	}

	return &PromptStore{
		dir:      dir,
		defaults: d,
		cache:    make(map[string]string),
	}, nil
}

// Load returns the template for name. A missing or empty file yields the
// default; a read error on an existing file is reported only when no
// default exists.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	s.mu.RLock()
	if tmpl, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return tmpl, nil
	}
	s.mu.RUnlock()

	tmpl, err := s.read(name)
	if err != nil || tmpl == "" {
		if def, ok := s.defaults[name]; ok {
			return def, nil
		}
		if err == nil || os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		tmpl = cached
	} else {
		s.cache[name] = tmpl
	}
	s.mu.Unlock()

	return tmpl, nil
}

// Reload drops cached templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// SeedError reports why the directory could not be seeded, if it failed.
// Load keeps working from defaults either way.
func (s *PromptStore) SeedError() error {
	return s.seedErr
}

func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, tmpl := range s.defaults {
		path := s.path(name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(tmpl+"\n"), 0600); err != nil {
			s.seedErr = fmt.Errorf("write default prompt %q: %w", name, err)
			return
		}
	}

	s.seedErr = s.writeReadme()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+promptExt)
}

func (s *PromptStore) writeReadme() error {
	path := filepath.Join(s.dir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	names := make([]string, 0, len(s.defaults))
	for name := range s.defaults {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# kbassist prompts\n\n")
	b.WriteString("Each file overrides one prompt template. Delete a file to restore its default.\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- `%s%s`\n", name, promptExt)
	}
	b.WriteString("\n`context_answer` must keep exactly two `%s` placeholders: ")
	b.WriteString("the reference material first, then the question.\n")
	b.WriteString("Templates without them are ignored and the built-in template is used.\n")

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write prompt readme: %w", err)
	}
	return nil
}
