// Package props is a small property service in the spirit of Android's SystemProperties.
//
// Read-only "ro." properties come from build.prop style files and can be assigned once.
// "persist." properties are stored one file per key and survive restarts. Everything else
// lives in memory.
package props

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxKeyLength mirrors PROP_NAME_MAX minus the terminator.
	MaxKeyLength = 31
	// MaxValueLength mirrors PROP_VALUE_MAX minus the terminator.
	MaxValueLength = 91

	readOnlyPrefix = "ro."
	persistPrefix  = "persist."
)

// Default locations on the device.
const (
	DefaultPersistDir = "/data/property"
	BuildPropPath     = "/system/build.prop"
	LocalPropPath     = "/data/local.prop"
)

var (
	// ErrReadOnly is returned when assigning an "ro." property a second time.
	ErrReadOnly = errors.New("property is read-only")
	// ErrInvalidKey is returned for empty, overlong or malformed property names.
	ErrInvalidKey = errors.New("invalid property name")
	// ErrValueTooLong is returned for values longer than MaxValueLength.
	ErrValueTooLong = errors.New("property value too long")
)

// Store reads and writes properties.
type Store interface {
	Get(key string) string
	Set(key, value string) error
}

// GetDefault returns the value of key, or def when it is unset or empty.
func GetDefault(s Store, key, def string) string {
	v := s.Get(key)
	if v == "" {
		return def
	}
	return v
}

// GetInt parses the value of key as an integer, def is returned when it is unset or malformed.
func GetInt(s Store, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s.Get(key)))
	if err != nil {
		return def
	}
	return v
}

// GetBool returns true for "1", "y", "yes", "on" and "true", false for their negations and def
// for anything else.
func GetBool(s Store, key string, def bool) bool {
	switch s.Get(key) {
	case "1", "y", "yes", "on", "true":
		return true
	case "0", "n", "no", "off", "false":
		return false
	default:
		return def
	}
}

// FileStore is the Store used on the device.
type FileStore struct {
	mu         sync.RWMutex
	persistDir string
	values     map[string]string
}

// NewMemory creates a Store that persists nothing, seeded with values.
func NewMemory(values map[string]string) *FileStore {
	s := &FileStore{values: map[string]string{}}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Open loads the given build.prop style files in order, later files overriding earlier ones, and
// then the persistent properties found in persistDir. Missing files are skipped.
func Open(persistDir string, propFiles ...string) (*FileStore, error) {
	s := &FileStore{persistDir: persistDir, values: map[string]string{}}
	var result error
	for _, path := range propFiles {
		values, err := LoadPropFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.WithField("file", path).Debug("property file not present")
				continue
			}
			result = multierror.Append(result, err)
			continue
		}
		for k, v := range values {
			s.values[k] = v
		}
	}
	if persistDir != "" {
		if err := s.loadPersistent(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return s, result
}

func (s *FileStore) loadPersistent() error {
	entries, err := os.ReadDir(s.persistDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading persistent properties: %w", err)
	}
	var result error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), persistPrefix) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.persistDir, e.Name()))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		s.values[e.Name()] = strings.TrimRight(string(b), "\n")
	}
	return result
}

// Get implements Store, unset properties read as "".
func (s *FileStore) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if len(value) > MaxValueLength {
		return fmt.Errorf("%s: %w", key, ErrValueTooLong)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.HasPrefix(key, readOnlyPrefix) {
		if _, ok := s.values[key]; ok {
			return fmt.Errorf("%s: %w", key, ErrReadOnly)
		}
	}
	if strings.HasPrefix(key, persistPrefix) && s.persistDir != "" {
		if err := writePersistent(s.persistDir, key, value); err != nil {
			return err
		}
	}
	s.values[key] = value
	log.WithFields(log.Fields{"key": key, "value": value}).Debug("property set")
	return nil
}

// Keys returns a snapshot of every property currently set.
func (s *FileStore) Keys() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]string, len(s.values))
	for k, v := range s.values {
		result[k] = v
	}
	return result
}

// ValidateKey checks a property name.
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-', c == '@', c == ':':
		default:
			return fmt.Errorf("%q: %w", key, ErrInvalidKey)
		}
	}
	return nil
}

func writePersistent(dir, key, value string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+key)
	if err != nil {
		return fmt.Errorf("persisting %s: %w", key, err)
	}
	_, err = tmp.WriteString(value)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(dir, key))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persisting %s: %w", key, err)
	}
	return nil
}

// LoadPropFile parses a build.prop style file.
func LoadPropFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	values, err := ParsePropFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// ParsePropFile reads key=value lines. Blank lines and lines starting with '#' are ignored,
// whitespace around keys and values is trimmed and lines without '=' are skipped.
func ParsePropFile(r io.Reader) (map[string]string, error) {
	values := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	return values, scanner.Err()
}
