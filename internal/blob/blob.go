// Package blob stores snapshot documents on the filesystem under their
// object keys. Content is zstd-compressed at rest and integrity-checked
// with a blake3 digest; downloads are authorized by short-lived signed
// tokens.
package blob

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrBadDigest  = errors.New("object digest mismatch")
	ErrInvalidKey = errors.New("invalid object key")
)

// Info is the metadata kept alongside each object.
type Info struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	Digest      string            `json:"digest"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Store is a filesystem-backed object store rooted at a directory.
type Store struct {
	root    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore opens a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Store{root: dir, encoder: encoder, decoder: decoder}, nil
}

// Put stores an object under key. Writes go through a temp file and
// rename so a crash never leaves a partial object behind.
func (s *Store) Put(key string, data []byte, contentType string, metadata map[string]string) (*Info, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating object directory: %w", err)
	}

	digest := blake3.Sum256(data)
	info := &Info{
		Key:         key,
		Size:        int64(len(data)),
		Digest:      hex.EncodeToString(digest[:]),
		ContentType: contentType,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}

	compressed := s.encoder.EncodeAll(data, nil)

	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp object: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("closing object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("renaming object: %w", err)
	}

	metaJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshaling object info: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaJSON, 0644); err != nil {
		return nil, fmt.Errorf("writing object info: %w", err)
	}

	return info, nil
}

// Get retrieves and verifies an object's content.
func (s *Store) Get(key string) ([]byte, *Info, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, nil, err
	}

	compressed, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading object: %w", err)
	}

	info, err := s.Stat(key)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing object: %w", err)
	}

	digest := blake3.Sum256(data)
	if hex.EncodeToString(digest[:]) != info.Digest {
		return nil, nil, ErrBadDigest
	}

	return data, info, nil
}

// Stat returns an object's metadata without reading its content.
func (s *Store) Stat(key string) (*Info, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	metaJSON, err := os.ReadFile(path + ".meta")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading object info: %w", err)
	}
	var info Info
	if err := json.Unmarshal(metaJSON, &info); err != nil {
		return nil, fmt.Errorf("parsing object info: %w", err)
	}
	return &info, nil
}

// Exists reports whether an object is stored under key.
func (s *Store) Exists(key string) bool {
	path, err := s.objectPath(key)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// objectPath maps a key to a filesystem path, rejecting traversal.
func (s *Store) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)+".zst"), nil
}
