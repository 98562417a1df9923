package util

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// Digest returns the xxhash64 of data.
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// FileDigest streams the file at path through xxhash64.
func FileDigest(fsys afero.Fs, path string) (uint64, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("digest %s: %w", path, ErrExpectedFile)
	}
	f, err := fsys.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("digest %s: %w", path, err)
	}
	return h.Sum64(), nil
}

// FormatDigest renders a digest as 16 lowercase hex characters.
func FormatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}

// ParseDigest is the inverse of FormatDigest.
func ParseDigest(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidDigest)
	}
	d, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidDigest)
	}
	return d, nil
}

// WriteJSONFile writes v as indented JSON to path, replacing any existing file.
func WriteJSONFile(fsys afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, append(data, '\n'), 0o644)
}

// ReadJSONFile decodes the JSON file at path into v.
func ReadJSONFile(fsys afero.Fs, path string, v any) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
