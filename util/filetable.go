package util

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

type (
	FileEntry struct {
		Name    string    `json:"name"`    // base name of the file inside its folder
		Size    int64     `json:"size"`    // bytes written
		Digest  uint64    `json:"digest"`  // xxhash64 of the written content
		Written time.Time `json:"written"` // time the write completed
	}
	FileTable struct {
		entries []FileEntry
		sorted  bool
	}
)

func (t *FileTable) UnmarshalJSON(data []byte) error {
	var aux struct {
		Entries []FileEntry `json:"entries"`
		Sorted  bool        `json:"sorted"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.entries = aux.Entries
	t.sorted = aux.Sorted
	return nil
}

func (t FileTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Entries []FileEntry `json:"entries"`
		Sorted  bool        `json:"sorted"`
	}{
		Entries: t.entries,
		Sorted:  t.sorted,
	})
}

func (t FileTable) Iterate(yield func(FileEntry) bool) {
	for _, entry := range t.entries {
		if !yield(entry) {
			return
		}
	}
}

func (t *FileTable) Add(e FileEntry) {
	t.sorted = false
	t.entries = append(t.entries, e)
}

func (t FileTable) Get(index int) FileEntry {
	if index < 0 || index >= len(t.entries) {
		return FileEntry{}
	}
	return t.entries[index]
}

// Sort orders entries by name. Generated names start with the zero-padded
// file serial, so name order is also serial order.
func (t *FileTable) Sort() {
	sort.Sort(t)
	t.sorted = true
}

func (t *FileTable) Len() int {
	return len(t.entries)
}

func (t *FileTable) Swap(i, j int) {
	t.entries[i], t.entries[j] = t.entries[j], t.entries[i]
}

func (t *FileTable) Less(i, j int) bool {
	return t.entries[i].Name < t.entries[j].Name
}

// Names returns the entry names in name order.
func (t *FileTable) Names() []string {
	if !t.sorted {
		t.Sort()
	}
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.Name)
	}
	return names
}

// TotalSize returns the number of bytes recorded across all entries.
func (t FileTable) TotalSize() int64 {
	var total int64
	for e := range t.Iterate {
		total += e.Size
	}
	return total
}

// UniqueNameCount returns the number of distinct names. It equals Len() when
// no two writes collided on the same name.
func (t FileTable) UniqueNameCount() int {
	names := make(map[string]struct{}, len(t.entries))
	for e := range t.Iterate {
		names[e.Name] = struct{}{}
	}
	return len(names)
}

// OldestWrite returns the earliest completion time in the table.
func (t FileTable) OldestWrite() time.Time {
	var oldest time.Time
	for e := range t.Iterate {
		if oldest.IsZero() || e.Written.Before(oldest) {
			oldest = e.Written
		}
	}
	return oldest
}

// NewestWrite does the opposite of OldestWrite
func (t FileTable) NewestWrite() time.Time {
	var newest time.Time
	for e := range t.Iterate {
		if e.Written.After(newest) {
			newest = e.Written
		}
	}
	return newest
}

// Digest folds the (name, digest) pairs of every entry, in name order, into a
// single folder digest. Two tables with the same files produce the same value
// regardless of insertion order.
func (t *FileTable) Digest() uint64 {
	if !t.sorted {
		t.Sort()
	}
	pairs := make(map[string]uint64, len(t.entries))
	for _, e := range t.entries {
		pairs[e.Name] = e.Digest
	}
	return FolderDigest(pairs)
}

// FolderDigest computes the folder digest from a name -> content digest map.
func FolderDigest(pairs map[string]uint64) uint64 {
	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	h := xxhash.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s:%016x\n", name, pairs[name])
	}
	return h.Sum64()
}
