package util

import (
	"encoding/json"
	"slices"
	"testing"
	"time"
)

func TestFileTable_Sort_PersistsState(t *testing.T) {
	ft := &FileTable{}

	ft.Add(FileEntry{Name: "0003_a.txt"})
	ft.Add(FileEntry{Name: "0001_a.txt"})
	ft.Add(FileEntry{Name: "0002_a.txt"})

	if ft.sorted {
		t.Error("FileTable should not be marked sorted after Add")
	}

	ft.Sort()

	if !ft.sorted {
		t.Error("FileTable should be marked sorted after Sort()")
	}
	for i, want := range []string{"0001_a.txt", "0002_a.txt", "0003_a.txt"} {
		if got := ft.Get(i).Name; got != want {
			t.Errorf("Get(%d).Name = %q, want %q", i, got, want)
		}
	}
}

func TestFileTable_GetOutOfRange(t *testing.T) {
	ft := &FileTable{}
	ft.Add(FileEntry{Name: "a"})

	if got := ft.Get(0).Name; got != "a" {
		t.Errorf("Get(0).Name = %q, want %q", got, "a")
	}
	for _, i := range []int{-1, 7} {
		if got := ft.Get(i); got != (FileEntry{}) {
			t.Errorf("Get(%d) = %+v, want zero entry", i, got)
		}
	}
}

func TestFileTable_Totals(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		entries    []FileEntry
		wantSize   int64
		wantUnique int
		wantOldest time.Time
		wantNewest time.Time
	}{
		{
			name: "empty table",
		},
		{
			name: "distinct names",
			entries: []FileEntry{
				{Name: "a", Size: 10, Written: last},
				{Name: "b", Size: 5, Written: first},
			},
			wantSize:   15,
			wantUnique: 2,
			wantOldest: first,
			wantNewest: last,
		},
		{
			name: "colliding names",
			entries: []FileEntry{
				{Name: "a", Size: 1, Written: first},
				{Name: "a", Size: 1, Written: first},
			},
			wantSize:   2,
			wantUnique: 1,
			wantOldest: first,
			wantNewest: first,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := FileTable{}
			for _, e := range tt.entries {
				ft.Add(e)
			}
			if got := ft.TotalSize(); got != tt.wantSize {
				t.Errorf("TotalSize() = %d, want %d", got, tt.wantSize)
			}
			if got := ft.UniqueNameCount(); got != tt.wantUnique {
				t.Errorf("UniqueNameCount() = %d, want %d", got, tt.wantUnique)
			}
			if got := ft.OldestWrite(); !got.Equal(tt.wantOldest) {
				t.Errorf("OldestWrite() = %v, want %v", got, tt.wantOldest)
			}
			if got := ft.NewestWrite(); !got.Equal(tt.wantNewest) {
				t.Errorf("NewestWrite() = %v, want %v", got, tt.wantNewest)
			}
		})
	}
}

func TestFileTable_DigestIgnoresInsertionOrder(t *testing.T) {
	a := &FileTable{}
	a.Add(FileEntry{Name: "0001.txt", Digest: Digest([]byte("one"))})
	a.Add(FileEntry{Name: "0002.txt", Digest: Digest([]byte("two"))})

	b := &FileTable{}
	b.Add(FileEntry{Name: "0002.txt", Digest: Digest([]byte("two"))})
	b.Add(FileEntry{Name: "0001.txt", Digest: Digest([]byte("one"))})

	if a.Digest() != b.Digest() {
		t.Errorf("digests differ by insertion order: %x vs %x", a.Digest(), b.Digest())
	}
	if got := b.Names(); !slices.Equal(got, []string{"0001.txt", "0002.txt"}) {
		t.Errorf("Names() = %v, want sorted names", got)
	}

	c := &FileTable{}
	c.Add(FileEntry{Name: "0001.txt", Digest: Digest([]byte("one"))})
	c.Add(FileEntry{Name: "0002.txt", Digest: Digest([]byte("changed"))})
	if a.Digest() == c.Digest() {
		t.Error("changed content should change the folder digest")
	}
}

func TestFileTable_JSONRoundTrip(t *testing.T) {
	ft := FileTable{}
	ft.Add(FileEntry{Name: "x", Size: 3, Digest: 42, Written: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})

	data, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("Marshal unexpected error: %v", err)
	}

	var decoded FileTable
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal unexpected error: %v", err)
	}
	if decoded.Len() != 1 {
		t.Fatalf("decoded Len() = %d, want 1", decoded.Len())
	}
	if decoded.Get(0).Digest != 42 {
		t.Errorf("decoded digest = %d, want 42", decoded.Get(0).Digest)
	}
	if !ft.Get(0).Written.Equal(decoded.Get(0).Written) {
		t.Errorf("decoded Written = %v, want %v", decoded.Get(0).Written, ft.Get(0).Written)
	}
}
