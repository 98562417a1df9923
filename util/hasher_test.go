package util

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestFileDigest(t *testing.T) {
	fsys := afero.NewMemMapFs()
	afero.WriteFile(fsys, "/data/hello.txt", []byte("hello world"), 0o644)
	afero.WriteFile(fsys, "/data/empty.txt", nil, 0o644)
	fsys.MkdirAll("/data/subdir", 0o755)

	tests := []struct {
		name    string
		path    string
		want    uint64
		wantErr bool
	}{
		{name: "hello world file", path: "/data/hello.txt", want: Digest([]byte("hello world"))},
		{name: "empty file", path: "/data/empty.txt", want: Digest(nil)},
		{name: "directory returns error", path: "/data/subdir", wantErr: true},
		{name: "non-existent file", path: "/data/missing.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FileDigest(fsys, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("FileDigest(%q) expected error, got nil", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("FileDigest(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("FileDigest(%q) = %x, want %x", tt.path, got, tt.want)
			}
		})
	}

	if _, err := FileDigest(fsys, "/data/subdir"); !errors.Is(err, ErrExpectedFile) {
		t.Errorf("FileDigest on directory error = %v, want ErrExpectedFile", err)
	}
}

func TestFormatParseDigest(t *testing.T) {
	d := Digest([]byte("fastgen"))
	s := FormatDigest(d)
	if len(s) != 16 {
		t.Errorf("FormatDigest length = %d, want 16", len(s))
	}

	parsed, err := ParseDigest(s)
	if err != nil {
		t.Fatalf("ParseDigest(%q) unexpected error: %v", s, err)
	}
	if parsed != d {
		t.Errorf("ParseDigest(%q) = %x, want %x", s, parsed, d)
	}

	for _, bad := range []string{"", "xyz", "zzzzzzzzzzzzzzzz", "0123"} {
		if _, err := ParseDigest(bad); !errors.Is(err, ErrInvalidDigest) {
			t.Errorf("ParseDigest(%q) error = %v, want ErrInvalidDigest", bad, err)
		}
	}
}

func TestStatisticsSave(t *testing.T) {
	fsys := afero.NewMemMapFs()
	fsys.MkdirAll("/out", 0o755)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s := NewStatistics("run-1", start)
	s.TotalFiles = 100
	s.TotalBytes = 2 * 1024 * 1024
	s.Finalize(start.Add(10 * time.Second))

	for name, got := range map[string][2]float64{
		"DurationSeconds": {s.DurationSeconds, 10},
		"FilesPerSecond":  {s.FilesPerSecond, 10},
		"MBPerSecond":     {s.MBPerSecond, 0.2},
	} {
		if math.Abs(got[0]-got[1]) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got[0], got[1])
		}
	}

	path, err := s.Save(fsys, "/out")
	if err != nil {
		t.Fatalf("Save unexpected error: %v", err)
	}
	if want := filepath.Join("/out", StatisticsFileName); path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}

	var loaded Statistics
	if err := ReadJSONFile(fsys, path, &loaded); err != nil {
		t.Fatalf("ReadJSONFile unexpected error: %v", err)
	}
	if loaded.RunID != "run-1" || loaded.TotalFiles != 100 {
		t.Errorf("loaded statistics = %+v, want run-1 with 100 files", loaded)
	}
}

func TestStatisticsFinalizeZeroDuration(t *testing.T) {
	start := time.Now()
	s := NewStatistics("r", start)
	s.TotalFiles = 5
	s.Finalize(start)
	if s.FilesPerSecond != 0 || s.MBPerSecond != 0 {
		t.Errorf("zero duration throughput = %v files/s, %v MB/s, want 0", s.FilesPerSecond, s.MBPerSecond)
	}
}
