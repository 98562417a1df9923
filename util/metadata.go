package util

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dendrascience/fastgen/version"
	"github.com/spf13/afero"
)

// StatisticsFileName is the name of the run summary written under the output root.
const StatisticsFileName = "generation_statistics.json"

type Statistics struct {
	RunID            string         `json:"run_id"`
	GeneratorVersion string         `json:"generator_version"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	DurationSeconds  float64        `json:"duration_seconds"`
	FoldersPlanned   int            `json:"folders_planned"`
	FoldersCompleted int            `json:"folders_completed"`
	FilesPlanned     int            `json:"files_planned"`
	TotalFiles       int            `json:"total_files"`
	TotalBytes       int64          `json:"total_bytes"`
	Errors           int            `json:"errors"`
	Interrupted      bool           `json:"interrupted"`
	FilesPerSecond   float64        `json:"files_per_second"`
	MBPerSecond      float64        `json:"mb_per_second"`
	Components       map[string]any `json:"components,omitempty"`
}

// GetVersion returns the current generator version string.
// It delegates to the version package to get the version information.
func GetVersion() string {
	return version.GetVersion()
}

// NewStatistics starts a statistics record for a run.
func NewStatistics(runID string, start time.Time) *Statistics {
	return &Statistics{
		RunID:            runID,
		GeneratorVersion: GetVersion(),
		StartTime:        start,
		Components:       make(map[string]any),
	}
}

// Finalize stamps the end time and derives duration and throughput.
func (s *Statistics) Finalize(end time.Time) {
	s.EndTime = end
	s.DurationSeconds = end.Sub(s.StartTime).Seconds()
	if s.DurationSeconds > 0 {
		s.FilesPerSecond = float64(s.TotalFiles) / s.DurationSeconds
		s.MBPerSecond = float64(s.TotalBytes) / 1024 / 1024 / s.DurationSeconds
	}
}

// Save writes the statistics as JSON. If path does not end in .json it is
// treated as a directory and StatisticsFileName is appended.
func (s Statistics) Save(fsys afero.Fs, path string) (string, error) {
	if !strings.HasSuffix(path, ".json") {
		path = filepath.Join(path, StatisticsFileName)
	}
	return path, WriteJSONFile(fsys, path, s)
}
