package generator

import (
	"sync"
	"time"

	"github.com/dendrascience/fastgen/util"
)

// FolderRecord tracks one folder from creation to completion. Write callbacks
// update it concurrently.
type FolderRecord struct {
	Name    string
	Dir     string
	Planned int
	Start   time.Time
	End     time.Time

	mu          sync.Mutex
	files       util.FileTable
	bytes       int64
	errors      int
	interrupted bool
}

func newFolderRecord(name, dir string, planned int, start time.Time) *FolderRecord {
	return &FolderRecord{Name: name, Dir: dir, Planned: planned, Start: start}
}

func (r *FolderRecord) addFile(e util.FileEntry) {
	r.mu.Lock()
	r.files.Add(e)
	r.bytes += e.Size
	r.mu.Unlock()
}

func (r *FolderRecord) addError() {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
}

func (r *FolderRecord) finish(end time.Time) {
	r.mu.Lock()
	r.End = end
	r.mu.Unlock()
}

// interrupt closes the record for a folder that stopped before its planned
// file count was reached.
func (r *FolderRecord) interrupt(end time.Time) {
	r.mu.Lock()
	r.End = end
	r.interrupted = true
	r.mu.Unlock()
}

func (r *FolderRecord) Interrupted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interrupted
}

// Created returns the number of files written so far.
func (r *FolderRecord) Created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files.Len()
}

func (r *FolderRecord) Bytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

func (r *FolderRecord) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// Files returns the names of the written files in name order.
func (r *FolderRecord) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files.Names()
}

func (r *FolderRecord) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.End.Sub(r.Start)
}

// WriteSpan is the time between the first and last completed write.
func (r *FolderRecord) WriteSpan() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.files.Len() == 0 {
		return 0
	}
	return r.files.NewestWrite().Sub(r.files.OldestWrite())
}

// Collisions counts writes that landed on a name already written in this
// folder. Each one overwrote an earlier file.
func (r *FolderRecord) Collisions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files.Len() - r.files.UniqueNameCount()
}
