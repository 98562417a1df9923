package generator

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dendrascience/fastgen/util"
)

const (
	completionHeading  = "## Completion"
	interruptedHeading = "## Interrupted"
	filesHeading       = "### Files"
)

// Manifest is what verify needs back out of a folder README.
type Manifest struct {
	Folder       string
	PlannedFiles int
	Completed    bool
	Interrupted  bool
	TotalFiles   int
	Digest       uint64
	Files        []string
}

// RenderManifest writes the README for rec. The completion section is only
// present once rec has finished; a folder cut short by an interrupt gets an
// interrupted section instead.
func RenderManifest(rec *FolderRecord, generatorVersion string) []byte {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	var b bytes.Buffer
	fmt.Fprintf(&b, "# Folder %s\n\n", rec.Name)
	fmt.Fprintf(&b, "Created: %s\n", rec.Start.Format(time.RFC3339))
	fmt.Fprintf(&b, "Generator version: %s\n", generatorVersion)
	fmt.Fprintf(&b, "Planned files: %d\n", rec.Planned)

	if rec.End.IsZero() {
		return b.Bytes()
	}

	names := rec.files.Names()
	if rec.interrupted {
		fmt.Fprintf(&b, "\n%s\n\n", interruptedHeading)
		fmt.Fprintf(&b, "Stopped: %s\n", rec.End.Format(time.RFC3339))
	} else {
		fmt.Fprintf(&b, "\n%s\n\n", completionHeading)
		fmt.Fprintf(&b, "Completed: %s\n", rec.End.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Total files: %d\n", len(names))
	fmt.Fprintf(&b, "Total size: %s (%d bytes)\n", humanize.IBytes(uint64(rec.bytes)), rec.bytes)
	fmt.Fprintf(&b, "Write errors: %d\n", rec.errors)
	fmt.Fprintf(&b, "Elapsed: %.2f seconds\n", rec.End.Sub(rec.Start).Seconds())
	fmt.Fprintf(&b, "Folder digest: %s\n", util.FormatDigest(rec.files.Digest()))
	fmt.Fprintf(&b, "\n%s\n\n", filesHeading)
	for _, n := range names {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	return b.Bytes()
}

// ParseManifest reads back a README produced by RenderManifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	inFiles := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "# Folder "):
			m.Folder = strings.TrimPrefix(line, "# Folder ")
		case line == completionHeading:
			m.Completed = true
		case line == interruptedHeading:
			m.Interrupted = true
		case line == filesHeading:
			inFiles = true
		case inFiles && strings.HasPrefix(line, "- "):
			m.Files = append(m.Files, strings.TrimPrefix(line, "- "))
		default:
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			var err error
			switch key {
			case "Planned files":
				m.PlannedFiles, err = strconv.Atoi(value)
			case "Total files":
				m.TotalFiles, err = strconv.Atoi(value)
			case "Folder digest":
				m.Digest, err = util.ParseDigest(value)
			}
			if err != nil {
				return nil, fmt.Errorf("manifest %q: %w", key, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m.Folder == "" {
		return nil, fmt.Errorf("manifest has no folder heading: %w", util.ErrManifestMismatch)
	}
	return m, nil
}
