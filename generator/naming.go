package generator

import (
	"fmt"
	"time"

	"github.com/dendrascience/fastgen/words"
)

const (
	// FileTimestampLayout is the timestamp suffix of generated file names.
	FileTimestampLayout = "20060102_150405"
	ManifestName        = "README.md"
	FileExt             = ".txt"
)

// FolderName returns <serial>_<primary>_<secondary>_<digits>.
func FolderName(src *words.Source, serial int) string {
	return fmt.Sprintf("%04d_%s_%s_%s",
		serial,
		src.Combination(words.Primary),
		src.Combination(words.Secondary),
		src.RandomDigits(10),
	)
}

// FileName returns <num>_<folder>_<technical>_<text>_<digits>_<timestamp>.txt.
// The serial prefix makes names unique within a folder; the random parts
// keep them unique across runs in practice.
func FileName(src *words.Source, folder string, num int, now time.Time) string {
	return fmt.Sprintf("%04d_%s_%s_%s_%s_%s%s",
		num,
		folder,
		src.Combination(words.Technical),
		src.RandomText(10),
		src.RandomDigits(10),
		now.Format(FileTimestampLayout),
		FileExt,
	)
}
