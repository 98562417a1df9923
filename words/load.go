package words

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"path"
	"path/filepath"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"

	"github.com/dendrascience/fastgen/internal/logger"
	"github.com/dendrascience/fastgen/util"
)

//go:embed lists/*.txt
var builtinLists embed.FS

// Builtin returns the word lists compiled into the binary.
func Builtin() map[Category][]string {
	out := make(map[Category][]string, len(Categories))
	for _, c := range Categories {
		data, err := builtinLists.ReadFile(path.Join("lists", string(c)+".txt"))
		if err != nil {
			out[c] = []string{fallbackWord}
			continue
		}
		out[c] = parseList(data)
	}
	return out
}

// LoadLists reads <dir>/<category>.txt for every category. A missing dir is a
// configuration error. A category file that cannot be read falls back to the
// single word "default" and logs a warning.
func LoadLists(fsys afero.Fs, dir string, log logger.Logger) (map[Category][]string, error) {
	if log == nil {
		log = logger.Nop()
	}
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("word lists %q: %w", dir, util.ErrMissingWordLists)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("word lists %q: %w", dir, util.ErrExpectedDirectory)
	}

	out := make(map[Category][]string, len(Categories))
	for _, c := range Categories {
		file := filepath.Join(dir, string(c)+".txt")
		data, err := afero.ReadFile(fsys, file)
		if err != nil {
			log.Warn("could not read word list, using fallback", "category", c, "file", file, "error", err)
			out[c] = []string{fallbackWord}
			continue
		}
		ws := parseList(data)
		if len(ws) == 0 {
			log.Warn("word list is empty, using fallback", "category", c, "file", file)
			ws = []string{fallbackWord}
		}
		out[c] = ws
	}
	return out, nil
}

// parseList returns one slugged word per non-blank line, first occurrence wins.
func parseList(data []byte) []string {
	seen := make(map[string]struct{})
	var ws []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		w := slug.Make(sc.Text())
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		ws = append(ws, w)
	}
	return ws
}
