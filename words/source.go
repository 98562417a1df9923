// Package words hands out randomized word combinations used to name generated
// folders and files.
//
// Each category keeps a fixed-size pool of pre-built combinations and the set
// of values already dispensed from it. Lookups sample the pool a bounded number
// of times; when every sample hits a used value the pool is rebuilt and the
// used set cleared. Uniqueness therefore holds between rebuilds only, and a
// value handed out before a rebuild may be handed out again after it.
package words

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dendrascience/fastgen/internal/logger"
)

type Category string

const (
	Primary   Category = "primary"
	Secondary Category = "secondary"
	Technical Category = "technical"
)

// Categories lists every known category in a stable order.
var Categories = []Category{Primary, Secondary, Technical}

const (
	DefaultPoolSize = 10000
	fallbackWord    = "default"

	upperAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	letterSet     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitSet      = "0123456789"
)

type (
	pool struct {
		words         []string
		combos        []string
		used          map[string]struct{}
		dispensed     int
		regenerations int
	}

	Source struct {
		mu       sync.Mutex
		rng      *rand.Rand
		poolSize int
		pools    map[Category]*pool
		log      logger.Logger
	}

	Option func(*Source)

	// CategoryStats is a point-in-time view of one category.
	CategoryStats struct {
		Words         int `json:"words"`
		PoolSize      int `json:"pool_size"`
		Used          int `json:"used"`
		Dispensed     int `json:"dispensed"`
		Regenerations int `json:"regenerations"`
	}
)

func WithPoolSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithSeed makes every draw reproducible. Tests use it.
func WithSeed(seed uint64) Option {
	return func(s *Source) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds a Source from per-category word lists. Categories missing from
// lists, or present with no words, use the single fallback word.
func New(lists map[Category][]string, opts ...Option) *Source {
	s := &Source{
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		poolSize: DefaultPoolSize,
		pools:    make(map[Category]*pool, len(Categories)),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, c := range Categories {
		ws := lists[c]
		if len(ws) == 0 {
			s.log.Warn("empty word list, using fallback", "category", c, "word", fallbackWord)
			ws = []string{fallbackWord}
		}
		p := &pool{words: append([]string(nil), ws...)}
		s.fill(p)
		s.pools[c] = p
	}
	return s
}

// fill rebuilds the combination pool and clears the used set. Caller holds mu
// or owns p exclusively.
func (s *Source) fill(p *pool) {
	p.combos = make([]string, s.poolSize)
	for i := range p.combos {
		word := p.words[s.rng.IntN(len(p.words))]
		letter := letterSet[s.rng.IntN(len(letterSet))]
		p.combos[i] = fmt.Sprintf("%s_%c%d", word, letter, 100+s.rng.IntN(900))
	}
	p.used = make(map[string]struct{}, s.poolSize)
}

// Combination returns a combination from c that has not been dispensed since
// the last rebuild of c's pool. Unknown categories use Primary.
func (s *Source) Combination(c Category) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[c]
	if !ok {
		p = s.pools[Primary]
	}

	if v, ok := s.draw(p); ok {
		return v
	}

	s.fill(p)
	p.regenerations++
	s.log.Debug("word pool regenerated", "category", c, "regenerations", p.regenerations)

	// The used set is empty after a rebuild so the first draw always succeeds.
	v, _ := s.draw(p)
	return v
}

func (s *Source) draw(p *pool) (string, bool) {
	for range len(p.combos) {
		v := p.combos[s.rng.IntN(len(p.combos))]
		if _, used := p.used[v]; used {
			continue
		}
		p.used[v] = struct{}{}
		p.dispensed++
		return v, true
	}
	return "", false
}

// Used reports whether v has been dispensed from c since the last rebuild.
func (s *Source) Used(c Category, v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[c]
	if !ok {
		p = s.pools[Primary]
	}
	_, used := p.used[v]
	return used
}

// Regenerate rebuilds every category pool.
func (s *Source) Regenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pools {
		s.fill(p)
		p.regenerations++
	}
}

// RandomText returns n random upper-case letters.
func (s *Source) RandomText(n int) string {
	return s.randomFrom(upperAlphabet, n)
}

// RandomDigits returns n random decimal digits.
func (s *Source) RandomDigits(n int) string {
	return s.randomFrom(digitSet, n)
}

func (s *Source) randomFrom(alphabet string, n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	s.mu.Lock()
	for i := range buf {
		buf[i] = alphabet[s.rng.IntN(len(alphabet))]
	}
	s.mu.Unlock()
	return string(buf)
}

// Intn returns a random int in [0, n). Callers share the Source's generator so
// a seeded run stays reproducible.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Source) Stats() map[Category]CategoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Category]CategoryStats, len(s.pools))
	for c, p := range s.pools {
		out[c] = CategoryStats{
			Words:         len(p.words),
			PoolSize:      len(p.combos),
			Used:          len(p.used),
			Dispensed:     p.dispensed,
			Regenerations: p.regenerations,
		}
	}
	return out
}
