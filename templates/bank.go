// Package templates picks and renders the text templates used as file bodies.
package templates

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taigrr/colorhash"
)

var (
	ErrTooFewTemplates = errors.New("at least two templates are required")
	ErrUnknownTemplate = errors.New("unknown template index")
)

// leastUsedWindow is how many of the least used templates Next picks from.
const leastUsedWindow = 10

// TimestampLayout is the format of the auto-filled ${timestamp} value.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// placeholder matches $$, ${name} and $name.
var placeholder = regexp.MustCompile(`(?i)\$(?:(\$)|\{([_a-z][_a-z0-9]*)\}|([_a-z][_a-z0-9]*))`)

type (
	Bank struct {
		mu        sync.Mutex
		templates []string
		usage     []int64
		last      map[int]int
		rng       *rand.Rand
		now       func() time.Time
	}

	Option func(*Bank)
)

func WithSeed(seed uint64) Option {
	return func(b *Bank) {
		b.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
}

// WithNow replaces the clock used for the ${timestamp} value.
func WithNow(now func() time.Time) Option {
	return func(b *Bank) {
		if now != nil {
			b.now = now
		}
	}
}

// New returns a Bank over a copy of tmpls. With fewer than two templates the
// no-consecutive-repeat rule of Next cannot hold, so New refuses them.
func New(tmpls []string, opts ...Option) (*Bank, error) {
	if len(tmpls) < 2 {
		return nil, fmt.Errorf("got %d: %w", len(tmpls), ErrTooFewTemplates)
	}
	b := &Bank{
		templates: slices.Clone(tmpls),
		usage:     make([]int64, len(tmpls)),
		last:      make(map[int]int),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// CallerID derives a stable caller identity from a name, typically the folder
// a worker is filling.
func CallerID(name string) int {
	return colorhash.HashString(name)
}

// Next returns the index of the template caller should use next. It draws
// uniformly from the least used templates, skipping whatever this caller got
// last time, so a caller never sees the same template twice in a row.
func (b *Bank) Next(caller int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	order := make([]int, len(b.templates))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		switch {
		case b.usage[x] < b.usage[y]:
			return -1
		case b.usage[x] > b.usage[y]:
			return 1
		}
		return 0
	})
	if len(order) > leastUsedWindow {
		order = order[:leastUsedWindow]
	}

	last, seen := b.last[caller]
	candidates := order[:0:0]
	for _, idx := range order {
		if seen && idx == last {
			continue
		}
		candidates = append(candidates, idx)
	}

	idx := candidates[b.rng.IntN(len(candidates))]
	b.usage[idx]++
	b.last[caller] = idx
	return idx
}

// Render substitutes values into template idx. Placeholders with no value are
// left as written. uuid, timestamp and magic_number are filled in when the
// caller does not supply them.
func (b *Bank) Render(idx int, values map[string]string) (string, error) {
	if idx < 0 || idx >= len(b.templates) {
		return "", fmt.Errorf("template %d of %d: %w", idx, len(b.templates), ErrUnknownTemplate)
	}
	tmpl := b.templates[idx]

	lookup := func(name string) (string, bool) {
		if v, ok := values[name]; ok {
			return v, true
		}
		switch name {
		case "uuid":
			return uuid.NewString(), true
		case "timestamp":
			return b.now().Format(TimestampLayout), true
		case "magic_number":
			b.mu.Lock()
			n := 1000 + b.rng.IntN(9000)
			b.mu.Unlock()
			return strconv.Itoa(n), true
		}
		return "", false
	}

	var out strings.Builder
	out.Grow(len(tmpl))
	pos := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(tmpl, -1) {
		out.WriteString(tmpl[pos:m[0]])
		pos = m[1]

		var name string
		switch {
		case m[2] >= 0:
			out.WriteByte('$')
			continue
		case m[4] >= 0:
			name = tmpl[m[4]:m[5]]
		default:
			name = tmpl[m[6]:m[7]]
		}
		if v, ok := lookup(name); ok {
			out.WriteString(v)
		} else {
			out.WriteString(tmpl[m[0]:m[1]])
		}
	}
	out.WriteString(tmpl[pos:])
	return out.String(), nil
}

// Len returns the number of templates.
func (b *Bank) Len() int {
	return len(b.templates)
}

// Usage returns a copy of the per-template usage counters.
func (b *Bank) Usage() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.usage)
}

// TotalUses is the sum of Usage.
func (b *Bank) TotalUses() int64 {
	var total int64
	for _, n := range b.Usage() {
		total += n
	}
	return total
}
