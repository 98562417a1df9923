package templates

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresTwoTemplates(t *testing.T) {
	tests := []struct {
		name  string
		tmpls []string
		err   error
	}{
		{"nil", nil, ErrTooFewTemplates},
		{"one", []string{"a"}, ErrTooFewTemplates},
		{"two", []string{"a", "b"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tmpls)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNextNeverRepeatsForSameCaller(t *testing.T) {
	for _, n := range []int{2, 3, 12, 25} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			tmpls := make([]string, n)
			for i := range tmpls {
				tmpls[i] = "t" + strconv.Itoa(i)
			}
			b, err := New(tmpls, WithSeed(uint64(n)))
			require.NoError(t, err)

			last := map[int]int{}
			for i := range 2000 {
				caller := i % 3
				idx := b.Next(caller)
				require.GreaterOrEqual(t, idx, 0)
				require.Less(t, idx, n)
				if prev, ok := last[caller]; ok {
					require.NotEqual(t, prev, idx, "caller %d repeated at step %d", caller, i)
				}
				last[caller] = idx
			}
		})
	}
}

func TestNextFavorsLeastUsed(t *testing.T) {
	tmpls := make([]string, 30)
	for i := range tmpls {
		tmpls[i] = "t" + strconv.Itoa(i)
	}
	b, err := New(tmpls, WithSeed(42))
	require.NoError(t, err)

	for range 3000 {
		b.Next(CallerID("0001_folder"))
	}
	usage := b.Usage()
	lo, hi := usage[0], usage[0]
	for _, u := range usage {
		lo = min(lo, u)
		hi = max(hi, u)
	}
	// 100 uses each on a perfectly even split
	assert.GreaterOrEqual(t, lo, int64(90), usage)
	assert.LessOrEqual(t, hi, int64(110), usage)
	assert.Equal(t, int64(3000), b.TotalUses())
}

func TestCallerIDStable(t *testing.T) {
	assert.Equal(t, CallerID("0007_alpha"), CallerID("0007_alpha"))
}

func TestRender(t *testing.T) {
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	b, err := New([]string{
		"hello ${name} and $name, $missing ${also_missing}",
		"cost $$5 at ${timestamp}",
		"id=${uuid} magic=$magic_number",
		"ids ${uuid}",
	}, WithSeed(1), WithNow(func() time.Time { return fixed }))
	require.NoError(t, err)

	out, err := b.Render(0, map[string]string{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world and world, $missing ${also_missing}", out)

	out, err = b.Render(1, nil)
	require.NoError(t, err)
	assert.Equal(t, "cost $5 at 2024-05-06 07:08:09.123456", out)

	out, err = b.Render(2, nil)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	_, err = uuid.Parse(strings.TrimPrefix(fields[0], "id="))
	assert.NoError(t, err)
	magic, err := strconv.Atoi(strings.TrimPrefix(fields[1], "magic="))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, magic, 1000)
	assert.LessOrEqual(t, magic, 9999)

	out, err = b.Render(3, map[string]string{"uuid": "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "ids fixed", out)
}

func TestRenderUnknownIndex(t *testing.T) {
	b, err := New([]string{"a", "b"})
	require.NoError(t, err)
	for _, idx := range []int{-1, 2, 100} {
		_, err := b.Render(idx, nil)
		assert.ErrorIs(t, err, ErrUnknownTemplate)
	}
}

func TestBuiltin(t *testing.T) {
	tmpls := Builtin()
	require.GreaterOrEqual(t, len(tmpls), 2)

	b, err := New(tmpls, WithSeed(5))
	require.NoError(t, err)
	values := map[string]string{
		"folder_name": "0001_x", "file_num": "1", "technical": "cache_a100",
		"art": "art", "quote": "quote", "fact": "fact", "joke": "joke",
	}
	for i := range tmpls {
		out, err := b.Render(i, values)
		require.NoError(t, err)
		assert.NotContains(t, out, "${", "template %d", i)
	}

	tmpls[0] = "mutated"
	assert.NotEqual(t, "mutated", Builtin()[0])
}
