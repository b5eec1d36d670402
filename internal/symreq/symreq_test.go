package symreq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTwoField(t *testing.T) {
	req, err := Parse(strings.NewReader("0x1200 start_kernel\n1208 do_sys_open\n"))
	require.NoError(t, err)
	require.Equal(t, 2, req.Len())
	assert.Equal(t, Entry{Offset: 0x1200, Name: "start_kernel"}, req.Entries[0])
	assert.Equal(t, Entry{Offset: 0x1208, Name: "do_sys_open"}, req.Entries[1])
	assert.True(t, req.Has("start_kernel"))
	assert.False(t, req.Has("missing"))
}

func TestParseKallsymsShape(t *testing.T) {
	in := `
ffffffff81000000 T start_kernel
ffffffff81001000 t do_one_initcall
ffffffffc0000000 T ext4_sync_file [ext4]
`
	req, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 3, req.Len())
	assert.Equal(t, "start_kernel", req.Entries[0].Name)
	assert.Equal(t, uint64(0xffffffff81000000), req.Entries[0].Offset)
	assert.Equal(t, "ext4_sync_file", req.Entries[2].Name)
}

func TestParseSkipsBlankAndComments(t *testing.T) {
	in := "# candidates from rodata scan\n\n10 foo\n"
	req, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, req.Len())
}

func TestParseDuplicateNames(t *testing.T) {
	req, err := Parse(strings.NewReader("10 dup\n20 dup\n30 other\n"))
	require.NoError(t, err)
	// Order and duplicates preserved in entries, names deduplicated.
	assert.Equal(t, 3, req.Len())
	assert.Equal(t, 2, req.DistinctNames())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"one field", "loneword\n"},
		{"bad offset", "zz foo\n"},
		{"bad kallsyms addr", "nothex T foo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestFrom(t *testing.T) {
	req := From([]Entry{{Offset: 1, Name: "a"}, {Offset: 2, Name: "b"}})
	assert.True(t, req.Has("a"))
	assert.True(t, req.Has("b"))
	assert.Equal(t, 2, req.DistinctNames())
}
