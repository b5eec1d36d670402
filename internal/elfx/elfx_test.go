package elfx

import (
	"debug/dwarf"
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernsig/internal/dwarftest"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vmlinux")
	require.NoError(t, dwarftest.WriteImage(path, nil, nil))
	return path
}

func TestOpenValid(t *testing.T) {
	img, err := Open(writeImage(t))
	require.NoError(t, err)
	defer img.Close()

	assert.Greater(t, img.FileSize(), int64(0))
}

func TestCloseReleasesFile(t *testing.T) {
	img, err := Open(writeImage(t))
	require.NoError(t, err)

	buf, err := img.ReadBytesAtVA(0x400000, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, buf)

	require.NoError(t, img.Close())

	// The segment read goes through the underlying file descriptor, so a
	// successful read here would mean Close left it open.
	_, err = img.ReadBytesAtVA(0x400000, 4)
	assert.Error(t, err)
}

func TestOpenRejectsNonELF(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "notelf")
	require.NoError(t, os.WriteFile(tmp, []byte("not an ELF file at all"), 0644))

	_, err := Open(tmp)
	assert.ErrorIs(t, err, ErrNotELF)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestHeader(t *testing.T) {
	img, err := Open(writeImage(t))
	require.NoError(t, err)
	defer img.Close()

	machine, class, data := img.Header()
	assert.Equal(t, elf.EM_X86_64, machine)
	assert.Equal(t, elf.ELFCLASS64, class)
	assert.Equal(t, elf.ELFDATA2LSB, data)
}

func TestReadBytesAtVA(t *testing.T) {
	img, err := Open(writeImage(t))
	require.NoError(t, err)
	defer img.Close()

	// The test image maps the whole file at 0x400000, so the ELF magic
	// is readable through the segment view.
	buf, err := img.ReadBytesAtVA(0x400000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, buf)
}

func TestReadBytesAtVAUnmapped(t *testing.T) {
	img, err := Open(writeImage(t))
	require.NoError(t, err)
	defer img.Close()

	_, err = img.ReadBytesAtVA(0x10, 4)
	assert.ErrorIs(t, err, ErrNoSegment)
}

func TestDWARFFromImage(t *testing.T) {
	abbrev, info, err := dwarftest.BuildSections(
		dwarftest.CompileUnit("a.c", dwarftest.Subprogram("f", nil)),
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vmlinux")
	require.NoError(t, dwarftest.WriteImage(path, abbrev, info))

	img, err := Open(path)
	require.NoError(t, err)
	defer img.Close()

	d, err := img.DWARF()
	require.NoError(t, err)
	r := d.Reader()
	cu, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, cu)
	assert.Equal(t, "a.c", cu.Val(dwarf.AttrName))
}

func TestDWARFMissing(t *testing.T) {
	img, err := Open(writeImage(t))
	require.NoError(t, err)
	defer img.Close()

	_, err = img.DWARF()
	assert.Error(t, err)
}
