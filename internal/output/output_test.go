package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernsig/internal/extract"
	"kernsig/internal/prologue"
)

func sampleResult() *extract.Result {
	rt := extract.TypeRef(30)
	res := extract.NewResult()
	res.Subprograms[112] = extract.Subprogram{
		ReturnType: &rt,
		Name:       "foo",
		Params:     []extract.Param{{Type: 10, Name: "a"}, {Type: 20, Name: "b"}},
	}
	res.Subprograms[40] = extract.Subprogram{
		Name:       "vprintk",
		Params:     []extract.Param{{Type: 50, Name: "fmt"}},
		HasVarargs: true,
	}
	return res
}

func TestWriteSubprogramsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteSubprograms(&a, sampleResult()))
	require.NoError(t, WriteSubprograms(&b, sampleResult()))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestWriteReadRoundTrip(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteSubprograms(&buf, res))

	back, err := ReadSubprograms(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Subprograms, back.Subprograms)
}

func TestWriteEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSubprograms(&buf, extract.NewResult()))
	assert.JSONEq(t, `{"subprograms":{}}`, buf.String())
}

func TestNullReturnTypePresentInDocument(t *testing.T) {
	res := extract.NewResult()
	res.Subprograms[7] = extract.Subprogram{Name: "v", Params: []extract.Param{}}

	var buf bytes.Buffer
	require.NoError(t, WriteSubprograms(&buf, res))
	assert.Contains(t, buf.String(), `"return_type": null`)
}

func TestWriteProloguesEmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prologues.json")
	require.NoError(t, WriteProloguesFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestWriteProloguesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prologues.json")
	infos := []prologue.Info{
		{Address: 0x1000, Name: "start_kernel", Kind: prologue.KindFramePointer},
		{Address: 0x2000, Name: "do_sys_open", Kind: prologue.KindSubSP},
	}
	require.NoError(t, WriteProloguesFile(path, infos))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back []prologue.Info
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, infos, back)
}

func TestWriteSubprogramsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subprograms.json")
	require.NoError(t, WriteSubprogramsFile(path, sampleResult()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	back, err := ReadSubprograms(f)
	require.NoError(t, err)
	assert.Len(t, back.Subprograms, 2)
}
