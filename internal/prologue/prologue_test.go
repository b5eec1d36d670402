package prologue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAMD64(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want Kind
	}{
		{
			// push rbp; mov rbp, rsp
			"classic frame pointer",
			[]byte{0x55, 0x48, 0x89, 0xe5},
			KindFramePointer,
		},
		{
			// sub rsp, 0x18
			"no frame pointer",
			[]byte{0x48, 0x83, 0xec, 0x18},
			KindNoFramePointer,
		},
		{
			// push r12
			"push callee-saved",
			[]byte{0x41, 0x54},
			KindPushOnly,
		},
		{
			// xor eax, eax; ret
			"no recognizable setup",
			[]byte{0x31, 0xc0, 0xc3},
			KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Detect(tt.code, "x86_64", 0xffffffff81000000)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Kind)
			assert.NotEmpty(t, info.Instructions)
		})
	}
}

func TestDetectARM64(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want Kind
	}{
		{
			// stp x29, x30, [sp, #-16]!
			"stp frame pair",
			[]byte{0xfd, 0x7b, 0xbf, 0xa9},
			KindSTPFramePair,
		},
		{
			// sub sp, sp, #0x20
			"sub sp",
			[]byte{0xff, 0x83, 0x00, 0xd1},
			KindSubSP,
		},
		{
			// stp x19, x20, [sp, #-32]!
			"stp without frame pair",
			[]byte{0xf3, 0x53, 0xbe, 0xa9},
			KindSTPOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Detect(tt.code, "arm64", 0xffff000008080000)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Kind)
		})
	}
}

func TestDetectRecordsAddress(t *testing.T) {
	info, err := Detect([]byte{0x55}, "x86_64", 0x1234)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), info.Address)
}

func TestDetectUnsupportedArch(t *testing.T) {
	_, err := Detect([]byte{0x00}, "s390", 0)
	assert.ErrorIs(t, err, ErrUnsupportedArch)
}

func TestDetectEmptyBody(t *testing.T) {
	info, err := Detect(nil, "x86_64", 0)
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, info.Kind)
	assert.Empty(t, info.Instructions)
}
