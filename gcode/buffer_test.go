package gcode

import (
	"io"
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Read(t *testing.T) {
	b := NewBuffer(&BlocksReader{Blocks: []Block{
		{{W: 'G', Arg: 1}, {W: 'X', Arg: 2}},
		{{W: 'M', Arg: 2}},
	}})

	buf := make([]byte, 10)
	n, err := b.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, "G1X2\nM2\n", string(buf[:n]))

	n, err = b.Read(buf)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, n)
}

func TestBuffer_Fixed(t *testing.T) {
	b := NewBuffer(&BlocksReader{Blocks: parse(t, "G1 X2 Y-0.5 F200\nM3 S800\nG4 P0.1")})
	b.Fixed = true

	data, err := ioutil.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "G1 X2.000 Y-0.500 F200.000\nM3 S800\nG4 P0.100\n", string(data))
}

func TestBuffer_ShortReads(t *testing.T) {
	b := NewBuffer(&BlocksReader{Blocks: parse(t, "G0 X1\nG0 X2\nG0 X3")})

	var out []byte
	buf := make([]byte, 3)
	for {
		n, err := b.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "G0X1\nG0X2\nG0X3\n", string(out))
}
