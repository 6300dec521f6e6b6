package gcode

import (
	"io"
	"strings"
)

// Reader is a source of blocks. Read returns io.EOF after the last block.
type Reader interface {
	Read() (Block, error)
}

// BlocksReader replays a fixed list of blocks.
type BlocksReader struct {
	Blocks []Block
	n      int
}

func (b *BlocksReader) Read() (Block, error) {
	if b.n >= len(b.Blocks) {
		return nil, io.EOF
	}
	b.n++
	return b.Blocks[b.n-1], nil
}

// ReadAll drains r.
func ReadAll(r Reader) ([]Block, error) {
	var res []Block
	for {
		b, err := r.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
}

// Parse reads every block of a program.
func Parse(data string) ([]Block, error) {
	return ReadAll(NewParser(strings.NewReader(data)))
}
