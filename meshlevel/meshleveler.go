package meshlevel

import (
	"math"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/mastercactapus/svgrbl/gcode"
)

// minOffset is the smallest Z correction worth emitting, in mm.
const minOffset = 1e-6

type MeshLeveler struct {
	granularity float64
	offsetter   ZOffsetter

	buf  []gcode.Block
	bufN int

	splitVM *gcode.VM
	levelVM *gcode.VM

	gr gcode.Reader
}
type Config struct {
	ZOffsetter  ZOffsetter
	Granularity float64

	MPos, WCO coord.Point

	Reader gcode.Reader
}

func New(cfg Config) *MeshLeveler {
	l := &MeshLeveler{

		splitVM: gcode.NewVM(),
		levelVM: gcode.NewVM(),

		granularity: cfg.Granularity,
		gr:          cfg.Reader,

		offsetter: cfg.ZOffsetter,
	}
	if l.offsetter == nil {
		l.offsetter = Flat{}
	}
	l.splitVM.SetMPos(cfg.MPos)
	l.levelVM.SetMPos(cfg.MPos)

	l.splitVM.SetWCO(cfg.WCO)
	l.levelVM.SetWCO(cfg.WCO)

	return l
}

// Read returns the next block with its Z adjusted to the surface.
//
// In absolute mode the surface offset under the target XY is added to the
// programmed Z. In relative mode only the change in offset since the last
// position is added. Moves that leave the mesh are passed through as-is.
func (l *MeshLeveler) Read() (gcode.Block, error) {
	b, err := l.next()
	if err != nil {
		return nil, err
	}

	oldPos := l.levelVM.WPos()
	err = l.levelVM.Run(b)
	if err != nil {
		return nil, err
	}
	newPos := l.levelVM.WPos()
	if oldPos.Equal(newPos) {
		return b, nil
	}

	ok, newOffset := l.offsetter.OffsetZ(newPos.X, newPos.Y)
	if !ok {
		return b, nil
	}

	if !l.levelVM.RelativeMotion() {
		if math.Abs(newOffset) < minOffset {
			return b, nil
		}
		b = b.Clone()
		if hasZ, _ := b.Arg('Z'); hasZ {
			b.SetArg('Z', newPos.Z+newOffset)
		} else {
			b = append(b, gcode.Word{W: 'Z', Arg: newPos.Z + newOffset})
		}
		return b, nil
	}

	ok, oldOffset := l.offsetter.OffsetZ(oldPos.X, oldPos.Y)
	if !ok || math.Abs(newOffset-oldOffset) < minOffset {
		return b, nil
	}

	b = b.Clone()
	if hasZ, z := b.Arg('Z'); hasZ {
		b.SetArg('Z', z+(newOffset-oldOffset))
	} else {
		b = append(b, gcode.Word{W: 'Z', Arg: newOffset - oldOffset})
	}

	return b, nil
}

func (l *MeshLeveler) next() (gcode.Block, error) {
	if len(l.buf)-l.bufN > 0 {
		l.bufN++
		return l.buf[l.bufN-1], nil
	}
	l.buf, l.bufN = l.buf[:0], 0
	b, err := l.gr.Read()
	if err != nil {
		return nil, err
	}

	oldPos := l.splitVM.WPos()
	err = l.splitVM.Run(b)
	if err != nil {
		return nil, err
	}
	newPos := l.splitVM.WPos()
	if oldPos.Equal(newPos) {
		return b, nil
	}
	dist := oldPos.DistanceXY(newPos.X, newPos.Y)
	if dist <= l.granularity {
		return b, nil
	}

	n := int(math.Ceil(dist / l.granularity))
	distPoint := newPos.Sub(oldPos).Scale(1 / float64(n))

	if l.splitVM.RelativeMotion() {
		bl := b.Clone()
		bl.SetArg('X', distPoint.X)
		bl.SetArg('Y', distPoint.Y)
		bl.SetArg('Z', distPoint.Z)

		for i := 1; i <= n; i++ {
			l.buf = append(l.buf, bl)
		}
	} else {
		for i := 1; i <= n; i++ {
			p := oldPos.Lerp(newPos, float64(i)/float64(n))
			if i == n {
				p = newPos
			}
			bl := b.Clone()
			bl = setAxis(bl, 'X', p.X)
			bl = setAxis(bl, 'Y', p.Y)
			if hasZ, _ := b.Arg('Z'); hasZ {
				bl.SetArg('Z', p.Z)
			}

			l.buf = append(l.buf, bl)
		}
	}

	l.bufN = 1
	return l.buf[0], nil
}

// setAxis sets an axis word, adding it when the block does not have one.
func setAxis(b gcode.Block, w byte, v float64) gcode.Block {
	if ok, _ := b.Arg(w); ok {
		b.SetArg(w, v)
		return b
	}
	return append(b, gcode.Word{W: w, Arg: v})
}
