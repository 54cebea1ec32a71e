package main

// lcg is the deterministic pseudo-random sequence behind round ids and
// initial avatar placement. The first draw returns the seed itself;
// every later draw advances r ← r·279410273 mod 4294967291.
type lcg struct {
	value  uint32
	primed bool
}

func newLCG(seed uint32) *lcg {
	return &lcg{value: seed}
}

func (g *lcg) next() uint32 {
	if !g.primed {
		g.primed = true
		return g.value
	}
	g.value = uint32(uint64(g.value) * 279410273 % 4294967291)
	return g.value
}
