package ntuple

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Binary layout (little endian):
//
//	uint32 maxRank
//	uint32 numTuples
//	per tuple: uint32 length, then length x (uint8 row, uint8 col)
//	per tuple: maxRank^length x float64 weights

// WriteBinary writes the network's tuples and tables.
func (n *Network) WriteBinary(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(n.maxRank)); err != nil {
		return fmt.Errorf("writing max rank: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(n.tuples))); err != nil {
		return fmt.Errorf("writing tuple count: %w", err)
	}
	for i, t := range n.tuples {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(t))); err != nil {
			return fmt.Errorf("writing tuple %d length: %w", i, err)
		}
		coords := make([]uint8, 0, 2*len(t))
		for _, c := range t {
			coords = append(coords, uint8(c.Row), uint8(c.Col))
		}
		if _, err := w.Write(coords); err != nil {
			return fmt.Errorf("writing tuple %d coordinates: %w", i, err)
		}
	}
	for i, lut := range n.luts {
		if err := binary.Write(w, binary.LittleEndian, lut); err != nil {
			return fmt.Errorf("writing table %d: %w", i, err)
		}
	}
	return nil
}

// LoadBinary reads a network written by WriteBinary.
func LoadBinary(r io.Reader) (*Network, error) {
	var maxRank, numTuples uint32
	if err := binary.Read(r, binary.LittleEndian, &maxRank); err != nil {
		return nil, fmt.Errorf("reading max rank: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &numTuples); err != nil {
		return nil, fmt.Errorf("reading tuple count: %w", err)
	}
	if numTuples == 0 || numTuples > 1024 {
		return nil, fmt.Errorf("invalid tuple count %d", numTuples)
	}

	tuples := make([]Tuple, numTuples)
	for i := range tuples {
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("reading tuple %d length: %w", i, err)
		}
		if length == 0 || length > 16 {
			return nil, fmt.Errorf("invalid tuple %d length %d", i, length)
		}
		coords := make([]uint8, 2*length)
		if _, err := io.ReadFull(r, coords); err != nil {
			return nil, fmt.Errorf("reading tuple %d coordinates: %w", i, err)
		}
		t := make(Tuple, length)
		for k := range t {
			t[k] = Coord{Row: int(coords[2*k]), Col: int(coords[2*k+1])}
		}
		tuples[i] = t
	}

	n, err := NewNetwork(tuples, int(maxRank))
	if err != nil {
		return nil, fmt.Errorf("invalid network header: %w", err)
	}
	for i, lut := range n.luts {
		if err := binary.Read(r, binary.LittleEndian, lut); err != nil {
			return nil, fmt.Errorf("reading table %d: %w", i, err)
		}
	}
	return n, nil
}

// String returns a summary of the network shape.
func (n *Network) String() string {
	return fmt.Sprintf("Network{tuples: %d, max rank: %d, weights: %d}",
		len(n.tuples), n.maxRank, n.Entries())
}
