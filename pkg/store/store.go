// Package store persists trained agents. A snapshot holds exactly the
// number of training games played and the tuple network (tuples, rank
// ceiling and lookup tables).
package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/yourusername/td2048/internal/ntuple"
)

const (
	SnapshotMagic   uint32 = 0x32303438 // "2048"
	SnapshotVersion uint32 = 1
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the persisted training state.
type Snapshot struct {
	GamesPlayed int64
	Network     *ntuple.Network
}

// Store saves and loads snapshots.
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// Encode writes s in the snapshot binary format (little endian):
//
//	uint32 magic, uint32 version, int64 games played, network
func Encode(w io.Writer, s *Snapshot) error {
	if s == nil || s.Network == nil {
		return fmt.Errorf("encoding snapshot: no network")
	}
	bw := bufio.NewWriter(w)
	header := struct {
		Magic, Version uint32
		GamesPlayed    int64
	}{SnapshotMagic, SnapshotVersion, s.GamesPlayed}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	if err := s.Network.WriteBinary(bw); err != nil {
		return fmt.Errorf("writing network: %w", err)
	}
	return bw.Flush()
}

// Decode reads a snapshot written by Encode.
func Decode(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)
	var magic, version uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != SnapshotMagic {
		return nil, fmt.Errorf("invalid magic number: %#x (expected %#x)", magic, SnapshotMagic)
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}

	s := &Snapshot{}
	if err := binary.Read(br, binary.LittleEndian, &s.GamesPlayed); err != nil {
		return nil, fmt.Errorf("reading games played: %w", err)
	}
	if s.GamesPlayed < 0 {
		return nil, fmt.Errorf("invalid games played: %d", s.GamesPlayed)
	}
	net, err := ntuple.LoadBinary(br)
	if err != nil {
		return nil, fmt.Errorf("reading network: %w", err)
	}
	s.Network = net
	return s, nil
}
