package game

import (
	"encoding/binary"
	"fmt"
	"math"
)

// StateFrameSize is the wire size of one encoded state frame: four float32
// positions followed by two uint32 scores, all network byte order.
const StateFrameSize = 24

// EncodeState packs a snapshot into the 24-byte binary frame broadcast on
// the pong socket each tick.
func EncodeState(s Snapshot) []byte {
	buf := make([]byte, StateFrameSize)
	binary.BigEndian.PutUint32(buf[0:4], math.Float32bits(s.BallX))
	binary.BigEndian.PutUint32(buf[4:8], math.Float32bits(s.BallY))
	binary.BigEndian.PutUint32(buf[8:12], math.Float32bits(s.P1Y))
	binary.BigEndian.PutUint32(buf[12:16], math.Float32bits(s.P2Y))
	binary.BigEndian.PutUint32(buf[16:20], s.Score1)
	binary.BigEndian.PutUint32(buf[20:24], s.Score2)
	return buf
}

// DecodeState unpacks a frame produced by EncodeState.
func DecodeState(buf []byte) (Snapshot, error) {
	if len(buf) != StateFrameSize {
		return Snapshot{}, fmt.Errorf("state frame must be %d bytes, got %d", StateFrameSize, len(buf))
	}
	return Snapshot{
		BallX:  math.Float32frombits(binary.BigEndian.Uint32(buf[0:4])),
		BallY:  math.Float32frombits(binary.BigEndian.Uint32(buf[4:8])),
		P1Y:    math.Float32frombits(binary.BigEndian.Uint32(buf[8:12])),
		P2Y:    math.Float32frombits(binary.BigEndian.Uint32(buf[12:16])),
		Score1: binary.BigEndian.Uint32(buf[16:20]),
		Score2: binary.BigEndian.Uint32(buf[20:24]),
	}, nil
}
