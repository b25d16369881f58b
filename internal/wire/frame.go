package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameBytes is the hard cap on a single frame's payload length
// (spec.md §4.1). A declared length above this is rejected before any
// allocation for the payload happens.
const MaxFrameBytes = 16 * 1024 * 1024

// ReadFrame reads one length-prefixed frame from r: a 4-byte big-endian
// length N followed by N bytes. It never allocates for N before validating
// N against MaxFrameBytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameBytes {
		return nil, fmt.Errorf("wire: frame length %d exceeds max %d", n, MaxFrameBytes)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload to w prefixed with its 4-byte big-endian length.
// It is the caller's responsibility to keep len(payload) within
// MaxFrameBytes; WriteFrame rejects anything larger rather than silently
// truncating the length header.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameBytes {
		return fmt.Errorf("wire: frame length %d exceeds max %d", len(payload), MaxFrameBytes)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadMessage reads and decodes one framed Message from r.
func ReadMessage(r io.Reader) (Message, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return Message{}, err
	}
	return Decode(frame)
}

// WriteMessage encodes msg and writes it to w as one framed message.
func WriteMessage(w io.Writer, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, data)
}
