package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"unicode/utf8"
)

// MaxStringLength caps usernames and any other string on the wire
const MaxStringLength = 4096

var (
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrStringTooLong  = errors.New("string too long")
	ErrNegativeLength = errors.New("negative string length")
	ErrInvalidString  = errors.New("string is not valid UTF-8")
	ErrTooManyEntries = errors.New("too many entries for a one-byte count")
)

// Pool of buffers to avoid allocation and ensure thread safety
var bufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// Marshal serializes a message as its opcode followed by its fields
func Marshal(m Message) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	e := &encoder{buf: buf}
	e.byte(byte(m.OpCode()))
	m.encode(e)
	if e.err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.OpCode(), e.err)
	}

	// Create a copy to avoid aliasing the pooled buffer
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Decode reads the fields of an op message from r. The opcode byte itself
// must already have been consumed.
func Decode(r io.Reader, op OpCode) (Message, error) {
	m := newMessage(op)
	if m == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, byte(op))
	}

	d := &decoder{r: r}
	m.decode(d)
	if d.err != nil {
		return nil, fmt.Errorf("decode %s: %w", op, d.err)
	}
	return m, nil
}

// ReadMessage reads one opcode byte and then that message's fields. A clean
// end of stream before the opcode returns io.EOF.
func ReadMessage(r io.Reader) (Message, error) {
	var op [1]byte
	if _, err := io.ReadFull(r, op[:]); err != nil {
		return nil, err
	}
	return Decode(r, OpCode(op[0]))
}

// Unmarshal decodes exactly one message from data
func Unmarshal(data []byte) (Message, error) {
	r := bytes.NewReader(data)
	m, err := ReadMessage(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("decode %s: %d trailing bytes", m.OpCode(), r.Len())
	}
	return m, nil
}

type encoder struct {
	buf *bytes.Buffer
	err error
}

func (e *encoder) byte(b byte) {
	e.buf.WriteByte(b)
}

func (e *encoder) bool(b bool) {
	if b {
		e.byte(1)
		return
	}
	e.byte(0)
}

func (e *encoder) uint16(v uint16) {
	e.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (e *encoder) int32(v int32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

// string writes the UTF-8 byte length, not the rune count
func (e *encoder) string(s string) {
	if len(s) > MaxStringLength {
		e.fail(ErrStringTooLong)
		return
	}
	e.int32(int32(len(s)))
	e.buf.WriteString(s)
}

// count writes a one-byte list length
func (e *encoder) count(n int) {
	if n > math.MaxUint8 {
		e.fail(ErrTooManyEntries)
		return
	}
	e.byte(byte(n))
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// decoder reads little-endian fields and keeps the first error it hits, so
// message decoders can read every field and check once at the end.
type decoder struct {
	r       io.Reader
	scratch [4]byte
	err     error
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return d.scratch[:n]
	}
	if _, err := io.ReadFull(d.r, d.scratch[:n]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
	}
	return d.scratch[:n]
}

func (d *decoder) byte() byte {
	return d.read(1)[0]
}

func (d *decoder) bool() bool {
	return d.byte() != 0
}

func (d *decoder) uint16() uint16 {
	return binary.LittleEndian.Uint16(d.read(2))
}

func (d *decoder) int32() int32 {
	return int32(binary.LittleEndian.Uint32(d.read(4)))
}

func (d *decoder) string() string {
	n := d.int32()
	if d.err != nil {
		return ""
	}
	switch {
	case n < 0:
		d.err = ErrNegativeLength
		return ""
	case n > MaxStringLength:
		d.err = fmt.Errorf("%w: %d bytes", ErrStringTooLong, n)
		return ""
	case n == 0:
		return ""
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return ""
	}
	if !utf8.Valid(b) {
		d.err = ErrInvalidString
		return ""
	}
	return string(b)
}
