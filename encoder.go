package ber

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Mode selects how an Encoder frames constructed values.
type Mode uint8

const (
	// Buffered collects each constructed body in memory and writes it with a
	// definite length once closed.
	Buffered Mode = iota + 1
	// Streaming writes constructed values with indefinite length and closes
	// them with an end-of-contents marker.
	Streaming
)

func (m Mode) String() string {
	switch m {
	case Buffered:
		return "buffered"
	case Streaming:
		return "streaming"
	}
	return "unknown"
}

// ParseMode parses "buffered" or "streaming".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buffered", "definite", "":
		return Buffered, nil
	case "streaming", "indefinite":
		return Streaming, nil
	}
	return 0, errors.Newf("ber: unknown mode %q", s)
}

const (
	DefaultMaxDepth      = 1024
	DefaultChunkSize     = 1000
	DefaultMaxStringSize = 64 << 20
)

// maxHeaderSize is a long-form tag of a uint32 plus an 8-octet long length.
const maxHeaderSize = 1 + maxTagOctets + 1 + maxLengthOctets

// Encoder writes a visited tree as BER.
type Encoder struct {
	w        *Writer
	mode     Mode
	open     []Tag     // constructed values not yet closed, innermost last
	segments []*Buffer // bodies of open values in Buffered mode
	maxDepth int
	chunk    int
	log      *zap.Logger
	err      error
	closed   bool
}

// NewEncoder creates an Encoder writing to w in the given mode.
func NewEncoder(w io.Writer, mode Mode) (*Encoder, error) {
	if mode != Buffered && mode != Streaming {
		return nil, errors.Newf("ber: unknown mode %d", mode)
	}
	bw, err := NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		w:        bw,
		mode:     mode,
		maxDepth: DefaultMaxDepth,
		chunk:    DefaultChunkSize,
		log:      zap.NewNop(),
	}, nil
}

// WithMaxDepth limits how deeply constructed values may nest.
func (e *Encoder) WithMaxDepth(n int) *Encoder {
	if n > 0 {
		e.maxDepth = n
	}
	return e
}

// WithChunkSize sets the longest string written as a single primitive.
func (e *Encoder) WithChunkSize(n int) *Encoder {
	if n > 0 {
		e.chunk = n
	}
	return e
}

// WithLogger sets the logger used for debug traces.
func (e *Encoder) WithLogger(log *zap.Logger) *Encoder {
	if log != nil {
		e.log = log
	}
	return e
}

func (e *Encoder) Mode() Mode   { return e.mode }
func (e *Encoder) Err() error   { return e.err }
func (e *Encoder) Count() int64 { return e.w.Count() }

// Close checks that every constructed value was closed and flushes the
// output. The Encoder cannot be used afterwards.
func (e *Encoder) Close() error {
	if err := e.check(); err != nil {
		e.release()
		return err
	}
	e.closed = true
	if n := len(e.open); n > 0 {
		e.release()
		return e.fail("Close", "", errors.Wrapf(ErrUnbalanced, "%d constructed values still open", n))
	}
	if _, err := e.w.Result(); err != nil {
		return e.fail("Close", "", err)
	}
	return nil
}

func (e *Encoder) StartStruct(_ Slot, name string) error {
	return e.start("StartStruct", name, tagSequence)
}

func (e *Encoder) EndStruct() error {
	return e.end("EndStruct")
}

func (e *Encoder) StartArray(_ Slot, name string) error {
	return e.start("StartArray", name, tagSet)
}

func (e *Encoder) NextElement() error {
	return e.check()
}

func (e *Encoder) EndArray() error {
	return e.end("EndArray")
}

func (e *Encoder) VisitInt8(p *int8, name string) error {
	return e.integer("VisitInt8", name, uint64(*p), 1, true)
}

func (e *Encoder) VisitInt16(p *int16, name string) error {
	return e.integer("VisitInt16", name, uint64(*p), 2, true)
}

func (e *Encoder) VisitInt32(p *int32, name string) error {
	return e.integer("VisitInt32", name, uint64(*p), 4, true)
}

func (e *Encoder) VisitInt64(p *int64, name string) error {
	return e.integer("VisitInt64", name, uint64(*p), 8, true)
}

func (e *Encoder) VisitUint8(p *uint8, name string) error {
	return e.integer("VisitUint8", name, uint64(*p), 1, false)
}

func (e *Encoder) VisitUint16(p *uint16, name string) error {
	return e.integer("VisitUint16", name, uint64(*p), 2, false)
}

func (e *Encoder) VisitUint32(p *uint32, name string) error {
	return e.integer("VisitUint32", name, uint64(*p), 4, false)
}

func (e *Encoder) VisitUint64(p *uint64, name string) error {
	return e.integer("VisitUint64", name, *p, 8, false)
}

func (e *Encoder) VisitBool(p *bool, name string) error {
	if err := e.check(); err != nil {
		return err
	}
	var v byte
	if *p {
		v = 0xFF
	}
	return e.emit("VisitBool", name, []byte{byte(TagBoolean), 1, v})
}

// VisitString writes an IA5String, fragmented when longer than the chunk size.
func (e *Encoder) VisitString(p *string, name string) error {
	return e.octets("VisitString", name, tagIA5String, []byte(*p))
}

// VisitBytes writes an OCTET STRING, fragmented when longer than the chunk size.
func (e *Encoder) VisitBytes(p *[]byte, name string) error {
	return e.octets("VisitBytes", name, tagOctets, *p)
}

func (e *Encoder) integer(op, name string, v uint64, width int, signed bool) error {
	if err := e.check(); err != nil {
		return err
	}
	var buf [maxHeaderSize + 8]byte
	b := AppendTag(buf[:0], tagInteger)
	lenAt := len(b)
	b = append(b, 0)
	b = AppendInteger(b, v, width, signed)
	b[lenAt] = byte(len(b) - lenAt - 1)
	return e.emit(op, name, b)
}

func (e *Encoder) octets(op, name string, tag Tag, b []byte) error {
	if err := e.check(); err != nil {
		return err
	}
	if len(b) <= e.chunk {
		return e.primitive(op, name, tag, b)
	}

	wrapper := tag
	wrapper.Constructed = true
	if err := e.start(op, name, wrapper); err != nil {
		return err
	}
	e.log.Debug("ber: fragmenting", zap.String("field", name), zap.Int("size", len(b)), zap.Int("chunk", e.chunk))
	for c := range chunks(b, e.chunk) {
		if err := e.primitive(op, name, tag, c); err != nil {
			return err
		}
	}
	return e.end(op)
}

func (e *Encoder) primitive(op, name string, tag Tag, body []byte) error {
	var buf [maxHeaderSize]byte
	hdr := AppendLength(AppendTag(buf[:0], tag), Length(len(body)))
	if err := e.emit(op, name, hdr); err != nil {
		return err
	}
	return e.emit(op, name, body)
}

func (e *Encoder) start(op, name string, tag Tag) error {
	if err := e.check(); err != nil {
		return err
	}
	if len(e.open) >= e.maxDepth {
		return e.fail(op, name, errors.Wrapf(ErrNestingTooDeep, "depth %d", e.maxDepth))
	}
	tag.Constructed = true

	switch e.mode {
	case Streaming:
		var buf [maxHeaderSize]byte
		if err := e.emit(op, name, AppendLength(AppendTag(buf[:0], tag), Indefinite)); err != nil {
			return err
		}
	case Buffered:
		e.segments = append(e.segments, getBuffer())
	}
	e.open = append(e.open, tag)
	e.log.Debug("ber: open", zap.Stringer("tag", tag), zap.String("field", name), zap.Int("depth", len(e.open)))
	return nil
}

func (e *Encoder) end(op string) error {
	if err := e.check(); err != nil {
		return err
	}
	n := len(e.open)
	if n == 0 {
		return e.fail(op, "", errors.Wrap(ErrBufferUnderflow, "no open constructed value"))
	}
	tag := e.open[n-1]
	e.open = e.open[:n-1]

	if e.mode == Streaming {
		e.log.Debug("ber: close", zap.Stringer("tag", tag), zap.Int("depth", n-1))
		return e.emit(op, "", []byte{0x00, 0x00})
	}

	seg := e.segments[n-1]
	e.segments = e.segments[:n-1]
	defer putBuffer(seg)

	e.log.Debug("ber: close", zap.Stringer("tag", tag), zap.Int("length", seg.Len()), zap.Int("depth", n-1))
	var buf [maxHeaderSize]byte
	if err := e.emit(op, "", AppendLength(AppendTag(buf[:0], tag), Length(seg.Len()))); err != nil {
		return err
	}
	return e.emit(op, "", seg.Bytes())
}

// emit writes p to the innermost open segment, or to the output.
func (e *Encoder) emit(op, name string, p []byte) error {
	if n := len(e.segments); n > 0 {
		e.segments[n-1].Append(p)
		return nil
	}
	if _, err := e.w.Write(p); err != nil {
		return e.fail(op, name, err)
	}
	return nil
}

func (e *Encoder) check() error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return ErrClosed
	}
	return nil
}

// offset is the number of bytes produced so far, including pending segments.
func (e *Encoder) offset() int64 {
	off := e.w.Count()
	for _, s := range e.segments {
		off += int64(s.Len())
	}
	return off
}

// fail records err as the sticky error and returns it.
func (e *Encoder) fail(op, name string, err error) error {
	if e.err == nil {
		e.err = &Error{Op: op, Field: name, Offset: e.offset(), Err: err}
		e.log.Debug("ber: encode failed", zap.Error(e.err))
	}
	return e.err
}

func (e *Encoder) release() {
	for _, s := range e.segments {
		putBuffer(s)
	}
	e.segments = nil
}
