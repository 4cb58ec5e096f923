package ber

import (
	"io"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// noLimit marks a read position not enclosed by any definite-length value.
const noLimit = -1

// bound tracks one open constructed value.
type bound struct {
	tag        Tag
	indefinite bool
	end        int64 // absolute end offset, valid when !indefinite
	limit      int64 // innermost definite end enclosing reads inside this value, or noLimit
}

// Decoder fills a visited tree from BER input.
//
// Each Start* call pushes a bound for the value it opens; the matching End*
// pops it and moves the cursor to the value's end, skipping whatever the
// caller did not visit. Definite values are skipped by a forward seek,
// indefinite ones by scanning for their end-of-contents marker.
type Decoder struct {
	r         *Reader
	stack     []bound
	maxDepth  int
	maxString int
	log       *zap.Logger
	err       error
	closed    bool
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		r:         br,
		maxDepth:  DefaultMaxDepth,
		maxString: DefaultMaxStringSize,
		log:       zap.NewNop(),
	}, nil
}

// WithMaxDepth limits how deeply constructed values may nest.
func (d *Decoder) WithMaxDepth(n int) *Decoder {
	if n > 0 {
		d.maxDepth = n
	}
	return d
}

// WithMaxStringSize caps the memory a single string or primitive may take.
func (d *Decoder) WithMaxStringSize(n int) *Decoder {
	if n > 0 {
		d.maxString = n
	}
	return d
}

// WithLogger sets the logger used for debug traces.
func (d *Decoder) WithLogger(log *zap.Logger) *Decoder {
	if log != nil {
		d.log = log
	}
	return d
}

// Position returns the number of bytes consumed so far.
func (d *Decoder) Position() int64 { return d.r.Count() }

func (d *Decoder) Err() error { return d.err }

// Close checks that every constructed value was closed. The Decoder cannot be
// used afterwards; the underlying reader is left open.
func (d *Decoder) Close() error {
	if err := d.check(); err != nil {
		return err
	}
	d.closed = true
	if n := len(d.stack); n > 0 {
		return d.fail("Close", "", errors.Wrapf(ErrUnbalanced, "%d constructed values still open", n))
	}
	return nil
}

func (d *Decoder) StartStruct(slot Slot, name string) error {
	return d.start("StartStruct", name, tagSequence, slot)
}

func (d *Decoder) EndStruct() error {
	return d.end("EndStruct")
}

func (d *Decoder) StartArray(slot Slot, name string) error {
	return d.start("StartArray", name, tagSet, slot)
}

func (d *Decoder) NextElement() error {
	return d.check()
}

func (d *Decoder) EndArray() error {
	return d.end("EndArray")
}

func (d *Decoder) VisitInt8(p *int8, name string) error {
	v, err := d.integer("VisitInt8", name, 1, true)
	if err == nil {
		*p = int8(v)
	}
	return err
}

func (d *Decoder) VisitInt16(p *int16, name string) error {
	v, err := d.integer("VisitInt16", name, 2, true)
	if err == nil {
		*p = int16(v)
	}
	return err
}

func (d *Decoder) VisitInt32(p *int32, name string) error {
	v, err := d.integer("VisitInt32", name, 4, true)
	if err == nil {
		*p = int32(v)
	}
	return err
}

func (d *Decoder) VisitInt64(p *int64, name string) error {
	v, err := d.integer("VisitInt64", name, 8, true)
	if err == nil {
		*p = int64(v)
	}
	return err
}

func (d *Decoder) VisitUint8(p *uint8, name string) error {
	v, err := d.integer("VisitUint8", name, 1, false)
	if err == nil {
		*p = uint8(v)
	}
	return err
}

func (d *Decoder) VisitUint16(p *uint16, name string) error {
	v, err := d.integer("VisitUint16", name, 2, false)
	if err == nil {
		*p = uint16(v)
	}
	return err
}

func (d *Decoder) VisitUint32(p *uint32, name string) error {
	v, err := d.integer("VisitUint32", name, 4, false)
	if err == nil {
		*p = uint32(v)
	}
	return err
}

func (d *Decoder) VisitUint64(p *uint64, name string) error {
	v, err := d.integer("VisitUint64", name, 8, false)
	if err == nil {
		*p = v
	}
	return err
}

// VisitBool accepts any nonzero octet as true.
func (d *Decoder) VisitBool(p *bool, name string) error {
	const op = "VisitBool"
	if err := d.check(); err != nil {
		return err
	}
	tag, length, err := d.primitiveHeader(op, name, tagBoolean)
	if err != nil {
		return err
	}
	if length != 1 {
		return d.failTag(op, name, errors.Wrapf(ErrStreamCorrupt, "boolean length %d", length), tagBoolean, tag)
	}
	b, err := d.readByte()
	if err != nil {
		return d.fail(op, name, err)
	}
	*p = b != 0
	return nil
}

// VisitString reads an IA5String, reassembling fragments.
func (d *Decoder) VisitString(p *string, name string) error {
	if err := d.check(); err != nil {
		return err
	}
	buf := getBuffer()
	defer putBuffer(buf)
	if err := d.octets("VisitString", name, tagIA5String, buf); err != nil {
		return err
	}
	*p = string(buf.Bytes())
	return nil
}

// VisitBytes reads an OCTET STRING into *p, reusing its capacity.
func (d *Decoder) VisitBytes(p *[]byte, name string) error {
	if err := d.check(); err != nil {
		return err
	}
	buf := NewBuffer((*p)[:0])
	if err := d.octets("VisitBytes", name, tagOctets, buf); err != nil {
		return err
	}
	*p = buf.Bytes()
	return nil
}

func (d *Decoder) start(op, name string, want Tag, slot Slot) error {
	if err := d.check(); err != nil {
		return err
	}
	tag, length, err := d.readHeader()
	if err != nil {
		return d.fail(op, name, err)
	}
	if !tag.sameType(want) {
		return d.failTag(op, name, ErrTypeMismatch, want, tag)
	}
	if !tag.Constructed {
		return d.failTag(op, name, ErrPrimitiveConstructed, want, tag)
	}
	if err := d.push(tag, length); err != nil {
		return d.fail(op, name, err)
	}
	if slot != nil && slot.Empty() {
		slot.Allocate()
	}
	d.log.Debug("ber: open", zap.Stringer("tag", tag), zap.Stringer("length", length),
		zap.Int64("pos", d.Position()), zap.String("field", name))
	return nil
}

func (d *Decoder) end(op string) error {
	if err := d.check(); err != nil {
		return err
	}
	b, err := d.pop()
	if err != nil {
		return d.fail(op, "", err)
	}
	if b.indefinite {
		if err := d.skipUntilEOC(); err != nil {
			return d.fail(op, "", err)
		}
	} else {
		if pos := d.Position(); pos > b.end {
			return d.fail(op, "", errors.Wrapf(ErrStreamCorrupt, "read past end %d of %s", b.end, b.tag))
		} else if pos < b.end {
			d.log.Debug("ber: skip", zap.Stringer("tag", b.tag), zap.Int64("from", pos), zap.Int64("to", b.end))
		}
		if err := d.r.SeekTo(b.end); err != nil {
			return d.fail(op, "", streamError(err))
		}
	}
	d.log.Debug("ber: close", zap.Stringer("tag", b.tag), zap.Int64("pos", d.Position()), zap.Int("depth", len(d.stack)))
	return nil
}

func (d *Decoder) integer(op, name string, width int, signed bool) (uint64, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	tag, length, err := d.primitiveHeader(op, name, tagInteger)
	if err != nil {
		return 0, err
	}
	if length > Length(width) {
		return 0, d.failTag(op, name, errors.Wrapf(ErrLengthTooLarge, "%d octets for a %d-byte integer", length, width), tagInteger, tag)
	}
	var buf [8]byte
	if err := d.readFull(buf[:length]); err != nil {
		return 0, d.fail(op, name, err)
	}
	return DecodeInteger(buf[:length], signed), nil
}

// primitiveHeader reads a header and checks it is the primitive form of want.
func (d *Decoder) primitiveHeader(op, name string, want Tag) (Tag, Length, error) {
	tag, length, err := d.readHeader()
	if err != nil {
		return tag, 0, d.fail(op, name, err)
	}
	if !tag.sameType(want) {
		return tag, 0, d.failTag(op, name, ErrTypeMismatch, want, tag)
	}
	if tag.Constructed {
		return tag, 0, d.failTag(op, name, ErrPrimitiveConstructed, want, tag)
	}
	return tag, length, nil
}

// octets reads a primitive string value, or a constructed wrapper of
// primitive fragments, appending the content to buf.
func (d *Decoder) octets(op, name string, want Tag, buf *Buffer) error {
	tag, length, err := d.readHeader()
	if err != nil {
		return d.fail(op, name, err)
	}
	if !tag.sameType(want) {
		return d.failTag(op, name, ErrTypeMismatch, want, tag)
	}
	if !tag.Constructed {
		if err := d.appendContent(buf, length); err != nil {
			return d.fail(op, name, err)
		}
		return nil
	}

	if err := d.push(tag, length); err != nil {
		return d.fail(op, name, err)
	}
	b := d.stack[len(d.stack)-1]
	fragments := 0
	for {
		if !b.indefinite && d.Position() == b.end {
			break
		}
		ftag, flen, err := d.readHeader()
		if err != nil {
			return d.fail(op, name, err)
		}
		if ftag.IsEOC() {
			if !b.indefinite || flen != 0 {
				return d.failTag(op, name, errors.Wrap(ErrIndefiniteLength, "unexpected end-of-contents in fragments"), want, ftag)
			}
			break
		}
		if !ftag.sameType(want) {
			return d.failTag(op, name, ErrTypeMismatch, want, ftag)
		}
		if ftag.Constructed {
			return d.failTag(op, name, errors.Wrap(ErrStreamCorrupt, "nested fragment"), want, ftag)
		}
		if err := d.appendContent(buf, flen); err != nil {
			return d.fail(op, name, err)
		}
		fragments++
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.log.Debug("ber: reassembled", zap.String("field", name), zap.Int("fragments", fragments), zap.Int("size", buf.Len()))
	return nil
}

// appendContent reads n content octets onto buf.
func (d *Decoder) appendContent(buf *Buffer, n Length) error {
	if int64(buf.Len())+int64(n) > int64(d.maxString) {
		return errors.Wrapf(ErrOutOfMemory, "%d bytes exceeds limit %d", int64(buf.Len())+int64(n), d.maxString)
	}
	if err := d.checkLimit(int64(n)); err != nil {
		return err
	}
	for remaining := int(n); remaining > 0; {
		step := min(remaining, CHUNK_SIZE)
		if err := d.readFull(buf.Extend(step)); err != nil {
			return err
		}
		remaining -= step
	}
	return nil
}

// skipUntilEOC consumes TLVs up to and including the end-of-contents marker
// closing the current indefinite value. Nested indefinite values are tracked
// with a counter rather than recursion.
func (d *Decoder) skipUntilEOC() error {
	start := d.Position()
	for nesting := 1; nesting > 0; {
		tag, length, err := d.readHeader()
		if err != nil {
			return err
		}
		switch {
		case tag.IsEOC():
			if length != 0 {
				return errors.Wrapf(ErrIndefiniteLength, "end-of-contents with length %s", length)
			}
			nesting--
		case length.IsIndefinite():
			if len(d.stack)+nesting >= d.maxDepth {
				return errors.Wrapf(ErrNestingTooDeep, "depth %d", d.maxDepth)
			}
			nesting++
		default:
			if err := d.skip(int64(length)); err != nil {
				return err
			}
		}
	}
	d.log.Debug("ber: scanned to end-of-contents", zap.Int64("from", start), zap.Int64("to", d.Position()))
	return nil
}

// readHeader reads a tag and a length within the current bound. An
// indefinite length is only accepted on a constructed value.
func (d *Decoder) readHeader() (Tag, Length, error) {
	src := boundedSource{d}
	tag, _, err := ReadTag(src)
	if err != nil {
		return tag, 0, err
	}
	length, _, err := ReadLength(src)
	if err != nil {
		return tag, 0, err
	}
	if length.IsIndefinite() && !tag.Constructed {
		return tag, 0, errors.Wrapf(ErrIndefiniteLength, "primitive %s", tag)
	}
	if !length.IsIndefinite() {
		if err := d.checkLimit(int64(length)); err != nil {
			return tag, 0, err
		}
	}
	return tag, length, nil
}

func (d *Decoder) push(tag Tag, length Length) error {
	if len(d.stack) >= d.maxDepth {
		return errors.Wrapf(ErrNestingTooDeep, "depth %d", d.maxDepth)
	}
	b := bound{tag: tag, indefinite: length.IsIndefinite(), limit: d.limit()}
	if !b.indefinite {
		b.end = d.Position() + int64(length)
		b.limit = b.end
	}
	d.stack = append(d.stack, b)
	return nil
}

func (d *Decoder) pop() (bound, error) {
	n := len(d.stack)
	if n == 0 {
		return bound{}, errors.Wrap(ErrBufferUnderflow, "no open constructed value")
	}
	b := d.stack[n-1]
	d.stack = d.stack[:n-1]
	return b, nil
}

func (d *Decoder) limit() int64 {
	if n := len(d.stack); n > 0 {
		return d.stack[n-1].limit
	}
	return noLimit
}

// checkLimit fails if reading n more bytes would cross the enclosing end.
func (d *Decoder) checkLimit(n int64) error {
	if l := d.limit(); l != noLimit && d.Position()+n > l {
		return errors.Wrapf(ErrStreamCorrupt, "%d bytes at %d crosses enclosing end %d", n, d.Position(), l)
	}
	return nil
}

func (d *Decoder) readByte() (byte, error) {
	if err := d.checkLimit(1); err != nil {
		return 0, err
	}
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, streamError(err)
	}
	return b, nil
}

func (d *Decoder) readFull(dst []byte) error {
	if err := d.checkLimit(int64(len(dst))); err != nil {
		return err
	}
	return streamError(d.r.ReadFull(dst))
}

func (d *Decoder) skip(n int64) error {
	if err := d.checkLimit(n); err != nil {
		return err
	}
	_, err := d.r.Discard(n)
	return streamError(err)
}

func (d *Decoder) check() error {
	if d.err != nil {
		return d.err
	}
	if d.closed {
		return ErrClosed
	}
	return nil
}

// fail records err as the sticky error and returns it.
func (d *Decoder) fail(op, name string, err error) error {
	if d.err == nil {
		var e *Error
		if errors.As(err, &e) {
			d.err = e
		} else {
			d.err = &Error{Op: op, Field: name, Offset: d.Position(), Err: err}
		}
		d.log.Debug("ber: decode failed", zap.Error(d.err))
	}
	return d.err
}

func (d *Decoder) failTag(op, name string, err error, want, found Tag) error {
	if d.err == nil {
		d.err = &Error{Op: op, Field: name, Offset: d.Position(), Expected: want.String(), Found: found.String(), Err: err}
		d.log.Debug("ber: decode failed", zap.Error(d.err))
	}
	return d.err
}

// boundedSource feeds header octets through the decoder's bound check.
type boundedSource struct{ d *Decoder }

func (s boundedSource) ReadByte() (byte, error) { return s.d.readByte() }
