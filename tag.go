package ber

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"
)

// Class is the tag class, stored in the two high bits of the first tag octet.
type Class uint8

const (
	ClassUniversal       Class = 0x00
	ClassApplication     Class = 0x40
	ClassContextSpecific Class = 0x80
	ClassPrivate         Class = 0xC0
)

const (
	classMask      = 0xC0
	constructedBit = 0x20
	tagNumberMask  = 0x1F
	longFormTag    = 0x1F // low bits of the first octet of a long-form tag
	tagMoreBit     = 0x80
	maxTagOctets   = 5 // base-128 octets needed for a uint32
)

// Universal tag numbers.
const (
	TagEndOfContents   uint32 = 0
	TagBoolean         uint32 = 1
	TagInteger         uint32 = 2
	TagBitString       uint32 = 3
	TagOctetString     uint32 = 4
	TagNull            uint32 = 5
	TagObjectID        uint32 = 6
	TagObjectDesc      uint32 = 7
	TagExternal        uint32 = 8
	TagReal            uint32 = 9
	TagEnumerated      uint32 = 10
	TagEmbeddedPDV     uint32 = 11
	TagUTF8String      uint32 = 12
	TagRelativeOID     uint32 = 13
	TagSequence        uint32 = 16
	TagSet             uint32 = 17
	TagNumericString   uint32 = 18
	TagPrintableString uint32 = 19
	TagT61String       uint32 = 20
	TagVideotexString  uint32 = 21
	TagIA5String       uint32 = 22
	TagUTCTime         uint32 = 23
	TagGeneralizedTime uint32 = 24
	TagGraphicString   uint32 = 25
	TagVisibleString   uint32 = 26
	TagGeneralString   uint32 = 27
	TagUniversalString uint32 = 28
	TagCharString      uint32 = 29
	TagBMPString       uint32 = 30
)

var universalNames = map[uint32]string{
	TagEndOfContents:   "END-OF-CONTENTS",
	TagBoolean:         "BOOLEAN",
	TagInteger:         "INTEGER",
	TagBitString:       "BIT STRING",
	TagOctetString:     "OCTET STRING",
	TagNull:            "NULL",
	TagObjectID:        "OBJECT IDENTIFIER",
	TagObjectDesc:      "ObjectDescriptor",
	TagExternal:        "EXTERNAL",
	TagReal:            "REAL",
	TagEnumerated:      "ENUMERATED",
	TagEmbeddedPDV:     "EMBEDDED PDV",
	TagUTF8String:      "UTF8String",
	TagRelativeOID:     "RELATIVE-OID",
	TagSequence:        "SEQUENCE",
	TagSet:             "SET",
	TagNumericString:   "NumericString",
	TagPrintableString: "PrintableString",
	TagT61String:       "T61String",
	TagVideotexString:  "VideotexString",
	TagIA5String:       "IA5String",
	TagUTCTime:         "UTCTime",
	TagGeneralizedTime: "GeneralizedTime",
	TagGraphicString:   "GraphicString",
	TagVisibleString:   "VisibleString",
	TagGeneralString:   "GeneralString",
	TagUniversalString: "UniversalString",
	TagCharString:      "CHARACTER STRING",
	TagBMPString:       "BMPString",
}

func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "universal"
	case ClassApplication:
		return "application"
	case ClassContextSpecific:
		return "context"
	case ClassPrivate:
		return "private"
	}
	return fmt.Sprintf("class(0x%02x)", uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Tag identifies the type of a TLV.
type Tag struct {
	Class       Class  `json:"class"`
	Constructed bool   `json:"constructed"`
	Number      uint32 `json:"number"`
}

// Universal returns a universal-class tag.
func Universal(number uint32, constructed bool) Tag {
	return Tag{Class: ClassUniversal, Constructed: constructed, Number: number}
}

var (
	tagEOC       = Universal(TagEndOfContents, false)
	tagBoolean   = Universal(TagBoolean, false)
	tagInteger   = Universal(TagInteger, false)
	tagSequence  = Universal(TagSequence, true)
	tagSet       = Universal(TagSet, true)
	tagIA5String = Universal(TagIA5String, false)
	tagOctets    = Universal(TagOctetString, false)
)

// IsEOC reports whether t is the end-of-contents tag.
func (t Tag) IsEOC() bool { return t == tagEOC }

// sameType reports whether t and u differ at most in the constructed bit.
func (t Tag) sameType(u Tag) bool {
	return t.Class == u.Class && t.Number == u.Number
}

func (t Tag) String() string {
	var s string
	switch {
	case t.Class == ClassUniversal && universalNames[t.Number] != "":
		s = universalNames[t.Number]
	case t.Class == ClassUniversal:
		s = fmt.Sprintf("[UNIVERSAL %d]", t.Number)
	case t.Class == ClassApplication:
		s = fmt.Sprintf("[APPLICATION %d]", t.Number)
	case t.Class == ClassPrivate:
		s = fmt.Sprintf("[PRIVATE %d]", t.Number)
	default:
		s = fmt.Sprintf("[%d]", t.Number)
	}
	if t.Constructed {
		s += " (constructed)"
	}
	return s
}

// longTags caches the octets of long-form tags, which are otherwise
// recomputed for every value written.
var longTags = xsync.NewMap[Tag, []byte]()

// AppendTag appends the identifier octets of t to dst.
func AppendTag(dst []byte, t Tag) []byte {
	first := byte(t.Class) & classMask
	if t.Constructed {
		first |= constructedBit
	}
	if t.Number < longFormTag {
		return append(dst, first|byte(t.Number))
	}
	if octets, ok := longTags.Load(t); ok {
		return append(dst, octets...)
	}
	octets := encodeLongTag(first, t.Number)
	longTags.Store(t, octets)
	return append(dst, octets...)
}

func encodeLongTag(first byte, number uint32) []byte {
	var tmp [maxTagOctets]byte
	i := len(tmp) - 1
	tmp[i] = byte(number & 0x7F)
	for number >>= 7; number > 0; number >>= 7 {
		i--
		tmp[i] = byte(number&0x7F) | tagMoreBit
	}
	out := make([]byte, 0, 1+len(tmp)-i)
	out = append(out, first|longFormTag)
	return append(out, tmp[i:]...)
}

// ReadTag reads identifier octets from r and returns the tag and the number of
// octets consumed. A stream ending inside the tag yields ErrStreamEnded.
func ReadTag(r io.ByteReader) (Tag, int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Tag{}, 0, streamError(err)
	}
	return readTagAfter(b, r)
}

// readTagAfter decodes a tag whose first octet has already been read.
// A long-form tag whose number would fit the short form is accepted.
func readTagAfter(first byte, r io.ByteReader) (Tag, int, error) {
	t := Tag{
		Class:       Class(first & classMask),
		Constructed: first&constructedBit != 0,
		Number:      uint32(first & tagNumberMask),
	}
	if t.Number != longFormTag {
		return t, 1, nil
	}

	var number uint64
	for n := 1; ; n++ {
		b, err := r.ReadByte()
		if err != nil {
			return Tag{}, n, streamError(err)
		}
		if n > maxTagOctets {
			return Tag{}, n + 1, errors.Wrapf(ErrStreamCorrupt, "tag number exceeds %d octets", maxTagOctets)
		}
		number = number<<7 | uint64(b&0x7F)
		if number > 1<<32-1 {
			return Tag{}, n + 1, errors.Wrap(ErrStreamCorrupt, "tag number overflows uint32")
		}
		if b&tagMoreBit == 0 {
			t.Number = uint32(number)
			return t, n + 1, nil
		}
	}
}
