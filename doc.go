// Package ber is a visitor-driven codec for a subset of ASN.1 BER.
//
// Callers describe their data once by implementing Visitable, calling
// Visitor operations in a fixed order:
//
//	func (p *Point) Visit(v ber.Visitor, name string) error {
//		if err := v.StartStruct(nil, name); err != nil {
//			return err
//		}
//		if err := v.VisitInt64(&p.X, "x"); err != nil {
//			return err
//		}
//		if err := v.VisitInt64(&p.Y, "y"); err != nil {
//			return err
//		}
//		return v.EndStruct()
//	}
//
// The same method encodes with an Encoder and decodes with a Decoder.
// Structs are SEQUENCEs, arrays are SETs, strings are IA5Strings and byte
// slices OCTET STRINGs. An Encoder in Buffered mode writes definite lengths;
// in Streaming mode it writes indefinite lengths closed by end-of-contents.
// Strings longer than the chunk size are split into constructed fragments.
//
// A Decoder may stop visiting a struct's fields early: EndStruct skips the
// rest, by seeking for definite lengths and by scanning for end-of-contents
// for indefinite ones.
//
// Errors are sticky and wrap one of the Err* kinds in an *Error carrying the
// stream offset and, when relevant, the expected and found tags.
package ber
