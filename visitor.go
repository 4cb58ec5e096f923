package ber

// Visitor is the operation set a caller drives to walk its own data tree.
// The same traversal code runs against an Encoder to produce bytes and a
// Decoder to fill the tree from bytes. Every operation takes a pointer to the
// caller's storage and a field name used only in diagnostics.
//
// Errors are sticky: after the first failure every operation returns that
// same error without touching the stream, so a traversal may check once at
// the end.
type Visitor interface {
	// StartStruct opens a SEQUENCE. On decode an empty slot is allocated.
	StartStruct(slot Slot, name string) error
	EndStruct() error

	// StartArray opens a SET. On decode an empty slot is allocated.
	StartArray(slot Slot, name string) error
	// NextElement separates array elements. It has no wire effect.
	NextElement() error
	EndArray() error

	VisitInt8(p *int8, name string) error
	VisitInt16(p *int16, name string) error
	VisitInt32(p *int32, name string) error
	VisitInt64(p *int64, name string) error
	VisitUint8(p *uint8, name string) error
	VisitUint16(p *uint16, name string) error
	VisitUint32(p *uint32, name string) error
	VisitUint64(p *uint64, name string) error
	VisitBool(p *bool, name string) error
	VisitString(p *string, name string) error
	VisitBytes(p *[]byte, name string) error

	// Err returns the first error encountered, if any.
	Err() error
	// Close checks that every opened value was closed and flushes output.
	Close() error
}

var (
	_ Visitor = (*Encoder)(nil)
	_ Visitor = (*Decoder)(nil)
)

// Slot is caller storage for a constructed value that the decoder fills in
// on demand. A nil Slot means the storage already exists.
type Slot interface {
	// Empty reports whether the storage still has to be allocated.
	Empty() bool
	// Allocate creates the storage and hands it to the caller.
	Allocate()
}

type structSlot[T any] struct{ p **T }

func (s structSlot[T]) Empty() bool { return *s.p == nil }
func (s structSlot[T]) Allocate()   { *s.p = new(T) }

// StructSlot returns a Slot that allocates a zero T into *p.
func StructSlot[T any](p **T) Slot { return structSlot[T]{p} }

type arraySlot[T any] struct {
	p *[]T
	n int
}

func (s arraySlot[T]) Empty() bool { return *s.p == nil }
func (s arraySlot[T]) Allocate()   { *s.p = make([]T, s.n) }

// ArraySlot returns a Slot that allocates n zero elements into *p.
func ArraySlot[T any](p *[]T, n int) Slot { return arraySlot[T]{p, n} }
