package ber

// VisitArray drives StartArray, NextElement and EndArray over *p, calling
// each for every element. On decode an empty *p is allocated with n elements;
// on encode n is ignored and the current length is used.
func VisitArray[T any](v Visitor, p *[]T, n int, name string, each func(v Visitor, elem *T) error) error {
	if err := v.StartArray(ArraySlot(p, n), name); err != nil {
		return err
	}
	for i := range *p {
		if i > 0 {
			if err := v.NextElement(); err != nil {
				return err
			}
		}
		if err := each(v, &(*p)[i]); err != nil {
			return err
		}
	}
	return v.EndArray()
}

// VisitStruct drives StartStruct and EndStruct around body, allocating *p
// on decode when it is nil.
func VisitStruct[T any](v Visitor, p **T, name string, body func(v Visitor, x *T) error) error {
	if err := v.StartStruct(StructSlot(p), name); err != nil {
		return err
	}
	if err := body(v, *p); err != nil {
		return err
	}
	return v.EndStruct()
}

// Fields visits a struct body given as a list of field visits, stopping at
// the first error.
func Fields(fields ...func() error) error {
	for _, f := range fields {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}
