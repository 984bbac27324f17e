package structgraph

// Writer consumes the abstract operation stream produced by a reader or a text driver.
//
// Write accepts bool, float64 and string values. AddProperty names the value produced
// by the next Write, WriteNull, Begin* or WriteReference call. Every BeginStructure
// consumes one structure index, in call order, which WriteReference refers back to.
type Writer interface {
	WriteNull() error
	Write(value interface{}) error
	BeginStructure(typeID string) error
	AddProperty(name string) error
	EndStructure() error
	BeginSequence() error
	EndSequence() error
	WriteReference(index int) error
}

// NullWriter discards every operation.
type NullWriter struct{}

func (NullWriter) WriteNull() error               { return nil }
func (NullWriter) Write(interface{}) error        { return nil }
func (NullWriter) BeginStructure(string) error    { return nil }
func (NullWriter) AddProperty(string) error       { return nil }
func (NullWriter) EndStructure() error            { return nil }
func (NullWriter) BeginSequence() error           { return nil }
func (NullWriter) EndSequence() error             { return nil }
func (NullWriter) WriteReference(index int) error { return nil }
