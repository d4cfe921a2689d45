package exl

import (
	"iter"
)

// Document field names.
const (
	FieldRoot         = "exl"
	FieldName         = "name"
	FieldHeader       = "exlHeader"
	FieldObjects      = "exlObjects"
	FieldObject       = "exlObject"
	FieldObjectFields = "exlObjectFields"

	// FieldTemplateKey is injected into every instrument and names its template.
	FieldTemplateKey = "ExlTplKey"

	FieldRIC    = "it:RIC"
	FieldSymbol = "it:SYMBOL"
	FieldISIN   = "it:UP_ISIN"
)

// Template is the header record of one document.
type Template struct {
	Name   string
	Header any
}

// Instrument is one exlObject entry, tagged with its template name.
type Instrument struct {
	Fields *Node
}

// KeyField returns a string-valued top-level field.
func (i Instrument) KeyField(name string) (string, bool) {
	v, ok := i.Fields.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AltID returns the alternate identifier from the object-field sub-mapping.
// Instruments without the sub-mapping or the field have no alternate id.
func (i Instrument) AltID() (string, bool) {
	v, ok := i.Fields.Get(FieldObjectFields)
	if !ok {
		return "", false
	}
	fields, ok := v.(*Node)
	if !ok {
		return "", false
	}
	id, ok := fields.Get(FieldISIN)
	if !ok {
		return "", false
	}
	s, ok := id.(string)
	return s, ok
}

// TemplateName returns the injected back-reference.
func (i Instrument) TemplateName() string {
	s, _ := i.KeyField(FieldTemplateKey)
	return s
}

// ExtractTemplate reads the document name and header.
func ExtractTemplate(doc *Node) (Template, error) {
	root, err := documentRoot(doc)
	if err != nil {
		return Template{}, err
	}

	nameValue, ok := root.Get(FieldName)
	if !ok {
		return Template{}, ErrMissingField(FieldRoot + "." + FieldName)
	}
	name, ok := nameValue.(string)
	if !ok || name == "" {
		return Template{}, NewError(ErrorCodeExtraction, "Document name is not a text value").
			WithContext("field", FieldRoot+"."+FieldName)
	}

	header, ok := root.Get(FieldHeader)
	if !ok {
		return Template{}, ErrMissingField(FieldRoot + "." + FieldHeader)
	}

	return Template{Name: name, Header: header}, nil
}

// ExtractInstruments yields the document's instruments in order, each tagged
// with templateName. A single exlObject is treated as a one-element list.
//
// When the document has no instrument container the returned sequence is
// empty and the error matches ErrNoInstruments. A non-mapping entry is yielded as
// an EXTRACTION_ERROR at its position.
func ExtractInstruments(doc *Node, templateName string) (iter.Seq2[Instrument, error], error) {
	empty := func(func(Instrument, error) bool) {}

	root, err := documentRoot(doc)
	if err != nil {
		return empty, err
	}

	objectsValue, _ := root.Get(FieldObjects)
	objects, ok := objectsValue.(*Node)
	if !ok {
		return empty, noInstruments()
	}

	container, ok := objects.Get(FieldObject)
	if !ok || container == nil {
		return empty, noInstruments()
	}

	var entries []any
	switch c := container.(type) {
	case []any:
		entries = c
	default:
		entries = []any{c}
	}

	return func(yield func(Instrument, error) bool) {
		for idx, entry := range entries {
			fields, ok := entry.(*Node)
			if !ok {
				yield(Instrument{}, NewError(ErrorCodeExtraction, "Instrument entry is not a mapping").
					WithContext("index", idx))
				return
			}
			fields.Set(FieldTemplateKey, templateName)
			if !yield(Instrument{Fields: fields}, nil) {
				return
			}
		}
	}, nil
}

func documentRoot(doc *Node) (*Node, error) {
	if doc == nil {
		return nil, ErrMissingField(FieldRoot)
	}
	v, ok := doc.Get(FieldRoot)
	if !ok {
		return nil, ErrMissingField(FieldRoot)
	}
	root, ok := v.(*Node)
	if !ok {
		return nil, NewError(ErrorCodeExtraction, "Document root is not a mapping").
			WithContext("field", FieldRoot)
	}
	return root, nil
}
