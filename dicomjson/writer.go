// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dicomjson serializes DICOM data sets to the DICOM JSON model described in
// PS3.18 Annex F
// http://dicom.nema.org/medical/dicom/current/output/html/part18.html#chapter_F
//
// A JSONWriter converts a buffered *dicom.DataSet (batch mode) or a
// dicom.DataElementIterator (streaming mode) into one JSON document. Each Data Element
// becomes one member keyed by the 8 character uppercase hex form of its tag, holding the
// "vr" code and at most one of "Value", "BulkDataURI", "InlineBinary" or "DataFragment".
// Elements with empty values emit the vr only. Group length elements are never emitted.
package dicomjson

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dicomweb/go-dicom-json/dicom"
	"github.com/dicomweb/go-dicom-json/jsongen"
)

// JSONType selects how the values of a VR appear in JSON output.
type JSONType int

const (
	// JSONNumber emits values as JSON numbers when they are exactly representable
	JSONNumber JSONType = iota + 1
	// JSONString emits values as JSON strings
	JSONString
)

// String returns the name of the JSONType
func (t JSONType) String() string {
	switch t {
	case JSONNumber:
		return "NUMBER"
	case JSONString:
		return "STRING"
	}
	return fmt.Sprintf("JSONType(%d)", int(t))
}

type bulkDataMode int

const (
	// inlineBulkData buffers bulk data values and emits them as InlineBinary/DataFragment
	inlineBulkData bulkDataMode = iota
	// excludeBulkData omits bulk data elements from the output entirely
	excludeBulkData
	// referenceBulkData emits a BulkDataURI per bulk data value without buffering bytes
	referenceBulkData
)

// WriterOption configures a JSONWriter
type WriterOption struct {
	apply func(*JSONWriter)
}

// Diagnostics directs non-fatal serialization diagnostics (NaN and Infinity
// substitutions, numeric fallbacks, person name repairs) to the given logger. By default
// diagnostics are discarded.
func Diagnostics(log *zap.Logger) WriterOption {
	return WriterOption{func(w *JSONWriter) { w.log = log }}
}

// ExcludeBulkData omits every element matching the writer's bulk data definition from
// the output. In streaming mode the value bytes are discarded without buffering.
func ExcludeBulkData() WriterOption {
	return WriterOption{func(w *JSONWriter) { w.mode = excludeBulkData }}
}

// BulkDataURIOnly emits a BulkDataURI for every element matching the writer's bulk data
// definition instead of inlining its bytes. URIs are derived from the value's byte
// region as base?offset=o&length=l unless the reference carries its own URI.
func BulkDataURIOnly(base string) WriterOption {
	return WriterOption{func(w *JSONWriter) {
		w.mode = referenceBulkData
		w.bulkDataURIBase = base
	}}
}

// ReplaceBulkDataURI substitutes the given URI for every bulk data reference written in
// this serialization session, regardless of the reference's own URI.
func ReplaceBulkDataURI(uri string) WriterOption {
	return WriterOption{func(w *JSONWriter) {
		w.replaceBulkDataURI = uri
		w.replaceURISet = true
	}}
}

// BulkDataDefinition overrides which elements the bulk data mode applies to. The default
// is dicom.DefaultBulkDataDefinition.
func BulkDataDefinition(isBulkData func(*dicom.DataElement) bool) WriterOption {
	return WriterOption{func(w *JSONWriter) { w.isBulkData = isBulkData }}
}

// JSONWriter writes DICOM data sets to a jsongen.Generator in the DICOM JSON model.
//
// A JSONWriter is bound to a single in-flight JSON document: it carries the nesting
// state of that document and must not be shared across concurrent writes or reused for
// an independent document once a write has failed.
type JSONWriter struct {
	gen *jsongen.Generator
	log *zap.Logger

	// jsonTypes is the per-VR output kind override table, indexed by overrideIndex
	jsonTypes [numOverridableVRs]JSONType

	mode               bulkDataMode
	bulkDataURIBase    string
	replaceBulkDataURI string
	replaceURISet      bool
	isBulkData         func(*dicom.DataElement) bool

	// hasItems records, per open sequence or fragment context, whether the corresponding
	// lazily created JSON array has been opened yet
	hasItems []bool

	bigEndian bool
}

// NewJSONWriter creates a JSONWriter emitting to the given generator. Composing
// multiple data sets into one document is done by opening an object on the generator and
// calling WriteDataSet for each set.
func NewJSONWriter(gen *jsongen.Generator, opts ...WriterOption) *JSONWriter {
	w := &JSONWriter{
		gen:        gen,
		log:        zap.NewNop(),
		isBulkData: dicom.DefaultBulkDataDefinition,
	}
	for _, opt := range opts {
		opt.apply(w)
	}
	return w
}

const numOverridableVRs = 4

func overrideIndex(vr *dicom.VR) int {
	switch vr {
	case dicom.DSVR:
		return 0
	case dicom.ISVR:
		return 1
	case dicom.SVVR:
		return 2
	case dicom.UVVR:
		return 3
	}
	return -1
}

// SetJSONType overrides whether values of the given VR are written as JSON numbers or
// JSON strings. Only DS, IS, SV and UV may be overridden; any other VR or JSONType is a
// configuration error, returned before any write begins.
//
// Without an override, DS and IS are written as strings; SV and UV are written as
// numbers when their magnitude is below 2^53 and as decimal strings otherwise. The same
// 2^53 threshold bounds the NUMBER override for IS, SV and UV.
func (w *JSONWriter) SetJSONType(vr *dicom.VR, jsonType JSONType) error {
	i := overrideIndex(vr)
	if i < 0 {
		return fmt.Errorf("JSON type overrides are limited to DS, IS, SV and UV: got %v", vr.Name)
	}
	if jsonType != JSONNumber && jsonType != JSONString {
		return fmt.Errorf("invalid JSON type for %v: %v", vr.Name, jsonType)
	}
	w.jsonTypes[i] = jsonType
	return nil
}

func (w *JSONWriter) jsonType(vr *dicom.VR) JSONType {
	if i := overrideIndex(vr); i >= 0 {
		return w.jsonTypes[i]
	}
	return 0
}

// Write writes the DataSet as one complete JSON object.
func (w *JSONWriter) Write(dataSet *dicom.DataSet) error {
	if err := w.gen.StartObject(); err != nil {
		return err
	}
	if err := w.WriteDataSet(dataSet); err != nil {
		return err
	}
	return w.gen.End()
}

// WriteDataSet writes the elements of the DataSet, in ascending tag order, as members
// of the currently open JSON object. The caller owns the object's lifetime, which
// permits composing e.g. file meta elements and data set elements in one document.
func (w *JSONWriter) WriteDataSet(dataSet *dicom.DataSet) error {
	w.bigEndian = dataSet.BigEndian
	for _, element := range dataSet.SortedElements() {
		if err := w.writeElement(element); err != nil {
			return fmt.Errorf("writing element %v: %v", element.Tag, err)
		}
	}
	return nil
}

// Copy writes the elements produced by the DataElementIterator as one complete JSON
// object, consuming the underlying byte stream as needed and never buffering more than
// one value at a time. Sequence and fragment arrays are opened lazily on their first
// child, so containers that turn out to be empty emit no value key at all.
func (w *JSONWriter) Copy(iter dicom.DataElementIterator) error {
	if err := w.gen.StartObject(); err != nil {
		return err
	}
	if err := w.copyDataSet(iter); err != nil {
		return err
	}
	return w.gen.End()
}

func (w *JSONWriter) copyDataSet(iter dicom.DataElementIterator) error {
	w.bigEndian = iter.ByteOrder() == binary.BigEndian
	for element, err := iter.NextElement(); err != io.EOF; element, err = iter.NextElement() {
		if err != nil {
			return err
		}
		if err := w.writeElement(element); err != nil {
			return fmt.Errorf("writing element %v: %v", element.Tag, err)
		}
	}
	return nil
}

func (w *JSONWriter) writeElement(element *dicom.DataElement) error {
	if element.Tag.IsGroupLength() {
		return drainValueField(element)
	}
	if w.mode == excludeBulkData && w.isBulkData(element) {
		return drainValueField(element)
	}

	vr := element.VR
	if vr == nil {
		vr = element.Tag.DictionaryVR()
	}

	if err := w.gen.StartObjectField(element.Tag.HexString()); err != nil {
		return err
	}
	if err := w.gen.StringField("vr", vr.Name); err != nil {
		return err
	}
	if err := w.writeValue(element, vr); err != nil {
		return err
	}
	return w.gen.End()
}

// drainValueField empties any streaming value of a skipped element so the underlying
// byte stream stays aligned on the next element.
func drainValueField(element *dicom.DataElement) error {
	if closer, ok := element.ValueField.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// pushItemState enters a nested sequence item or fragment context whose JSON array is
// not created until the first child arrives.
func (w *JSONWriter) pushItemState() {
	w.hasItems = append(w.hasItems, false)
}

// ensureArrayOpen opens the named array of the current context if it is not open yet
func (w *JSONWriter) ensureArrayOpen(name string) error {
	if w.hasItems[len(w.hasItems)-1] {
		return nil
	}
	if err := w.gen.StartArrayField(name); err != nil {
		return err
	}
	w.hasItems[len(w.hasItems)-1] = true
	return nil
}

// popItemState leaves the current context, closing its array only if it was opened
func (w *JSONWriter) popItemState() error {
	opened := w.hasItems[len(w.hasItems)-1]
	w.hasItems = w.hasItems[:len(w.hasItems)-1]
	if opened {
		return w.gen.End()
	}
	return nil
}
