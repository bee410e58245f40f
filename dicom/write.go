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

package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// Construct writes the given *DataSet as a DICOM file to the given io.Writer. The desired
// output transfer syntax is specified as a required TransferSyntax DataElement
// (0002,0010). There is no validation against the DICOM standard of any form.
//
// If a *DataElement in the *DataSet is missing its VR it will be filled in from the DICOM
// data dictionary. The ValueLength of DataElements is ignored and re-calculated, except
// that an UndefinedLength ValueLength is kept. Sequences are always written with
// undefined lengths and item delimiters.
func Construct(w io.Writer, dataSet *DataSet) error {
	dw := &dcmWriter{w}

	if err := writeDicomSignature(dw); err != nil {
		return err
	}

	dataSetSyntax, err := findSyntaxFromDataSet(dataSet)
	if err != nil {
		return fmt.Errorf("getting transfer syntax from data set: %v", err)
	}

	// The FileMetaInformationGroupLength element is a critical component of the Meta
	// Header. It stores how long the meta header is. Thus, we need to re-calculate it
	// properly.
	metaGroupLengthElement, err := createMetaGroupLengthElement(dataSet)
	if err != nil {
		return fmt.Errorf("creating meta group length element: %v", err)
	}
	dataSet.Elements[FileMetaInformationGroupLengthTag] = metaGroupLengthElement

	for _, tag := range dataSet.SortedTags() {
		element := dataSet.Elements[tag]

		syntax := dataSetSyntax
		if tag.IsMetaElement() {
			// File meta elements are always in explicit VR little endian as specified in the
			// standard http://dicom.nema.org/medical/dicom/current/output/html/part10.html#sect_7.1
			syntax = explicitVRLittleEndian
		}
		if err := writeDataElement(dw, syntax, element); err != nil {
			return fmt.Errorf("writing data element %v: %v", tag, err)
		}
	}

	return nil
}

func writeDicomSignature(dw *dcmWriter) error {
	if err := dw.Bytes(make([]byte, 128)); err != nil {
		return fmt.Errorf("writing DICOM preamble: %v", err)
	}

	if err := dw.String("DICM"); err != nil {
		return fmt.Errorf("writing DICOM signature: %v", err)
	}

	return nil
}

func findSyntaxFromDataSet(dataSet *DataSet) (transferSyntax, error) {
	syntaxElement, ok := dataSet.Elements[TransferSyntaxUIDTag]
	if !ok {
		return transferSyntax{}, fmt.Errorf("transfer syntax element is missing from data set")
	}

	syntaxUID, err := syntaxElement.StringValue()
	if err != nil {
		return transferSyntax{}, fmt.Errorf("transfer syntax element cannot be converted to string: %v", err)
	}

	return lookupTransferSyntax(syntaxUID), nil
}

func createMetaGroupLengthElement(dataSet *DataSet) (*DataElement, error) {
	// Please refer to the DICOM Standard Part 10 for information on the File Meta
	// Information Group Length.
	// http://dicom.nema.org/medical/dicom/current/output/html/part10.html#sect_7.1

	size := uint32(0)
	for _, tag := range dataSet.SortedTags() {
		if tag == FileMetaInformationGroupLengthTag {
			// The Group Length stores the size of the meta elements following this tag.
			continue
		}
		if !tag.IsMetaElement() {
			break
		}
		element, err := processedElement(dataSet.Elements[tag])
		if err != nil {
			return nil, fmt.Errorf("processing element: %v", err)
		}
		size += explicitVRLittleEndian.elementSize(element.VR, element.ValueLength)
	}

	return &DataElement{
		Tag:         FileMetaInformationGroupLengthTag,
		VR:          FileMetaInformationGroupLengthTag.DictionaryVR(),
		ValueField:  []uint32{size},
		ValueLength: 4, // 4bytes = sizeof uint32
	}, nil
}

func writeDataElement(dw *dcmWriter, syntax transferSyntax, element *DataElement) error {
	element, err := processedElement(element)
	if err != nil {
		return fmt.Errorf("processing element: %v", err)
	}

	if err := dw.Tag(syntax.ByteOrder, element.Tag); err != nil {
		return fmt.Errorf("writing tag: %v", err)
	}
	if err := syntax.writeVR(dw, element.VR); err != nil {
		return fmt.Errorf("writing VR: %v", err)
	}
	if err := syntax.writeValueLength(dw, element.VR, element.ValueLength); err != nil {
		return fmt.Errorf("writing length: %v", err)
	}
	if err := writeValue(dw, syntax, element.VR, element.ValueLength, element.ValueField); err != nil {
		return fmt.Errorf("writing value: %v", err)
	}

	return nil
}

// processedElement returns the element with its VR filled in from the data dictionary if
// missing and its ValueLength re-calculated
func processedElement(element *DataElement) (*DataElement, error) {
	vr := element.VR
	if vr == nil {
		vr = element.Tag.DictionaryVR()
	}

	length, err := calculateValueLength(element, vr)
	if err != nil {
		return nil, fmt.Errorf("calculating value length: %v", err)
	}

	return &DataElement{element.Tag, vr, element.ValueField, length}, nil
}

func calculateValueLength(element *DataElement, vr *VR) (uint32, error) {
	if element.ValueLength == UndefinedLength || vr == SQVR {
		return UndefinedLength, nil
	}

	numBytes := int64(0)

	switch v := element.ValueField.(type) {
	case []string:
		for _, s := range v {
			numBytes += int64(len(s))
		}
		if len(v) > 0 { // requires "\" delimiter
			numBytes += int64(len(v)) - 1
		}
	case BulkDataBuffer:
		numBytes = v.Length()
	case [][]byte:
		numBytes = NewBulkDataBuffer(v...).Length()
	case []int16:
		numBytes = int64(len(v)) * 2
	case []uint16:
		numBytes = int64(len(v)) * 2
	case []int32:
		numBytes = int64(len(v)) * 4
	case []uint32:
		numBytes = int64(len(v)) * 4
	case []int64:
		numBytes = int64(len(v)) * 8
	case []uint64:
		numBytes = int64(len(v)) * 8
	case []float32:
		numBytes = int64(len(v)) * 4
	case []float64:
		numBytes = int64(len(v)) * 8
	default:
		return 0, fmt.Errorf("unexpected ValueField type %T", element.ValueField)
	}

	if numBytes >= math.MaxUint32 {
		return UndefinedLength, nil
	}

	if numBytes%2 != 0 {
		numBytes++
	}

	return uint32(numBytes), nil
}

func writeValue(dw *dcmWriter, syntax transferSyntax, vr *VR, length uint32, valueField interface{}) error {
	spacePadding := byte(0x20)
	nullPadding := byte(0x00)

	switch vr.kind {
	case textVR:
		return writeText(dw, spacePadding, valueField)
	case numberBinaryVR:
		return writeNumberBinary(dw, syntax, valueField)
	case bulkDataVR:
		return writeBulkData(dw, syntax, length, valueField)
	case uniqueIdentifierVR:
		return writeText(dw, nullPadding, valueField)
	case sequenceVR:
		return writeSequence(dw, syntax, valueField)
	case tagVR:
		return writeTag(dw, syntax.ByteOrder, valueField)
	default:
		return fmt.Errorf("unknown vr kind found: %v", vr.kind)
	}
}

func writeText(dw *dcmWriter, paddingByte byte, v interface{}) error {
	strs, ok := v.([]string)
	if !ok {
		return fmt.Errorf("expected type []string, got %T", v)
	}

	b := strings.Join(strs, "\\")
	if len(b)%2 != 0 {
		b += string(paddingByte)
	}

	return dw.String(b)
}

func writeNumberBinary(dw *dcmWriter, syntax transferSyntax, v interface{}) error {
	switch field := v.(type) {
	case []int16, []uint16, []int32, []uint32, []int64, []uint64, []float32, []float64:
		return binary.Write(dw, syntax.ByteOrder, v)
	default:
		return fmt.Errorf("unsupported binary number type: %T", field)
	}
}

func writeBulkData(dw *dcmWriter, syntax transferSyntax, length uint32, v interface{}) error {
	var fragments [][]byte
	switch field := v.(type) {
	case BulkDataBuffer:
		fragments = field.Data()
	case [][]byte:
		fragments = field
	case []int16, []uint16, []int32, []uint32, []int64, []uint64, []float32, []float64:
		return binary.Write(dw, syntax.ByteOrder, field)
	case []string:
		return writeText(dw, ' ', v)
	default:
		return fmt.Errorf("unknown bulk data type: %T", v)
	}

	if length == UndefinedLength {
		// UndefinedLength is always the encapsulated format.
		return writeEncapsulatedFormat(dw, syntax.ByteOrder, fragments)
	}
	written := int64(0)
	for _, fragment := range fragments {
		if err := dw.Bytes(fragment); err != nil {
			return fmt.Errorf("writing fragment: %v", err)
		}
		written += int64(len(fragment))
	}
	if written%2 != 0 {
		return dw.Bytes([]byte{0x00})
	}
	return nil
}

// writeEncapsulatedFormat writes the byte fragments in the encapsulated format. The
// first fragment given is assumed to be the basic offset table.
func writeEncapsulatedFormat(dw *dcmWriter, order binary.ByteOrder, fragments [][]byte) error {
	for _, fragment := range fragments {
		if len(fragment)%2 != 0 {
			fragment = append(append([]byte(nil), fragment...), 0x00)
		}
		if err := dw.Tag(order, ItemTag); err != nil {
			return fmt.Errorf("writing fragment tag: %v", err)
		}
		if err := dw.UInt32(order, uint32(len(fragment))); err != nil {
			return fmt.Errorf("writing fragment length: %v", err)
		}
		if err := dw.Bytes(fragment); err != nil {
			return fmt.Errorf("writing fragment: %v", err)
		}
	}

	if err := dw.Tag(order, SequenceDelimitationItemTag); err != nil {
		return fmt.Errorf("writing fragment delimitation tag: %v", err)
	}
	if err := dw.UInt32(order, 0); err != nil {
		return fmt.Errorf("writing delimiter length: %v", err)
	}

	return nil
}

func writeSequence(dw *dcmWriter, syntax transferSyntax, v interface{}) error {
	seq, ok := v.(*Sequence)
	if !ok {
		return fmt.Errorf("unknown sequence type found: %T (expected *Sequence)", v)
	}

	for _, item := range seq.Items {
		if err := dw.Tag(syntax.ByteOrder, ItemTag); err != nil {
			return fmt.Errorf("writing item tag: %v", err)
		}
		if err := dw.UInt32(syntax.ByteOrder, UndefinedLength); err != nil {
			return fmt.Errorf("writing item length: %v", err)
		}

		if err := writeDataSet(dw, syntax, item); err != nil {
			return fmt.Errorf("writing sequence item: %v", err)
		}

		if err := dw.Tag(syntax.ByteOrder, ItemDelimitationItemTag); err != nil {
			return fmt.Errorf("writing item delimitation item tag: %v", err)
		}
		if err := dw.UInt32(syntax.ByteOrder, 0); err != nil {
			return fmt.Errorf("writing length of item delimitation item tag: %v", err)
		}
	}

	// write sequence delimitation item
	if err := dw.Tag(syntax.ByteOrder, SequenceDelimitationItemTag); err != nil {
		return fmt.Errorf("writing tag of sequence delimitation item: %v", err)
	}
	if err := dw.UInt32(syntax.ByteOrder, 0); err != nil {
		return fmt.Errorf("writing item length of sequence delimitation item: %v", err)
	}

	return nil
}

func writeTag(dw *dcmWriter, order binary.ByteOrder, valueField interface{}) error {
	tags, ok := valueField.([]uint32)
	if !ok {
		return fmt.Errorf("unexpected type for tag VR: %T (expected []uint32)", valueField)
	}
	for _, tag := range tags {
		if err := dw.Tag(order, DataElementTag(tag)); err != nil {
			return err
		}
	}
	return nil
}

func writeDataSet(dw *dcmWriter, syntax transferSyntax, ds *DataSet) error {
	for _, tag := range ds.SortedTags() {
		element := ds.Elements[tag]
		if err := writeDataElement(dw, syntax, element); err != nil {
			return fmt.Errorf("writing data element: %v", err)
		}
	}
	return nil
}
