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
	"fmt"
	"sort"
)

// DataElement models a DICOM Data Element as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataElement struct {
	Tag DataElementTag

	// Value Representation
	VR *VR

	// ValueField represents the field within a Data Element that contains its value(s)
	// Can be any of of the following types:
	// []string,
	// []int16,
	// []uint16,
	// []int32,
	// []uint32,
	// []int64,
	// []uint64,
	// []float32,
	// []float64,
	// BulkDataBuffer,
	// BulkDataIterator,
	// []BulkDataReference,
	// *Sequence,
	// SequenceIterator
	ValueField interface{}

	// ValueLength is equal to the length of the ValueField in bytes.
	// Can be equal to 0xFFFFFFFF to represent an undefined length:
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
	ValueLength uint32
}

// StringValue returns the single string contained in the ValueField. An error is returned
// when the ValueField is not a []string of exactly one value.
func (e *DataElement) StringValue() (string, error) {
	strs, ok := e.ValueField.([]string)
	if !ok {
		return "", fmt.Errorf("expected type []string in ValueField, got %T", e.ValueField)
	}
	if len(strs) != 1 {
		return "", fmt.Errorf("expected exactly 1 value in ValueField, got %v", len(strs))
	}
	return strs[0], nil
}

// Empty is true if and only if the ValueField contains no values
func (e *DataElement) Empty() bool {
	switch v := e.ValueField.(type) {
	case nil:
		return true
	case []string:
		return len(v) == 0
	case []int16:
		return len(v) == 0
	case []uint16:
		return len(v) == 0
	case []int32:
		return len(v) == 0
	case []uint32:
		return len(v) == 0
	case []int64:
		return len(v) == 0
	case []uint64:
		return len(v) == 0
	case []float32:
		return len(v) == 0
	case []float64:
		return len(v) == 0
	case []BulkDataReference:
		return len(v) == 0
	case BulkDataBuffer:
		return len(v.Data()) == 0
	case *Sequence:
		return v == nil || len(v.Items) == 0
	}
	return false
}

// DataSet models a DICOM Data Set as defined in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10
type DataSet struct {
	// Elements is a map of DataElement tags to *DataElement
	Elements map[DataElementTag]*DataElement

	// BigEndian indicates the byte ordering of the transfer syntax the DataSet was read
	// with. Buffered binary values are stored in that ordering.
	BigEndian bool
}

// NewDataSet returns a DataSet built from a map of tags to the ValueField of the
// corresponding DataElement. VRs are taken from the data dictionary.
func NewDataSet(elements map[DataElementTag]interface{}) *DataSet {
	ds := &DataSet{Elements: map[DataElementTag]*DataElement{}}
	for tag, valueField := range elements {
		ds.Elements[tag] = &DataElement{tag, tag.DictionaryVR(), valueField, 0}
	}
	return ds
}

// SortedTags returns the tags in the DataSet in ascending order
func (ds *DataSet) SortedTags() []DataElementTag {
	tags := make([]DataElementTag, 0, len(ds.Elements))
	for tag := range ds.Elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// SortedElements returns the DataElements in the DataSet in ascending tag order
func (ds *DataSet) SortedElements() []*DataElement {
	elements := make([]*DataElement, 0, len(ds.Elements))
	for _, tag := range ds.SortedTags() {
		elements = append(elements, ds.Elements[tag])
	}
	return elements
}
