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
	"bytes"
	"reflect"
	"testing"
)

// constructFile fabricates a DICOM byte stream for parser tests
func constructFile(t *testing.T, dataSet *DataSet) []byte {
	t.Helper()
	buff := bytes.NewBuffer([]byte{})
	if err := Construct(buff, dataSet); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	return buff.Bytes()
}

func TestParse_dropGroupLengths(t *testing.T) {
	file := constructFile(t, NewDataSet(map[DataElementTag]interface{}{
		TransferSyntaxUIDTag: []string{ExplicitVRLittleEndianUID},
		PatientIDTag:         []string{"12"},
	}))

	parsed, err := Parse(bytes.NewReader(file), DropGroupLengths)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, ok := parsed.Elements[FileMetaInformationGroupLengthTag]; ok {
		t.Errorf("expected group length element to be excluded")
	}
	if _, ok := parsed.Elements[PatientIDTag]; !ok {
		t.Errorf("expected patient id element to be included")
	}
}

func TestParse_referenceBulkData(t *testing.T) {
	file := constructFile(t, NewDataSet(map[DataElementTag]interface{}{
		TransferSyntaxUIDTag: []string{ExplicitVRLittleEndianUID},
		PixelDataTag:         NewBulkDataBuffer([]byte{0x11, 0x11, 0x22, 0x22}),
	}))

	parsed, err := Parse(bytes.NewReader(file), ReferenceBulkData(DefaultBulkDataDefinition))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	refs, ok := parsed.Elements[PixelDataTag].ValueField.([]BulkDataReference)
	if !ok {
		t.Fatalf("expected pixel data to be []BulkDataReference, got %T",
			parsed.Elements[PixelDataTag].ValueField)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %v", len(refs))
	}
	if refs[0].Reference.Length != 4 {
		t.Errorf("expected reference length 4, got %v", refs[0].Reference.Length)
	}
	if refs[0].Reference.Offset <= 0 {
		t.Errorf("expected a positive reference offset, got %v", refs[0].Reference.Offset)
	}
}

func TestParse_withTransformFilter(t *testing.T) {
	file := constructFile(t, NewDataSet(map[DataElementTag]interface{}{
		TransferSyntaxUIDTag: []string{ExplicitVRLittleEndianUID},
		PatientIDTag:         []string{"12"},
		SOPInstanceUIDTag:    []string{"1.2.3"},
	}))

	dropPatientID := WithTransform(func(element *DataElement) (*DataElement, error) {
		if element.Tag == PatientIDTag {
			return nil, nil
		}
		return element, nil
	})

	parsed, err := Parse(bytes.NewReader(file), dropPatientID)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, ok := parsed.Elements[PatientIDTag]; ok {
		t.Errorf("expected patient id element to be filtered out")
	}
	if _, ok := parsed.Elements[SOPInstanceUIDTag]; !ok {
		t.Errorf("expected sop instance uid element to be included")
	}
}

func TestParse_specificCharacterSet(t *testing.T) {
	// the meta header is fabricated, the data set elements are hand crafted so the
	// Latin-1 byte 0xFC is written untouched
	file := constructFile(t, NewDataSet(map[DataElementTag]interface{}{
		TransferSyntaxUIDTag: []string{ExplicitVRLittleEndianUID},
	}))
	file = append(file,
		0x08, 0x00, 0x05, 0x00, // (0008,0005) Specific Character Set
		'C', 'S',
		0x0A, 0x00,
		'I', 'S', 'O', '_', 'I', 'R', ' ', '1', '0', '0',
		0x10, 0x00, 0x20, 0x00, // (0010,0020) Patient ID
		'L', 'O',
		0x02, 0x00,
		0xFC, 0x20, // "ü" in ISO_IR 100 plus space padding
	)

	parsed, err := Parse(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := parsed.Elements[PatientIDTag].ValueField
	if want := []string{"ü"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected patient id to be decoded with ISO_IR 100: got %q, want %q", got, want)
	}
}

func TestCollectFragments(t *testing.T) {
	file := constructFile(t, NewDataSet(map[DataElementTag]interface{}{
		TransferSyntaxUIDTag: []string{ExplicitVRLittleEndianUID},
		PatientIDTag:         []string{"12"},
	}))

	iter, err := NewDataElementIterator(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("NewDataElementIterator: %v", err)
	}
	defer iter.Close()

	parsed, err := CollectDataElements(iter)
	if err != nil {
		t.Fatalf("CollectDataElements: %v", err)
	}
	if got, err := parsed.Elements[PatientIDTag].StringValue(); err != nil || got != "12" {
		t.Fatalf("StringValue: got (%q, %v), want (%q, nil)", got, err, "12")
	}
}
