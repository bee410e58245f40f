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

package dicomjson

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dicomweb/go-dicom-json/dicom"
	"github.com/dicomweb/go-dicom-json/jsongen"
)

// constructFile fabricates a DICOM byte stream to drive the streaming path
func constructFile(t *testing.T, dataSet *dicom.DataSet) []byte {
	t.Helper()
	buff := bytes.NewBuffer([]byte{})
	require.NoError(t, dicom.Construct(buff, dataSet))
	return buff.Bytes()
}

func copyJSON(t *testing.T, file []byte, opts ...WriterOption) string {
	t.Helper()
	iter, err := dicom.NewDataElementIterator(bytes.NewReader(file))
	require.NoError(t, err)
	defer iter.Close()

	buff := bytes.NewBuffer([]byte{})
	w := NewJSONWriter(jsongen.NewGenerator(buff), opts...)
	require.NoError(t, w.Copy(iter))
	return buff.String()
}

func streamTestFile(t *testing.T) []byte {
	nestedItem := dataSet(
		element(dicom.ReferencedSOPInstanceUIDTag, dicom.UIVR, []string{"1.2.10"}),
		element(dicom.ReferencedImageSequenceTag, dicom.SQVR, &dicom.Sequence{}),
	)
	return constructFile(t, dataSet(
		element(dicom.TransferSyntaxUIDTag, dicom.UIVR, []string{dicom.ExplicitVRLittleEndianUID}),
		element(dicom.SOPInstanceUIDTag, dicom.UIVR, []string{"1.2.3"}),
		element(dicom.ReferencedStudySequenceTag, dicom.SQVR,
			&dicom.Sequence{Items: []*dicom.DataSet{nestedItem}}),
		element(dicom.PatientNameTag, dicom.PNVR, []string{"Adams^John^^Dr.^"}),
		element(dicom.PatientIDTag, dicom.LOVR, []string{"12"}),
		element(dicom.SimpleFrameListTag, dicom.ULVR, []uint32{7, 8}),
		element(dicom.PixelDataTag, dicom.OWVR,
			dicom.NewBulkDataBuffer([]byte{0x11, 0x11, 0x22, 0x22})),
	))
}

func TestCopy(t *testing.T) {
	got := copyJSON(t, streamTestFile(t))

	require.JSONEq(t, `{
		"00020010": {"vr": "UI", "Value": ["1.2.840.10008.1.2.1"]},
		"00080018": {"vr": "UI", "Value": ["1.2.3"]},
		"00081110": {"vr": "SQ", "Value": [{
			"00081140": {"vr": "SQ"},
			"00081155": {"vr": "UI", "Value": ["1.2.10"]}
		}]},
		"00100010": {"vr": "PN", "Value": [{"Alphabetic": "Adams^John^^Dr."}]},
		"00100020": {"vr": "LO", "Value": ["12"]},
		"00081161": {"vr": "UL", "Value": [7, 8]},
		"7FE00010": {"vr": "OW", "InlineBinary": "EREiIg=="}
	}`, got)
}

func TestCopy_matchesBatchOutput(t *testing.T) {
	file := streamTestFile(t)

	streamed := copyJSON(t, file)

	parsed, err := dicom.Parse(bytes.NewReader(file))
	require.NoError(t, err)
	batch := writeJSON(t, parsed)

	require.JSONEq(t, batch, streamed)
}

func TestCopy_encapsulatedFormat(t *testing.T) {
	ds := dataSet(
		element(dicom.TransferSyntaxUIDTag, dicom.UIVR, []string{dicom.JPEGBaselineUID}),
	)
	ds.Elements[dicom.PixelDataTag] = &dicom.DataElement{
		Tag:         dicom.PixelDataTag,
		VR:          dicom.OBVR,
		ValueField:  dicom.NewBulkDataBuffer([]byte{}, []byte{0x01, 0x02}),
		ValueLength: dicom.UndefinedLength,
	}
	file := constructFile(t, ds)

	require.JSONEq(t, `{
		"00020010": {"vr": "UI", "Value": ["1.2.840.10008.1.2.4.50"]},
		"7FE00010": {"vr": "OB", "DataFragment": [null, {"InlineBinary": "AQI="}]}
	}`, copyJSON(t, file))
}

func TestCopy_excludeBulkData(t *testing.T) {
	file := constructFile(t, dataSet(
		element(dicom.TransferSyntaxUIDTag, dicom.UIVR, []string{dicom.ExplicitVRLittleEndianUID}),
		element(dicom.OverlayDataTag, dicom.OBVR, dicom.NewBulkDataBuffer([]byte{0x01, 0x02})),
		element(dicom.PatientIDTag, dicom.LOVR, []string{"12"}),
		element(dicom.PixelDataTag, dicom.OWVR, dicom.NewBulkDataBuffer([]byte{0x01, 0x02})),
	))

	// excluded values must still be drained so elements after them stay readable
	got := copyJSON(t, file, ExcludeBulkData())
	require.JSONEq(t, `{
		"00020010": {"vr": "UI", "Value": ["1.2.840.10008.1.2.1"]},
		"00100020": {"vr": "LO", "Value": ["12"]}
	}`, got)
}

func TestCopy_bulkDataURIOnly(t *testing.T) {
	file := constructFile(t, dataSet(
		element(dicom.TransferSyntaxUIDTag, dicom.UIVR, []string{dicom.ExplicitVRLittleEndianUID}),
		element(dicom.PatientIDTag, dicom.LOVR, []string{"12"}),
		element(dicom.PixelDataTag, dicom.OWVR,
			dicom.NewBulkDataBuffer([]byte{0x01, 0x02, 0x03, 0x04})),
	))

	t.Run("URIs are derived from the byte region", func(t *testing.T) {
		got := copyJSON(t, file, BulkDataURIOnly("http://server/file.dcm"))
		require.Regexp(t,
			regexp.MustCompile(`"7FE00010":\{"vr":"OW","BulkDataURI":"http://server/file\.dcm\?offset=\d+&length=4"\}`),
			got)
		require.Contains(t, got, `"00100020":{"vr":"LO","Value":["12"]}`)
	})

	t.Run("a replacement URI redacts every reference", func(t *testing.T) {
		got := copyJSON(t, file,
			BulkDataURIOnly("http://server/file.dcm"),
			ReplaceBulkDataURI("http://redacted.invalid"))
		require.Contains(t, got,
			`"7FE00010":{"vr":"OW","BulkDataURI":"http://redacted.invalid"}`)
	})
}

func TestCopy_specificCharacterSet(t *testing.T) {
	file := constructFile(t, dataSet(
		element(dicom.TransferSyntaxUIDTag, dicom.UIVR, []string{dicom.ExplicitVRLittleEndianUID}),
	))
	// hand crafted data set elements so the Latin-1 byte 0xFC is written untouched
	file = append(file,
		0x08, 0x00, 0x05, 0x00, // (0008,0005) Specific Character Set
		'C', 'S',
		0x0A, 0x00,
		'I', 'S', 'O', '_', 'I', 'R', ' ', '1', '0', '0',
		0x10, 0x00, 0x10, 0x00, // (0010,0010) Patient Name
		'P', 'N',
		0x02, 0x00,
		0xFC, 0x20, // "ü" in ISO_IR 100 plus space padding
	)

	got := copyJSON(t, file)
	require.Contains(t, got, `"00100010":{"vr":"PN","Value":[{"Alphabetic":"ü"}]}`)
}
