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

import "fmt"

// DataElementTag is a unique identifier for a Data Element composed of an ordered pair
// of numbers called the group number and the element number as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10.
//
// The least significant 16 bits is the element number. The most significant 16 bits is the
// group number.
type DataElementTag uint32

// GroupNumber returns the group number component of the DataElementTag
func (t DataElementTag) GroupNumber() uint16 {
	return uint16(t >> 16)
}

// ElementNumber returns the element number component of the DataElementTag
func (t DataElementTag) ElementNumber() uint16 {
	return uint16(t & 0xFFFF)
}

// IsGroupLength is true if and only if the Data Element is a group length element
// (element number 0). Group length elements are legacy and are excluded from most outputs.
func (t DataElementTag) IsGroupLength() bool {
	return t.ElementNumber() == 0
}

// IsMetaElement is true if and only if the Data Element is a file meta element
func (t DataElementTag) IsMetaElement() bool {
	return t.GroupNumber() == uint16(0x0002)
}

// IsPrivateCreator is true if and only if the Data Element reserves a block of
// private tags as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.8.1
func (t DataElementTag) IsPrivateCreator() bool {
	return t.GroupNumber()%2 == 1 && 0x0010 <= t.ElementNumber() && t.ElementNumber() <= 0x00FF
}

// String returns the tag in (gggg,eeee) format
func (t DataElementTag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.GroupNumber(), t.ElementNumber())
}

// HexString returns the tag as an 8 character uppercase hexadecimal string, the key format
// of the DICOM JSON model.
func (t DataElementTag) HexString() string {
	return fmt.Sprintf("%08X", uint32(t))
}

// DictionaryVR returns the VR of the Data Element Tag in the DICOM data dictionary. If the tag
// is not in the supported subset of the dictionary, UN is returned as permitted by
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2.2
func (t DataElementTag) DictionaryVR() *VR {
	if vr, ok := dictionaryVRs[t]; ok {
		return vr
	}
	if t.IsGroupLength() {
		return ULVR
	}
	if t.IsPrivateCreator() {
		return LOVR
	}
	return UNVR
}

// commonly referenced tags
const (
	FileMetaInformationGroupLengthTag = DataElementTag(0x00020000)
	FileMetaInformationVersionTag     = DataElementTag(0x00020001)
	MediaStorageSOPClassUIDTag        = DataElementTag(0x00020002)
	MediaStorageSOPInstanceUIDTag     = DataElementTag(0x00020003)
	TransferSyntaxUIDTag              = DataElementTag(0x00020010)
	ImplementationClassUIDTag         = DataElementTag(0x00020012)
	ImplementationVersionNameTag      = DataElementTag(0x00020013)

	SpecificCharacterSetTag = DataElementTag(0x00080005)
	SOPClassUIDTag          = DataElementTag(0x00080016)
	SOPInstanceUIDTag       = DataElementTag(0x00080018)

	ReferencedStudySequenceTag  = DataElementTag(0x00081110)
	ReferencedImageSequenceTag  = DataElementTag(0x00081140)
	ReferencedSOPClassUIDTag    = DataElementTag(0x00081150)
	ReferencedSOPInstanceUIDTag = DataElementTag(0x00081155)
	SimpleFrameListTag          = DataElementTag(0x00081161)

	PatientNameTag = DataElementTag(0x00100010)
	PatientIDTag   = DataElementTag(0x00100020)

	FrameIncrementPointerTag = DataElementTag(0x00280009)

	// bulk data tags; tags containing "xx" wildcards in the data dictionary are stored
	// with the x's set to 0
	PixelDataProviderURLTag = DataElementTag(0x00287FE0)
	EncapsulatedDocumentTag = DataElementTag(0x00420011)
	AudioSampleDataTag      = DataElementTag(0x5000200C)
	CurveDataTag            = DataElementTag(0x50003000)
	WaveformDataTag         = DataElementTag(0x54001010)
	SpectroscopyDataTag     = DataElementTag(0x56000020)
	OverlayDataTag          = DataElementTag(0x60003000)
	FloatPixelDataTag       = DataElementTag(0x7FE00008)
	DoubleFloatPixelDataTag = DataElementTag(0x7FE00009)
	PixelDataTag            = DataElementTag(0x7FE00010)

	ItemTag                     = DataElementTag(0xFFFEE000)
	ItemDelimitationItemTag     = DataElementTag(0xFFFEE00D)
	SequenceDelimitationItemTag = DataElementTag(0xFFFEE0DD)
)

// dictionaryVRs is the subset of the DICOM data dictionary needed to read files in the
// implicit VR syntax. Tags outside this subset fall back to UN.
var dictionaryVRs = map[DataElementTag]*VR{
	FileMetaInformationGroupLengthTag: ULVR,
	FileMetaInformationVersionTag:     OBVR,
	MediaStorageSOPClassUIDTag:        UIVR,
	MediaStorageSOPInstanceUIDTag:     UIVR,
	TransferSyntaxUIDTag:              UIVR,
	ImplementationClassUIDTag:         UIVR,
	ImplementationVersionNameTag:      SHVR,

	SpecificCharacterSetTag: CSVR,
	SOPClassUIDTag:          UIVR,
	SOPInstanceUIDTag:       UIVR,

	ReferencedStudySequenceTag:  SQVR,
	ReferencedImageSequenceTag:  SQVR,
	ReferencedSOPClassUIDTag:    UIVR,
	ReferencedSOPInstanceUIDTag: UIVR,
	SimpleFrameListTag:          ULVR,

	FrameIncrementPointerTag: ATVR,

	PatientNameTag: PNVR,
	PatientIDTag:   LOVR,

	PixelDataTag: OWVR,
}
