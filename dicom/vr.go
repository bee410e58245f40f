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
)

// vrType is to group common encodings together
type vrType int

const (
	// textVR is for value fields that will be interpreted as simple text with space padding
	textVR vrType = iota

	// numberBinaryVR is for value fields that are parsed as binary numbers
	numberBinaryVR

	// bulkDataVR groups sequences of binary numbers
	bulkDataVR

	// uniqueIdentifierVR is for VR: UI. It has null padding
	uniqueIdentifierVR

	// sequenceVR is for VR: SQ
	sequenceVR

	// tagVR is for tags. Distinct from numberBinaryVR due to little endian byte ordering
	tagVR
)

// UndefinedLength as specified
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// VR models the DICOM Value representations (VR)
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
type VR struct {
	// Name represents the 2-character VR Code
	Name string

	kind vrType

	// wordSize is the size in bytes of one element of the value field. It governs
	// byte swapping when converting between big and little endian byte orderings.
	wordSize int
}

var vrLookupMap = map[string]*VR{}

func newVR(text string, vrType vrType, wordSize int) *VR {
	vr := &VR{text, vrType, wordSize}
	vrLookupMap[vr.Name] = vr

	return vr
}

func lookupVRByName(name string) (*VR, error) {
	r, ok := vrLookupMap[name]
	if !ok {
		return nil, fmt.Errorf("unknown vr name: %v", name)
	}
	return r, nil
}

// ToggleEndian returns b with every word of the VR's word size byte-swapped. When
// preserve is true the swap happens in a fresh copy, leaving b untouched for its owner.
// Otherwise b is swapped in place and returned.
func (vr *VR) ToggleEndian(b []byte, preserve bool) []byte {
	if vr.wordSize <= 1 {
		return b
	}
	if preserve {
		b = append([]byte(nil), b...)
	}
	w := vr.wordSize
	for i := 0; i+w <= len(b); i += w {
		for lo, hi := i, i+w-1; lo < hi; lo, hi = lo+1, hi-1 {
			b[lo], b[hi] = b[hi], b[lo]
		}
	}
	return b
}

// VR list obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	// textual VRs
	CSVR = newVR("CS", textVR, 1)
	SHVR = newVR("SH", textVR, 1)
	LOVR = newVR("LO", textVR, 1)
	STVR = newVR("ST", textVR, 1)
	LTVR = newVR("LT", textVR, 1)
	ASVR = newVR("AS", textVR, 1)

	// person name
	PNVR = newVR("PN", textVR, 1)

	// application entity
	AEVR = newVR("AE", textVR, 1)

	// dates/time VR
	DAVR = newVR("DA", textVR, 1)
	TMVR = newVR("TM", textVR, 1)
	DTVR = newVR("DT", textVR, 1)

	// textual numbers
	ISVR = newVR("IS", textVR, 1)
	DSVR = newVR("DS", textVR, 1)

	// binary numbers
	SSVR = newVR("SS", numberBinaryVR, 2)
	USVR = newVR("US", numberBinaryVR, 2)
	SLVR = newVR("SL", numberBinaryVR, 4)
	ULVR = newVR("UL", numberBinaryVR, 4)
	FLVR = newVR("FL", numberBinaryVR, 4)
	FDVR = newVR("FD", numberBinaryVR, 8)

	// 64-bit binary numbers, added in DICOM 2019b
	SVVR = newVR("SV", numberBinaryVR, 8)
	UVVR = newVR("UV", numberBinaryVR, 8)

	// large binary sequences
	OBVR = newVR("OB", bulkDataVR, 1)
	ODVR = newVR("OD", bulkDataVR, 8)
	OLVR = newVR("OL", bulkDataVR, 4)
	OVVR = newVR("OV", bulkDataVR, 8)
	OWVR = newVR("OW", bulkDataVR, 2)
	OFVR = newVR("OF", bulkDataVR, 4)

	// unlimited char
	UCVR = newVR("UC", bulkDataVR, 1)

	// unknown
	UNVR = newVR("UN", bulkDataVR, 1)

	// URL
	URVR = newVR("UR", bulkDataVR, 1)

	// unlimited text
	UTVR = newVR("UT", bulkDataVR, 1)

	// attribute tag
	ATVR = newVR("AT", tagVR, 2)

	// unique identifier
	UIVR = newVR("UI", uniqueIdentifierVR, 1)

	// sequence
	SQVR = newVR("SQ", sequenceVR, 1)
)
