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
	"encoding/base64"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/dicomweb/go-dicom-json/dicom"
)

// maxSafeInteger is the largest integer magnitude exactly representable by the double
// precision number space of JSON readers, 2^53-1. Integers beyond it are written as
// decimal strings.
const maxSafeInteger = 1<<53 - 1

func (w *JSONWriter) writeValue(element *dicom.DataElement, vr *dicom.VR) error {
	if element.Empty() {
		return nil
	}

	switch v := element.ValueField.(type) {
	case []string:
		return w.writeStrings(element.Tag, vr, v)
	case []int16:
		return w.writeInts(len(v), func(i int) int64 { return int64(v[i]) })
	case []uint16:
		return w.writeInts(len(v), func(i int) int64 { return int64(v[i]) })
	case []int32:
		return w.writeInts(len(v), func(i int) int64 { return int64(v[i]) })
	case []uint32:
		if vr == dicom.ATVR {
			return w.writeTags(v)
		}
		return w.writeUints(len(v), func(i int) uint64 { return uint64(v[i]) })
	case []int64:
		return w.writeInt64s(element.Tag, v)
	case []uint64:
		return w.writeUint64s(element.Tag, v)
	case []float32:
		return w.writeFloat32s(element.Tag, v)
	case []float64:
		return w.writeFloat64s(element.Tag, v)
	case *dicom.Sequence:
		return w.writeSequence(v)
	case dicom.SequenceIterator:
		return w.copySequence(v)
	case dicom.BulkDataBuffer:
		return w.writeBulkDataBuffer(element, vr, v)
	case [][]byte:
		return w.writeBulkDataBuffer(element, vr, dicom.NewBulkDataBuffer(v...))
	case []dicom.BulkDataReference:
		return w.writeBulkDataReferences(v)
	case dicom.BulkDataIterator:
		return w.copyBulkData(element, vr, v)
	default:
		return fmt.Errorf("unsupported ValueField type %T", element.ValueField)
	}
}

func (w *JSONWriter) writeStrings(tag dicom.DataElementTag, vr *dicom.VR, values []string) error {
	switch vr {
	case dicom.PNVR:
		return w.writePersonNames(values)
	case dicom.DSVR:
		if w.jsonType(dicom.DSVR) == JSONNumber {
			return w.writeDecimalStrings(tag, values)
		}
	case dicom.ISVR:
		if w.jsonType(dicom.ISVR) == JSONNumber {
			return w.writeIntegerStrings(tag, values)
		}
	}

	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, s := range values {
		if s == "" {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.String(s); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writePersonNames writes PN values as component group objects keyed by Alphabetic,
// Ideographic and Phonetic, as required by the JSON model. Values are parsed leniently:
// malformed names are repaired with a diagnostic instead of aborting the document.
func (w *JSONWriter) writePersonNames(values []string) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, s := range values {
		if s == "" {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		pn, err := dicom.ParsePersonName(s, dicom.Lenient(), dicom.PersonNameDiagnostics(w.log))
		if err != nil {
			return fmt.Errorf("parsing person name %q: %v", s, err)
		}
		if pn.Empty() {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.StartObject(); err != nil {
			return err
		}
		for g := dicom.Alphabetic; g <= dicom.Phonetic; g++ {
			if !pn.Contains(g) {
				continue
			}
			if err := w.gen.StringField(g.String(), pn.GroupString(g, true)); err != nil {
				return err
			}
		}
		if err := w.gen.End(); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writeDecimalStrings writes DS values under the NUMBER override. Text that fails
// numeric parsing degrades to a string for that single value with a diagnostic.
func (w *JSONWriter) writeDecimalStrings(tag dicom.DataElementTag, values []string) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, s := range values {
		if s == "" {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			w.log.Info("non-parsable DS value - writing as string",
				zap.Stringer("tag", tag), zap.String("value", s))
			if err := w.gen.String(s); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.Float64(v); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writeIntegerStrings writes IS values under the NUMBER override. The 2^53 safe integer
// threshold applies to the parsed value exactly as it does for SV and UV.
func (w *JSONWriter) writeIntegerStrings(tag dicom.DataElementTag, values []string) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, s := range values {
		if s == "" {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			w.log.Info("non-parsable IS value - writing as string",
				zap.Stringer("tag", tag), zap.String("value", s))
			if err := w.gen.String(s); err != nil {
				return err
			}
			continue
		}
		if v > maxSafeInteger || v < -maxSafeInteger {
			if err := w.gen.String(s); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.Int(v); err != nil {
			return err
		}
	}
	return w.gen.End()
}

func (w *JSONWriter) writeInts(n int, at func(int) int64) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.gen.Int(at(i)); err != nil {
			return err
		}
	}
	return w.gen.End()
}

func (w *JSONWriter) writeUints(n int, at func(int) uint64) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.gen.Uint(at(i)); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writeTags writes AT values as 8 character uppercase hex strings
func (w *JSONWriter) writeTags(values []uint32) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, v := range values {
		if err := w.gen.String(dicom.DataElementTag(v).HexString()); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writeInt64s writes SV values: decimal strings under the STRING override or beyond the
// safe integer threshold, literal numbers otherwise.
func (w *JSONWriter) writeInt64s(tag dicom.DataElementTag, values []int64) error {
	asString := w.jsonType(dicom.SVVR) == JSONString
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, v := range values {
		if asString || v > maxSafeInteger || v < -maxSafeInteger {
			if err := w.gen.String(strconv.FormatInt(v, 10)); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.Int(v); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writeUint64s writes UV values, with the same threshold as writeInt64s
func (w *JSONWriter) writeUint64s(tag dicom.DataElementTag, values []uint64) error {
	asString := w.jsonType(dicom.UVVR) == JSONString
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, v := range values {
		if asString || v > maxSafeInteger {
			if err := w.gen.String(strconv.FormatUint(v, 10)); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.Uint(v); err != nil {
			return err
		}
	}
	return w.gen.End()
}

// writeFloat32s writes FL values. JSON has no representation for NaN or the infinities:
// NaN becomes null, the infinities clamp to the largest finite float32 magnitudes. Each
// substitution is reported as a diagnostic and writing continues.
func (w *JSONWriter) writeFloat32s(tag dicom.DataElementTag, values []float32) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, v := range values {
		switch {
		case math.IsNaN(float64(v)):
			w.log.Info("encountered NaN - substituting null", zap.Stringer("tag", tag))
			if err := w.gen.Null(); err != nil {
				return err
			}
		case math.IsInf(float64(v), 1):
			w.log.Info("encountered Infinity - substituting max float value", zap.Stringer("tag", tag))
			if err := w.gen.Float32(math.MaxFloat32); err != nil {
				return err
			}
		case math.IsInf(float64(v), -1):
			w.log.Info("encountered -Infinity - substituting min float value", zap.Stringer("tag", tag))
			if err := w.gen.Float32(-math.MaxFloat32); err != nil {
				return err
			}
		default:
			if err := w.gen.Float32(v); err != nil {
				return err
			}
		}
	}
	return w.gen.End()
}

// writeFloat64s writes FD values, clamping to the largest finite float64 magnitudes
func (w *JSONWriter) writeFloat64s(tag dicom.DataElementTag, values []float64) error {
	if err := w.gen.StartArrayField("Value"); err != nil {
		return err
	}
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			w.log.Info("encountered NaN - substituting null", zap.Stringer("tag", tag))
			if err := w.gen.Null(); err != nil {
				return err
			}
		case math.IsInf(v, 1):
			w.log.Info("encountered Infinity - substituting max double value", zap.Stringer("tag", tag))
			if err := w.gen.Float64(math.MaxFloat64); err != nil {
				return err
			}
		case math.IsInf(v, -1):
			w.log.Info("encountered -Infinity - substituting min double value", zap.Stringer("tag", tag))
			if err := w.gen.Float64(-math.MaxFloat64); err != nil {
				return err
			}
		default:
			if err := w.gen.Float64(v); err != nil {
				return err
			}
		}
	}
	return w.gen.End()
}

// writeSequence writes a buffered sequence. The Value array is opened on the first item
// so an empty sequence emits the vr alone with no Value key.
func (w *JSONWriter) writeSequence(seq *dicom.Sequence) error {
	w.pushItemState()
	for _, item := range seq.Items {
		if err := w.ensureArrayOpen("Value"); err != nil {
			return err
		}
		if err := w.gen.StartObject(); err != nil {
			return err
		}
		for _, element := range item.SortedElements() {
			if err := w.writeElement(element); err != nil {
				return fmt.Errorf("writing element %v: %v", element.Tag, err)
			}
		}
		if err := w.gen.End(); err != nil {
			return err
		}
	}
	return w.popItemState()
}

// copySequence streams sequence items whose count is not known in advance
func (w *JSONWriter) copySequence(iter dicom.SequenceIterator) error {
	w.pushItemState()
	for item, err := iter.Next(); err != io.EOF; item, err = iter.Next() {
		if err != nil {
			return err
		}
		if err := w.ensureArrayOpen("Value"); err != nil {
			return err
		}
		if err := w.gen.StartObject(); err != nil {
			return err
		}
		if err := w.copyDataSet(item); err != nil {
			return err
		}
		if err := w.gen.End(); err != nil {
			return err
		}
	}
	return w.popItemState()
}

// writeBulkDataBuffer writes buffered binary values. An undefined length marks the
// encapsulated format, emitted as a DataFragment array with one entry per fragment.
// Buffered bytes belong to the data set, so big endian input is swapped in a copy.
func (w *JSONWriter) writeBulkDataBuffer(element *dicom.DataElement, vr *dicom.VR, buffer dicom.BulkDataBuffer) error {
	if element.ValueLength == dicom.UndefinedLength {
		return w.writeFragments(vr, buffer.Data(), true)
	}

	data := bytes.Join(buffer.Data(), nil)
	if len(data) == 0 {
		return nil
	}
	if w.bigEndian {
		data = vr.ToggleEndian(data, true)
	}
	return w.gen.StringField("InlineBinary", base64.StdEncoding.EncodeToString(data))
}

// writeFragments writes the encapsulated format as a DataFragment array. An empty
// fragment is a null entry: present but empty, unlike an absent value.
func (w *JSONWriter) writeFragments(vr *dicom.VR, fragments [][]byte, preserve bool) error {
	w.pushItemState()
	for _, fragment := range fragments {
		if err := w.ensureArrayOpen("DataFragment"); err != nil {
			return err
		}
		if len(fragment) == 0 {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		if w.bigEndian {
			fragment = vr.ToggleEndian(fragment, preserve)
		}
		if err := w.gen.StartObject(); err != nil {
			return err
		}
		if err := w.gen.StringField("InlineBinary", base64.StdEncoding.EncodeToString(fragment)); err != nil {
			return err
		}
		if err := w.gen.End(); err != nil {
			return err
		}
	}
	return w.popItemState()
}

// writeBulkDataReferences writes values that were left in the source as byte region
// references. A single reference becomes a BulkDataURI member; multiple references mark
// the encapsulated format and become a DataFragment array of BulkDataURI objects.
func (w *JSONWriter) writeBulkDataReferences(refs []dicom.BulkDataReference) error {
	if len(refs) == 1 {
		return w.gen.StringField("BulkDataURI", w.bulkDataURI(refs[0]))
	}

	w.pushItemState()
	for _, ref := range refs {
		if err := w.ensureArrayOpen("DataFragment"); err != nil {
			return err
		}
		if ref.Reference.Length == 0 {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		if err := w.gen.StartObject(); err != nil {
			return err
		}
		if err := w.gen.StringField("BulkDataURI", w.bulkDataURI(ref)); err != nil {
			return err
		}
		if err := w.gen.End(); err != nil {
			return err
		}
	}
	return w.popItemState()
}

func (w *JSONWriter) bulkDataURI(ref dicom.BulkDataReference) string {
	if w.replaceURISet {
		return w.replaceBulkDataURI
	}
	if ref.URI != "" {
		return ref.URI
	}
	return fmt.Sprintf("%s?offset=%d&length=%d", w.bulkDataURIBase, ref.Reference.Offset, ref.Reference.Length)
}

// copyBulkData streams a binary value. The bulk data mode decides between referencing
// and inlining; UC, UR and UT stream through here but hold text, not binary.
func (w *JSONWriter) copyBulkData(element *dicom.DataElement, vr *dicom.VR, iter dicom.BulkDataIterator) error {
	if w.mode == referenceBulkData && w.isBulkData(element) {
		refs, err := dicom.CollectFragmentReferences(iter)
		if err != nil {
			return fmt.Errorf("collecting fragment references: %v", err)
		}
		if len(refs) == 0 {
			return nil
		}
		return w.writeBulkDataReferences(refs)
	}

	switch vr {
	case dicom.UCVR, dicom.URVR, dicom.UTVR:
		return w.copyTextBulkData(element.Tag, vr, iter)
	}

	if element.ValueLength == dicom.UndefinedLength {
		return w.copyFragments(vr, iter)
	}

	fragments, err := dicom.CollectFragments(iter)
	if err != nil {
		return fmt.Errorf("collecting fragments: %v", err)
	}
	data := bytes.Join(fragments, nil)
	if len(data) == 0 {
		return nil
	}
	if w.bigEndian {
		// freshly streamed bytes are owned here, so swapping in place is safe
		data = vr.ToggleEndian(data, false)
	}
	return w.gen.StringField("InlineBinary", base64.StdEncoding.EncodeToString(data))
}

// copyFragments streams the encapsulated format one fragment at a time, deferring the
// DataFragment array until the first fragment arrives
func (w *JSONWriter) copyFragments(vr *dicom.VR, iter dicom.BulkDataIterator) error {
	w.pushItemState()
	for r, err := iter.Next(); err != io.EOF; r, err = iter.Next() {
		if err != nil {
			return err
		}
		fragment, err := ioutil.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading fragment: %v", err)
		}
		if err := w.ensureArrayOpen("DataFragment"); err != nil {
			return err
		}
		if len(fragment) == 0 {
			if err := w.gen.Null(); err != nil {
				return err
			}
			continue
		}
		if w.bigEndian {
			fragment = vr.ToggleEndian(fragment, false)
		}
		if err := w.gen.StartObject(); err != nil {
			return err
		}
		if err := w.gen.StringField("InlineBinary", base64.StdEncoding.EncodeToString(fragment)); err != nil {
			return err
		}
		if err := w.gen.End(); err != nil {
			return err
		}
	}
	return w.popItemState()
}

// copyTextBulkData decodes streamed UC, UR and UT values to their string forms
func (w *JSONWriter) copyTextBulkData(tag dicom.DataElementTag, vr *dicom.VR, iter dicom.BulkDataIterator) error {
	fragments, err := dicom.CollectFragments(iter)
	if err != nil {
		return fmt.Errorf("collecting text value: %v", err)
	}
	text := string(bytes.Join(fragments, nil))
	if text == "" {
		return nil
	}

	var values []string
	if vr == dicom.UCVR {
		values = strings.Split(text, "\\")
	} else {
		values = []string{strings.TrimRightFunc(text, unicode.IsSpace)}
	}
	return w.writeStrings(tag, vr, values)
}
