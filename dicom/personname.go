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
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PersonNameGroup identifies one of the three component groups of a PN value, one per
// script variant. See
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2.1
type PersonNameGroup int

const (
	// Alphabetic is the single-byte character group
	Alphabetic PersonNameGroup = iota
	// Ideographic is the ideographic character group
	Ideographic
	// Phonetic is the phonetic character group
	Phonetic

	personNameGroups = 3
)

// String returns the group name as used by the DICOM JSON model
func (g PersonNameGroup) String() string {
	switch g {
	case Alphabetic:
		return "Alphabetic"
	case Ideographic:
		return "Ideographic"
	case Phonetic:
		return "Phonetic"
	}
	return fmt.Sprintf("PersonNameGroup(%d)", int(g))
}

// PersonNameComponent identifies one of the five components of a person name
// component group.
type PersonNameComponent int

const (
	// FamilyName is the family name complex
	FamilyName PersonNameComponent = iota
	// GivenName is the given name complex
	GivenName
	// MiddleName is the middle name
	MiddleName
	// NamePrefix is the name prefix, e.g. "Dr."
	NamePrefix
	// NameSuffix is the name suffix, e.g. "Jr."
	NameSuffix

	personNameComponents = 5
)

// ErrInvalidPersonName is returned when a PN value violates the person name grammar and
// the parser is not lenient.
var ErrInvalidPersonName = errors.New("dicom: invalid person name")

// PersonName models a DICOM person name (VR PN): 3 component groups of 5 components
// each. Components hold trimmed text and never contain the "^" or "=" delimiters.
// The zero value is an empty name that can be populated with Set and SetGroup.
type PersonName struct {
	fields  [personNameGroups * personNameComponents]string
	present [personNameGroups * personNameComponents]bool
}

// PersonNameOption configures the behavior of ParsePersonName
type PersonNameOption struct {
	apply func(*personNameParser)
}

// Lenient makes ParsePersonName repair grammar violations instead of failing: component
// groups beyond the third are truncated and components beyond the fifth are folded into
// the name suffix. Each repair is reported to the parser's logger.
func Lenient() PersonNameOption {
	return PersonNameOption{func(p *personNameParser) { p.lenient = true }}
}

// PreserveEmptyComponents makes ParsePersonName store components that are present but
// empty in the input (e.g. the middle name of "Adams^John^^Dr.") as explicit empty
// strings instead of leaving them unset.
func PreserveEmptyComponents() PersonNameOption {
	return PersonNameOption{func(p *personNameParser) { p.preserveEmpty = true }}
}

// PersonNameDiagnostics directs the diagnostics of lenient repairs to the given logger.
// By default diagnostics are discarded.
func PersonNameDiagnostics(log *zap.Logger) PersonNameOption {
	return PersonNameOption{func(p *personNameParser) { p.log = log }}
}

type personNameParser struct {
	lenient       bool
	preserveEmpty bool
	log           *zap.Logger
}

// ParsePersonName parses a PN value field of the form
//
//	group ('=' group){0,2} where group := component ('^' component){0,4}
//
// Surrounding whitespace of every component is trimmed. By default grammar violations
// return an error wrapping ErrInvalidPersonName and empty components are left unset; see
// Lenient and PreserveEmptyComponents.
func ParsePersonName(s string, opts ...PersonNameOption) (*PersonName, error) {
	p := &personNameParser{log: zap.NewNop()}
	for _, opt := range opts {
		opt.apply(p)
	}

	pn := &PersonName{}
	gindex, cindex := 0, 0
	for i := 0; i < len(s); {
		switch s[i] {
		case '=':
			gindex++
			if gindex >= personNameGroups {
				if !p.lenient {
					return nil, fmt.Errorf("%w: %q has more than %d component groups",
						ErrInvalidPersonName, s, personNameGroups)
				}
				p.log.Info("illegal PN - truncating component groups", zap.String("value", s))
				return pn, nil
			}
			cindex = 0
			i++
		case '^':
			cindex++
			if p.preserveEmpty && cindex < personNameComponents {
				pn.markEmpty(gindex, cindex)
			}
			i++
		default:
			j := i + 1
			for j < len(s) && s[j] != '^' && s[j] != '=' {
				j++
			}
			token := s[i:j]
			if cindex < personNameComponents {
				pn.set(gindex, cindex, token)
			} else if p.lenient {
				if token = strings.TrimSpace(token); token != "" {
					p.log.Info("illegal PN - folding extra component into suffix",
						zap.String("value", s), zap.Int("component", cindex+1))
					suffix, _ := pn.Get(PersonNameGroup(gindex), NameSuffix)
					pn.set(gindex, int(NameSuffix), suffix+" "+token)
				}
			} else {
				return nil, fmt.Errorf("%w: %q has more than %d components in a group",
					ErrInvalidPersonName, s, personNameComponents)
			}
			i = j
		}
	}
	return pn, nil
}

// Get returns the component value and whether the component is set. A component preserved
// as explicitly empty returns ("", true).
func (pn *PersonName) Get(g PersonNameGroup, c PersonNameComponent) (string, bool) {
	i := int(g)*personNameComponents + int(c)
	return pn.fields[i], pn.present[i]
}

// Set stores the trimmed component value. An empty (or all whitespace) value unsets the
// component. The value must not contain the "^" or "=" delimiters.
func (pn *PersonName) Set(g PersonNameGroup, c PersonNameComponent, s string) error {
	if strings.ContainsAny(s, "^=") {
		return fmt.Errorf("%w: component %q contains a delimiter", ErrInvalidPersonName, s)
	}
	i := int(g)*personNameComponents + int(c)
	s = strings.TrimSpace(s)
	if s == "" {
		pn.fields[i] = ""
		pn.present[i] = false
		return nil
	}
	pn.fields[i] = s
	pn.present[i] = true
	return nil
}

// SetGroup replaces all components of a component group from its encoded form,
// e.g. "Adams^John^^Dr.".
func (pn *PersonName) SetGroup(g PersonNameGroup, s string) error {
	if strings.ContainsRune(s, '=') {
		return fmt.Errorf("%w: group %q contains a group delimiter", ErrInvalidPersonName, s)
	}
	components := strings.Split(s, "^")
	if len(components) > personNameComponents {
		return fmt.Errorf("%w: group %q has more than %d components",
			ErrInvalidPersonName, s, personNameComponents)
	}
	for c := 0; c < personNameComponents; c++ {
		v := ""
		if c < len(components) {
			v = components[c]
		}
		if err := pn.Set(g, PersonNameComponent(c), v); err != nil {
			return err
		}
	}
	return nil
}

func (pn *PersonName) set(gindex, cindex int, s string) {
	i := gindex*personNameComponents + cindex
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	pn.fields[i] = s
	pn.present[i] = true
}

func (pn *PersonName) markEmpty(gindex, cindex int) {
	i := gindex*personNameComponents + cindex
	if !pn.present[i] {
		pn.fields[i] = ""
		pn.present[i] = true
	}
}

// Contains is true if and only if any component of the group is set
func (pn *PersonName) Contains(g PersonNameGroup) bool {
	for c := 0; c < personNameComponents; c++ {
		if pn.present[int(g)*personNameComponents+c] {
			return true
		}
	}
	return false
}

// Empty is true if and only if no component of any group is set
func (pn *PersonName) Empty() bool {
	for _, ok := range pn.present {
		if ok {
			return false
		}
	}
	return true
}

// String formats the person name in its minimal encoded form: trailing unset components
// and groups are omitted, while unset components preceding a set component are rendered
// as empty tokens so positional alignment is kept.
func (pn *PersonName) String() string {
	lastGroup := Alphabetic
	for g := Alphabetic; g < personNameGroups; g++ {
		if pn.Contains(g) {
			lastGroup = g
		}
	}

	groups := make([]string, 0, int(lastGroup)+1)
	for g := Alphabetic; g <= lastGroup; g++ {
		groups = append(groups, pn.GroupString(g, true))
	}
	return strings.Join(groups, "=")
}

// GroupString formats a single component group. When trim is true, components after the
// last set component are omitted. When trim is false all five component positions are
// rendered, e.g. "Adams^John^^Dr.^".
func (pn *PersonName) GroupString(g PersonNameGroup, trim bool) string {
	last := -1
	for c := 0; c < personNameComponents; c++ {
		if pn.present[int(g)*personNameComponents+c] {
			last = c
		}
	}
	if trim && last < 0 {
		return ""
	}
	if !trim {
		last = personNameComponents - 1
	}

	components := make([]string, last+1)
	for c := 0; c <= last; c++ {
		components[c] = pn.fields[int(g)*personNameComponents+c]
	}
	return strings.Join(components, "^")
}

// Equal is true if and only if every component slot of both names agrees in both
// presence and value.
func (pn *PersonName) Equal(other *PersonName) bool {
	if other == nil {
		return pn == nil
	}
	return pn.fields == other.fields && pn.present == other.present
}
