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
	"testing"
)

func TestParsePersonName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[PersonNameGroup]map[PersonNameComponent]string
	}{
		{
			"single group with trailing empty components",
			"Adams^John^^Dr.^",
			map[PersonNameGroup]map[PersonNameComponent]string{
				Alphabetic: {FamilyName: "Adams", GivenName: "John", NamePrefix: "Dr."},
			},
		},
		{
			"all three groups",
			"Yamada^Tarou=山田^太郎=やまだ^たろう",
			map[PersonNameGroup]map[PersonNameComponent]string{
				Alphabetic:  {FamilyName: "Yamada", GivenName: "Tarou"},
				Ideographic: {FamilyName: "山田", GivenName: "太郎"},
				Phonetic:    {FamilyName: "やまだ", GivenName: "たろう"},
			},
		},
		{
			"components are trimmed of surrounding whitespace",
			" Adams ^ John ",
			map[PersonNameGroup]map[PersonNameComponent]string{
				Alphabetic: {FamilyName: "Adams", GivenName: "John"},
			},
		},
		{
			"empty middle group",
			"Adams==Phonetic",
			map[PersonNameGroup]map[PersonNameComponent]string{
				Alphabetic: {FamilyName: "Adams"},
				Phonetic:   {FamilyName: "Phonetic"},
			},
		},
		{
			"empty value",
			"",
			map[PersonNameGroup]map[PersonNameComponent]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pn, err := ParsePersonName(tc.in)
			if err != nil {
				t.Fatalf("ParsePersonName(%q): %v", tc.in, err)
			}
			for g := Alphabetic; g <= Phonetic; g++ {
				for c := FamilyName; c <= NameSuffix; c++ {
					want, wantOK := tc.want[g][c]
					got, gotOK := pn.Get(g, c)
					if got != want || gotOK != wantOK {
						t.Errorf("Get(%v, %v): got (%q, %v), want (%q, %v)", g, c, got, gotOK, want, wantOK)
					}
				}
			}
		})
	}
}

func TestParsePersonName_strictViolations(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"more than 3 component groups", "a=b=c=d"},
		{"more than 5 components in a group", "A^B^C^D^E^F"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePersonName(tc.in); !errors.Is(err, ErrInvalidPersonName) {
				t.Fatalf("ParsePersonName(%q): got %v, want ErrInvalidPersonName", tc.in, err)
			}
		})
	}
}

func TestParsePersonName_lenientRepairs(t *testing.T) {
	t.Run("extra components fold into the suffix", func(t *testing.T) {
		pn, err := ParsePersonName("A^B^C^D^E^F", Lenient())
		if err != nil {
			t.Fatalf("ParsePersonName: %v", err)
		}
		if got, _ := pn.Get(Alphabetic, NameSuffix); got != "E F" {
			t.Fatalf("suffix: got %q, want %q", got, "E F")
		}
	})

	t.Run("extra component groups are truncated", func(t *testing.T) {
		pn, err := ParsePersonName("a=b=c=d", Lenient())
		if err != nil {
			t.Fatalf("ParsePersonName: %v", err)
		}
		if got := pn.String(); got != "a=b=c" {
			t.Fatalf("String(): got %q, want %q", got, "a=b=c")
		}
	})
}

func TestParsePersonName_preserveEmptyComponents(t *testing.T) {
	pn, err := ParsePersonName("Adams^John^^Dr.", PreserveEmptyComponents())
	if err != nil {
		t.Fatalf("ParsePersonName: %v", err)
	}

	if got, ok := pn.Get(Alphabetic, MiddleName); got != "" || !ok {
		t.Errorf("middle name: got (%q, %v), want explicit empty", got, ok)
	}
	if _, ok := pn.Get(Alphabetic, NameSuffix); ok {
		t.Errorf("expected name suffix to be unset")
	}
	if got := pn.String(); got != "Adams^John^^Dr." {
		t.Errorf("String(): got %q, want %q", got, "Adams^John^^Dr.")
	}
}

func TestPersonNameString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing empty components are dropped", "Adams^John^^Dr.^", "Adams^John^^Dr."},
		{"interior empty components are kept", "Adams^^M", "Adams^^M"},
		{"trailing empty groups are dropped", "Adams==", "Adams"},
		{"interior empty groups are kept", "Adams==Phonetic", "Adams==Phonetic"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pn, err := ParsePersonName(tc.in)
			if err != nil {
				t.Fatalf("ParsePersonName(%q): %v", tc.in, err)
			}
			if got := pn.String(); got != tc.want {
				t.Fatalf("String(): got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPersonNameGroupString(t *testing.T) {
	pn, err := ParsePersonName("Adams^John^^Dr.^")
	if err != nil {
		t.Fatalf("ParsePersonName: %v", err)
	}

	if got := pn.GroupString(Alphabetic, true); got != "Adams^John^^Dr." {
		t.Errorf("GroupString(Alphabetic, true): got %q, want %q", got, "Adams^John^^Dr.")
	}
	if got := pn.GroupString(Alphabetic, false); got != "Adams^John^^Dr.^" {
		t.Errorf("GroupString(Alphabetic, false): got %q, want %q", got, "Adams^John^^Dr.^")
	}
	if got := pn.GroupString(Ideographic, true); got != "" {
		t.Errorf("GroupString(Ideographic, true): got %q, want empty", got)
	}
	if got := pn.GroupString(Ideographic, false); got != "^^^^" {
		t.Errorf("GroupString(Ideographic, false): got %q, want %q", got, "^^^^")
	}
}

func TestPersonNameRoundTrip(t *testing.T) {
	names := []struct {
		group     PersonNameGroup
		component PersonNameComponent
		value     string
	}{
		{Alphabetic, FamilyName, "Adams"},
		{Alphabetic, GivenName, "John"},
		{Alphabetic, NamePrefix, "Dr."},
		{Ideographic, FamilyName, "山田"},
		{Phonetic, NameSuffix, "Jr."},
	}

	pn := &PersonName{}
	for _, n := range names {
		if err := pn.Set(n.group, n.component, n.value); err != nil {
			t.Fatalf("Set(%v, %v, %q): %v", n.group, n.component, n.value, err)
		}
	}

	parsed, err := ParsePersonName(pn.String())
	if err != nil {
		t.Fatalf("ParsePersonName(%q): %v", pn.String(), err)
	}
	if !parsed.Equal(pn) {
		t.Fatalf("round trip mismatch: got %q, want %q", parsed, pn)
	}
}

func TestPersonNameSet(t *testing.T) {
	pn := &PersonName{}

	if err := pn.Set(Alphabetic, FamilyName, "Adams^John"); err == nil {
		t.Errorf("expected an error setting a component containing a delimiter")
	}
	if err := pn.Set(Alphabetic, FamilyName, "Adams"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := pn.Set(Alphabetic, FamilyName, "  "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := pn.Get(Alphabetic, FamilyName); ok {
		t.Errorf("expected blank value to unset the component")
	}
}

func TestPersonNameSetGroup(t *testing.T) {
	pn := &PersonName{}
	if err := pn.SetGroup(Alphabetic, "Adams^John^^Dr."); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}
	if got := pn.GroupString(Alphabetic, true); got != "Adams^John^^Dr." {
		t.Fatalf("GroupString: got %q, want %q", got, "Adams^John^^Dr.")
	}

	if err := pn.SetGroup(Alphabetic, "a=b"); err == nil {
		t.Errorf("expected an error setting a group containing a group delimiter")
	}
	if err := pn.SetGroup(Alphabetic, "a^b^c^d^e^f"); err == nil {
		t.Errorf("expected an error setting a group with too many components")
	}
}

func TestPersonNameEqual(t *testing.T) {
	pn1, err := ParsePersonName("Adams^John")
	if err != nil {
		t.Fatalf("ParsePersonName: %v", err)
	}
	pn2, err := ParsePersonName("Adams^John")
	if err != nil {
		t.Fatalf("ParsePersonName: %v", err)
	}
	if !pn1.Equal(pn2) {
		t.Errorf("expected names to be equal")
	}

	// explicit empty and unset components are distinct
	pn3, err := ParsePersonName("Adams^John^", PreserveEmptyComponents())
	if err != nil {
		t.Fatalf("ParsePersonName: %v", err)
	}
	if pn1.Equal(pn3) {
		t.Errorf("expected preserve-empty name to differ from skip-empty name")
	}
}
