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

package jsongen

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	tests := []struct {
		name string
		emit func(g *Generator) error
		want string
	}{
		{
			"empty object",
			func(g *Generator) error {
				if err := g.StartObject(); err != nil {
					return err
				}
				return g.End()
			},
			`{}`,
		},
		{
			"object with scalar fields",
			func(g *Generator) error {
				if err := g.StartObject(); err != nil {
					return err
				}
				if err := g.StringField("vr", "CS"); err != nil {
					return err
				}
				if err := g.StringField("note", `with "quotes"`); err != nil {
					return err
				}
				return g.End()
			},
			`{"vr":"CS","note":"with \"quotes\""}`,
		},
		{
			"array of mixed scalars",
			func(g *Generator) error {
				if err := g.StartArray(); err != nil {
					return err
				}
				if err := g.String("A"); err != nil {
					return err
				}
				if err := g.Null(); err != nil {
					return err
				}
				if err := g.Int(-5); err != nil {
					return err
				}
				if err := g.Uint(7); err != nil {
					return err
				}
				if err := g.Float64(1.5); err != nil {
					return err
				}
				if err := g.Bool(true); err != nil {
					return err
				}
				return g.End()
			},
			`["A",null,-5,7,1.5,true]`,
		},
		{
			"nested containers",
			func(g *Generator) error {
				if err := g.StartObject(); err != nil {
					return err
				}
				if err := g.StartArrayField("Value"); err != nil {
					return err
				}
				if err := g.StartObject(); err != nil {
					return err
				}
				if err := g.StringField("vr", "UI"); err != nil {
					return err
				}
				if err := g.End(); err != nil {
					return err
				}
				if err := g.Int(2); err != nil {
					return err
				}
				if err := g.End(); err != nil {
					return err
				}
				if err := g.StartObjectField("meta"); err != nil {
					return err
				}
				return errors.Join(g.End(), g.End())
			},
			`{"Value":[{"vr":"UI"},2],"meta":{}}`,
		},
		{
			"float32 values keep single precision formatting",
			func(g *Generator) error {
				if err := g.StartArray(); err != nil {
					return err
				}
				if err := g.Float32(1.1); err != nil {
					return err
				}
				return g.End()
			},
			`[1.1]`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buff := bytes.NewBuffer([]byte{})
			g := NewGenerator(buff)
			require.NoError(t, tc.emit(g))
			require.Equal(t, 0, g.Depth())
			require.Equal(t, tc.want, buff.String())
		})
	}
}

func TestGeneratorEndWithoutContainer(t *testing.T) {
	g := NewGenerator(bytes.NewBuffer([]byte{}))
	require.Error(t, g.End())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestGeneratorStickyError(t *testing.T) {
	g := NewGenerator(failingWriter{})
	require.Error(t, g.StartObject())
	require.Error(t, g.StringField("vr", "CS"))
	require.Error(t, g.Err())
}
