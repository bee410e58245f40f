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

// Package jsongen provides a minimal streaming JSON generator. Unlike the encoding
// packages that marshal fully materialized values, a Generator emits JSON tokens
// directly to an io.Writer as they are pushed, which allows very large documents to be
// produced without buffering them in memory.
package jsongen

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

type containerKind int

const (
	rootKind containerKind = iota
	objectKind
	arrayKind
)

type container struct {
	kind       containerKind
	needsComma bool
}

// Generator writes a single JSON document to an io.Writer one token at a time. Commas
// and colons are inserted automatically based on the enclosing container. Methods are
// no-ops after the first write error, which is sticky and returned from every
// subsequent call.
type Generator struct {
	w     io.Writer
	stack []container
	err   error
}

// NewGenerator creates a Generator writing to w.
func NewGenerator(w io.Writer) *Generator {
	return &Generator{w: w, stack: []container{{kind: rootKind}}}
}

func (g *Generator) top() *container {
	return &g.stack[len(g.stack)-1]
}

func (g *Generator) write(b []byte) {
	if g.err != nil {
		return
	}
	_, g.err = g.w.Write(b)
}

// beginValue writes the comma separating this value from a previous sibling, if any
func (g *Generator) beginValue() {
	t := g.top()
	if t.needsComma {
		g.write([]byte{','})
	}
	t.needsComma = true
}

func (g *Generator) name(name string) error {
	g.beginValue()
	if err := g.encode(name); err != nil {
		return err
	}
	g.write([]byte{':'})
	return g.err
}

func (g *Generator) encode(v interface{}) error {
	if g.err != nil {
		return g.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		g.err = fmt.Errorf("encoding %T value: %v", v, err)
		return g.err
	}
	g.write(b)
	return g.err
}

// StartObject opens a JSON object as the next value of the current container.
func (g *Generator) StartObject() error {
	g.beginValue()
	g.write([]byte{'{'})
	g.stack = append(g.stack, container{kind: objectKind})
	return g.err
}

// StartObjectField opens a JSON object as the value of the named field. The current
// container must be an object.
func (g *Generator) StartObjectField(name string) error {
	if err := g.name(name); err != nil {
		return err
	}
	g.write([]byte{'{'})
	g.stack = append(g.stack, container{kind: objectKind})
	return g.err
}

// StartArray opens a JSON array as the next value of the current container.
func (g *Generator) StartArray() error {
	g.beginValue()
	g.write([]byte{'['})
	g.stack = append(g.stack, container{kind: arrayKind})
	return g.err
}

// StartArrayField opens a JSON array as the value of the named field. The current
// container must be an object.
func (g *Generator) StartArrayField(name string) error {
	if err := g.name(name); err != nil {
		return err
	}
	g.write([]byte{'['})
	g.stack = append(g.stack, container{kind: arrayKind})
	return g.err
}

// End closes the innermost open object or array.
func (g *Generator) End() error {
	if g.err != nil {
		return g.err
	}
	t := g.top()
	switch t.kind {
	case objectKind:
		g.write([]byte{'}'})
	case arrayKind:
		g.write([]byte{']'})
	default:
		g.err = fmt.Errorf("no open object or array to end")
		return g.err
	}
	g.stack = g.stack[:len(g.stack)-1]
	return g.err
}

// String writes a JSON string as the next value of the current container.
func (g *Generator) String(v string) error {
	g.beginValue()
	return g.encode(v)
}

// StringField writes a string-valued field of the current object.
func (g *Generator) StringField(name, v string) error {
	if err := g.name(name); err != nil {
		return err
	}
	return g.encode(v)
}

// Int writes an integer as the next value of the current container.
func (g *Generator) Int(v int64) error {
	g.beginValue()
	return g.encode(v)
}

// Uint writes an unsigned integer as the next value of the current container.
func (g *Generator) Uint(v uint64) error {
	g.beginValue()
	return g.encode(v)
}

// Float32 writes a single precision number as the next value of the current container.
// The value must be finite.
func (g *Generator) Float32(v float32) error {
	g.beginValue()
	return g.encode(v)
}

// Float64 writes a double precision number as the next value of the current container.
// The value must be finite.
func (g *Generator) Float64(v float64) error {
	g.beginValue()
	return g.encode(v)
}

// Bool writes a boolean as the next value of the current container.
func (g *Generator) Bool(v bool) error {
	g.beginValue()
	return g.encode(v)
}

// Null writes a JSON null as the next value of the current container.
func (g *Generator) Null() error {
	g.beginValue()
	g.write([]byte("null"))
	return g.err
}

// Depth returns the number of currently open objects and arrays.
func (g *Generator) Depth() int {
	return len(g.stack) - 1
}

// Err returns the first error encountered while writing, if any.
func (g *Generator) Err() error {
	return g.err
}
