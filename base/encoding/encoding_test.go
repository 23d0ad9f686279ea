// Copyright 2026 mangarec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type node struct {
	Feature   int32
	Threshold float32
	Left      int32
	Right     int32
}

func TestWriteSlice(t *testing.T) {
	a := []node{{Feature: 1, Threshold: 0.5, Left: 1, Right: 2}, {Feature: -1}}
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteSlice(buf, a))
	assert.NoError(t, WriteSlice(buf, []float32{}))
	b, err := ReadSlice[node](buf)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	c, err := ReadSlice[float32](buf)
	assert.NoError(t, err)
	assert.Empty(t, c)
	_, err = ReadSlice[float32](buf)
	assert.Error(t, err)
}

func TestWriteString(t *testing.T) {
	a := "abc"
	buf := bytes.NewBuffer(nil)
	err := WriteString(buf, a)
	assert.NoError(t, err)
	var b string
	b, err = ReadString(buf)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReadBytesTruncated(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, WriteBytes(buf, []byte("hello")))
	truncated := bytes.NewBuffer(buf.Bytes()[:6])
	_, err := ReadBytes(truncated)
	assert.Error(t, err)
}

func TestWriteGob(t *testing.T) {
	a := map[string]float32{"score": 1.5}
	buf := bytes.NewBuffer(nil)
	err := WriteGob(buf, a)
	assert.NoError(t, err)
	var b map[string]float32
	err = ReadGob(buf, &b)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFormatFloat32(t *testing.T) {
	assert.Equal(t, "0.25", FormatFloat32(0.25))
}
