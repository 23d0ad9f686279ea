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

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomGenerator_Bootstrap(t *testing.T) {
	rng := NewRandomGenerator(0)
	sampled := rng.Bootstrap(100)
	assert.Len(t, sampled, 100)
	for _, v := range sampled {
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 100)
	}
	// same seed, same draw
	assert.Equal(t, sampled, NewRandomGenerator(0).Bootstrap(100))
}
