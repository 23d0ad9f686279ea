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

package dataset

import "sort"

// FreqDict assigns ids to strings and counts how often each one is seen.
type FreqDict struct {
	si  map[string]int
	is  []string
	cnt []int
}

func NewFreqDict() *FreqDict {
	return &FreqDict{si: map[string]int{}}
}

func (d *FreqDict) Count() int {
	return len(d.is)
}

// Id returns the id of s and counts one occurrence.
func (d *FreqDict) Id(s string) int {
	y := d.NotCount(s)
	d.cnt[y]++
	return y
}

// NotCount returns the id of s without counting it.
func (d *FreqDict) NotCount(s string) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 0)
	return y
}

func (d *FreqDict) String(id int) (string, bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int) int {
	if id < 0 || id >= len(d.cnt) {
		return 0
	}
	return d.cnt[id]
}

// Top returns ids of the n most frequent strings. Ties are broken by string.
func (d *FreqDict) Top(n int) []int {
	ids := make([]int, len(d.is))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(i, j int) bool {
		if d.cnt[ids[i]] != d.cnt[ids[j]] {
			return d.cnt[ids[i]] > d.cnt[ids[j]]
		}
		return d.is[ids[i]] < d.is[ids[j]]
	})
	if n >= 0 && n < len(ids) {
		ids = ids[:n]
	}
	return ids
}
