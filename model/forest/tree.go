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

package forest

import (
	"sort"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base"
	"github.com/mangarec/mangarec/dataset"
)

// Node is a node of a decision tree. Children are addressed by their index in the arena.
type Node struct {
	Feature   int32 // -1 for leaves
	Threshold float32
	Left      int32
	Right     int32
	Value     float32 // fraction of positive samples
	Samples   int32
}

func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a binary decision tree stored as an arena of nodes. The root is Nodes[0].
type Tree struct {
	Nodes []Node
}

// Predict returns the positive fraction of the leaf x falls into. Samples go left if
// x[feature] <= threshold.
func (t *Tree) Predict(x []float32) float32 {
	i := int32(0)
	for !t.Nodes[i].IsLeaf() {
		node := t.Nodes[i]
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return t.Nodes[i].Value
}

// validate checks a decoded tree. Children always come after their parent in the arena,
// so indices pointing backwards are rejected along with those out of range.
func (t *Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.NotValidf("empty tree")
	}
	for i, node := range t.Nodes {
		if node.IsLeaf() {
			if !(node.Value >= 0 && node.Value <= 1) {
				return errors.NotValidf("value %v of leaf %d", node.Value, i)
			}
			continue
		}
		if int(node.Feature) >= numFeatures {
			return errors.NotValidf("feature %d of node %d", node.Feature, i)
		}
		for _, child := range []int32{node.Left, node.Right} {
			if int(child) <= i || int(child) >= len(t.Nodes) {
				return errors.NotValidf("child %d of node %d", child, i)
			}
		}
	}
	return nil
}

func (t *Tree) Depth() int {
	var depth func(i int32) int
	depth = func(i int32) int {
		if t.Nodes[i].IsLeaf() {
			return 0
		}
		return 1 + max(depth(t.Nodes[i].Left), depth(t.Nodes[i].Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return depth(0)
}

type treeBuilder struct {
	x               [][]float32
	y               []dataset.Label
	maxDepth        int
	minSamplesLeaf  int
	minSamplesSplit int
	maxFeatures     int
	rng             base.RandomGenerator
	nodes           []Node
	importances     []float64
}

type split struct {
	feature   int
	threshold float32
	decrease  float64
	left      []int
	right     []int
}

func gini(positive, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(positive) / float64(total)
	return 2 * p * (1 - p)
}

func countPositive(y []dataset.Label, samples []int) int {
	count := 0
	for _, i := range samples {
		if y[i] == dataset.Positive {
			count++
		}
	}
	return count
}

// build grows the subtree of samples and returns the index of its root.
func (b *treeBuilder) build(samples []int, depth int) int32 {
	positive := countPositive(b.y, samples)
	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Feature: -1,
		Value:   float32(positive) / float32(len(samples)),
		Samples: int32(len(samples)),
	})
	if positive == 0 || positive == len(samples) ||
		len(samples) < b.minSamplesSplit ||
		len(samples) < 2*b.minSamplesLeaf ||
		(b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}
	best, ok := b.findSplit(samples, positive)
	if !ok {
		return id
	}
	b.importances[best.feature] += float64(len(samples)) * best.decrease
	left := b.build(best.left, depth+1)
	right := b.build(best.right, depth+1)
	b.nodes[id].Feature = int32(best.feature)
	b.nodes[id].Threshold = best.threshold
	b.nodes[id].Left = left
	b.nodes[id].Right = right
	return id
}

// findSplit examines features in random order. At least maxFeatures features are examined,
// and more are drawn only if none of them yields a valid split.
func (b *treeBuilder) findSplit(samples []int, positive int) (split, bool) {
	var (
		best  split
		found bool
	)
	parent := gini(positive, len(samples))
	sorted := make([]int, len(samples))
	for visited, feature := range b.rng.Perm(len(b.x[samples[0]])) {
		if visited >= b.maxFeatures && found {
			break
		}
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][feature] < b.x[sorted[j]][feature]
		})
		leftPositive := 0
		for i := 0; i < len(sorted)-1; i++ {
			if b.y[sorted[i]] == dataset.Positive {
				leftPositive++
			}
			low, high := b.x[sorted[i]][feature], b.x[sorted[i+1]][feature]
			nLeft, nRight := i+1, len(sorted)-i-1
			if low == high || nLeft < b.minSamplesLeaf || nRight < b.minSamplesLeaf {
				continue
			}
			decrease := parent -
				float64(nLeft)/float64(len(sorted))*gini(leftPositive, nLeft) -
				float64(nRight)/float64(len(sorted))*gini(positive-leftPositive, nRight)
			if !found || decrease > best.decrease {
				threshold := low + (high-low)/2
				if threshold >= high {
					threshold = low
				}
				best = split{feature: feature, threshold: threshold, decrease: decrease}
				found = true
			}
		}
	}
	if !found {
		return best, false
	}
	for _, i := range samples {
		if b.x[i][best.feature] <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best, true
}
