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

package feature

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mangarec/mangarec/storage/catalog"
	"github.com/samber/lo"
)

// Names of feature groups.
const (
	Genres   = "genres"
	Type     = "type"
	Score    = "score"
	Chapters = "chapters"
	Recency  = "recency"
)

// numerics are encoded after genres and types, in this order.
var numerics = []string{Score, Chapters, Recency}

// Names lists weightable feature groups. Genre and type slots are indicators that trees
// split at 0.5, so only numeric groups carry weights.
var Names = numerics

type Normalization string

const (
	MinMax Normalization = "minmax"
	ZScore Normalization = "zscore"
)

type Imputation string

const (
	Mean Imputation = "mean"
	Zero Imputation = "zero"
)

const zScoreBound = 3

// Stats of a numeric attribute over training items with known values.
type Stats struct {
	Min    float32
	Max    float32
	Mean   float32
	StdDev float32
	Count  int
}

func NewStats(values []float32) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	stats := Stats{Min: values[0], Max: values[0], Count: len(values)}
	var sum float64
	for _, v := range values {
		stats.Min = math32.Min(stats.Min, v)
		stats.Max = math32.Max(stats.Max, v)
		sum += float64(v)
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	stats.Mean = float32(mean)
	stats.StdDev = float32(math.Sqrt(variance / float64(len(values))))
	return stats
}

// Schema fixes the layout of feature vectors. It is captured at training time and persisted
// with the model.
type Schema struct {
	Vocabulary    []string
	Stats         map[string]Stats
	Normalization Normalization
	Imputation    Imputation
}

// NewSchema derives the genre vocabulary and numeric statistics from items.
func NewSchema(items []catalog.Item, normalization Normalization, imputation Imputation) Schema {
	vocabulary := mapset.NewThreadUnsafeSet[string]()
	values := make(map[string][]float32, len(numerics))
	for _, item := range items {
		for _, genre := range item.Genres {
			if genre = strings.TrimSpace(genre); genre != "" {
				vocabulary.Add(genre)
			}
		}
		for _, name := range numerics {
			if v, ok := rawValue(item, name); ok {
				values[name] = append(values[name], v)
			}
		}
	}
	schema := Schema{
		Vocabulary:    vocabulary.ToSlice(),
		Stats:         make(map[string]Stats, len(numerics)),
		Normalization: lo.Ternary(normalization == "", MinMax, normalization),
		Imputation:    lo.Ternary(imputation == "", Mean, imputation),
	}
	sort.Strings(schema.Vocabulary)
	for _, name := range numerics {
		schema.Stats[name] = NewStats(values[name])
	}
	return schema
}

// Dim returns the length of feature vectors.
func (s Schema) Dim() int {
	return len(s.Vocabulary) + len(catalog.WorkTypes) + len(numerics)
}

// FeatureNames returns the name of each slot in feature vectors.
func (s Schema) FeatureNames() []string {
	names := make([]string, 0, s.Dim())
	for _, genre := range s.Vocabulary {
		names = append(names, fmt.Sprintf("%s:%s", Genres, genre))
	}
	for _, workType := range catalog.WorkTypes {
		names = append(names, fmt.Sprintf("%s:%s", Type, workType))
	}
	return append(names, numerics...)
}

// GroupOf returns the feature group of a slot.
func (s Schema) GroupOf(index int) string {
	switch {
	case index < len(s.Vocabulary):
		return Genres
	case index < len(s.Vocabulary)+len(catalog.WorkTypes):
		return Type
	default:
		return numerics[index-len(s.Vocabulary)-len(catalog.WorkTypes)]
	}
}

// rawValue returns the unnormalized value of a numeric attribute.
func rawValue(item catalog.Item, name string) (float32, bool) {
	switch name {
	case Score:
		if item.Score != nil {
			return float32(*item.Score), true
		}
	case Chapters:
		if item.Chapters != nil {
			return float32(*item.Chapters), true
		}
	case Recency:
		if item.Published != nil {
			// years since the Unix epoch
			return float32(float64(item.Published.Unix()) / (365.25 * 24 * 3600)), true
		}
	}
	return 0, false
}

func (s Schema) normalize(name string, v float32) float32 {
	stats := s.Stats[name]
	switch s.Normalization {
	case ZScore:
		if stats.StdDev == 0 {
			return 0
		}
		return clamp((v-stats.Mean)/stats.StdDev, -zScoreBound, zScoreBound)
	default:
		if stats.Max <= stats.Min {
			return 0
		}
		return clamp((v-stats.Min)/(stats.Max-stats.Min), 0, 1)
	}
}

func (s Schema) impute(name string) float32 {
	if s.Imputation == Zero || s.Stats[name].Count == 0 {
		return 0
	}
	return s.normalize(name, s.Stats[name].Mean)
}

func clamp(v, lower, upper float32) float32 {
	return math32.Max(lower, math32.Min(upper, v))
}
