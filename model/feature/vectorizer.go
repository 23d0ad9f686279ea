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
	"strings"

	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/storage/catalog"
	"go.uber.org/zap"
)

// InvalidItemError means an item carries neither genres nor numeric attributes.
type InvalidItemError struct {
	ItemId string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("item %s has neither genres nor numeric attributes", e.ItemId)
}

// VocabularyMismatchError means vectors were built with a genre vocabulary different from
// the one a model was trained with.
type VocabularyMismatchError struct {
	Expected int
	Actual   int
}

func (e *VocabularyMismatchError) Error() string {
	return fmt.Sprintf("genre vocabulary mismatch: model expects %d genres, vectorizer has %d, retrain the model",
		e.Expected, e.Actual)
}

// CheckVocabulary returns a *VocabularyMismatchError unless both vocabularies are identical.
func CheckVocabulary(expected, actual []string) error {
	if len(expected) != len(actual) {
		return &VocabularyMismatchError{Expected: len(expected), Actual: len(actual)}
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return &VocabularyMismatchError{Expected: len(expected), Actual: len(actual)}
		}
	}
	return nil
}

// Vectorizer converts catalog items to feature vectors laid out by a schema.
type Vectorizer struct {
	schema     Schema
	genreIndex map[string]int
	typeOffset int
	numOffset  int
}

func NewVectorizer(schema Schema) *Vectorizer {
	v := &Vectorizer{
		schema:     schema,
		genreIndex: make(map[string]int, len(schema.Vocabulary)),
		typeOffset: len(schema.Vocabulary),
		numOffset:  len(schema.Vocabulary) + len(catalog.WorkTypes),
	}
	for i, genre := range schema.Vocabulary {
		v.genreIndex[genre] = i
	}
	return v
}

func (v *Vectorizer) Schema() Schema {
	return v.schema
}

// Vectorize an item. Genres outside the vocabulary are ignored and missing numeric attributes
// are imputed.
func (v *Vectorizer) Vectorize(item catalog.Item, weights WeightProfile) ([]float32, error) {
	hasGenre, hasNumeric := false, false
	vec := make([]float32, v.schema.Dim())
	for _, genre := range item.Genres {
		genre = strings.TrimSpace(genre)
		if genre == "" {
			continue
		}
		hasGenre = true
		if i, exist := v.genreIndex[genre]; exist {
			vec[i] = 1
		}
	}
	workType := item.Type
	if workType > catalog.OtherWork {
		workType = catalog.OtherWork
	}
	vec[v.typeOffset+int(workType)] = 1
	for i, name := range numerics {
		value, ok := rawValue(item, name)
		if ok {
			hasNumeric = true
			value = v.schema.normalize(name, value)
		} else {
			value = v.schema.impute(name)
		}
		vec[v.numOffset+i] = value * weights.Get(name)
	}
	if !hasGenre && !hasNumeric {
		return nil, &InvalidItemError{ItemId: item.ItemId}
	}
	return vec, nil
}

// VectorizeBatch vectorizes items, skipping invalid ones. It returns vectors and the indices
// of the items they come from.
func (v *Vectorizer) VectorizeBatch(items []catalog.Item, weights WeightProfile) ([][]float32, []int) {
	vectors := make([][]float32, 0, len(items))
	indices := make([]int, 0, len(items))
	for i, item := range items {
		vec, err := v.Vectorize(item, weights)
		if err != nil {
			log.Logger().Warn("skip item", zap.String("item_id", item.ItemId), zap.Error(err))
			continue
		}
		vectors = append(vectors, vec)
		indices = append(indices, i)
	}
	return vectors, indices
}
