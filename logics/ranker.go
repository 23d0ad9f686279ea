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

package logics

import (
	"errors"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mangarec/mangarec/base/heap"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/mangarec/mangarec/storage/catalog"
	"go.uber.org/zap"
)

// DefaultTopK is the number of recommendations returned if not specified.
const DefaultTopK = 5

// Classifier predicts the probability that the user likes an item from its feature vector.
type Classifier interface {
	PredictProba(x []float32) float32
}

type Recommendation struct {
	Item  catalog.Item
	Score float32
}

// Ranker ranks unrated candidates by predicted interest.
type Ranker struct {
	classifier Classifier
	vocabulary []string
	vectorizer *feature.Vectorizer
	filter     *Filter
}

// NewRanker creates a ranker. vocabulary is the genre vocabulary the classifier was trained with.
func NewRanker(classifier Classifier, vocabulary []string, vectorizer *feature.Vectorizer) *Ranker {
	return &Ranker{
		classifier: classifier,
		vocabulary: vocabulary,
		vectorizer: vectorizer,
	}
}

// SetFilter sets an expression candidates must satisfy. An empty expression clears it.
func (r *Ranker) SetFilter(filter string) error {
	if filter == "" {
		r.filter = nil
		return nil
	}
	f, err := NewFilter(filter)
	if err != nil {
		return err
	}
	r.filter = f
	return nil
}

// Rank returns at most topK candidates without annotations and banned genres, ordered by
// score descending then item id ascending. It does not modify its inputs.
func (r *Ranker) Rank(candidates []catalog.Item, annotations []catalog.Annotation, weights feature.WeightProfile,
	banned []string, topK int) ([]Recommendation, error) {
	if err := feature.CheckVocabulary(r.vocabulary, r.vectorizer.Schema().Vocabulary); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	// remove rated items
	rated := mapset.NewThreadUnsafeSet[string]()
	for _, annotation := range annotations {
		rated.Add(annotation.ItemId)
	}
	unrated := make([]catalog.Item, 0, len(candidates))
	for _, item := range candidates {
		if !rated.Contains(item.ItemId) {
			unrated = append(unrated, item)
		}
	}

	// remove banned genres
	filtered := FilterGenres(unrated, banned)

	// score candidates
	items := make(map[string]catalog.Item, len(filtered))
	topKFilter := heap.NewTopKFilter[string, float32](topK)
	for _, item := range filtered {
		if _, exist := items[item.ItemId]; exist {
			continue
		}
		if !hasGenre(item) {
			log.Logger().Warn("skip item without genres", zap.String("item_id", item.ItemId))
			continue
		}
		if r.filter != nil {
			matched, err := r.filter.Match(item)
			if err != nil {
				log.Logger().Warn("failed to evaluate filter", zap.String("item_id", item.ItemId), zap.Error(err))
				continue
			}
			if !matched {
				continue
			}
		}
		x, err := r.vectorizer.Vectorize(item, weights)
		if err != nil {
			var invalid *feature.InvalidItemError
			if errors.As(err, &invalid) {
				log.Logger().Warn("skip invalid item", zap.String("item_id", item.ItemId))
				continue
			}
			return nil, err
		}
		items[item.ItemId] = item
		topKFilter.Push(item.ItemId, r.classifier.PredictProba(x))
	}

	elems := topKFilter.PopAll()
	recommendations := make([]Recommendation, len(elems))
	for i, elem := range elems {
		recommendations[i] = Recommendation{Item: items[elem.Value], Score: elem.Weight}
	}
	log.Logger().Debug("rank candidates",
		zap.Int("n_candidates", len(candidates)),
		zap.Int("n_unrated", len(unrated)),
		zap.Int("n_filtered", len(filtered)),
		zap.Int("n_recommendations", len(recommendations)))
	return recommendations, nil
}

// hasGenre reports whether an item has a non-blank genre. Items shown to the user must have one.
func hasGenre(item catalog.Item) bool {
	for _, genre := range item.Genres {
		if strings.TrimSpace(genre) != "" {
			return true
		}
	}
	return false
}
