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

import (
	"fmt"
	"sort"
	"time"

	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/config"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/mangarec/mangarec/storage/catalog"
	"go.uber.org/zap"
)

// Label is the binary training target.
type Label int8

const (
	Negative Label = 0
	Positive Label = 1
)

// LabelOf maps an interest to a label. Read-neutral and unrated items have no label.
func LabelOf(interest catalog.Interest) (Label, bool) {
	switch interest {
	case catalog.Liked:
		return Positive, true
	case catalog.Disliked, catalog.Dropped, catalog.NotInterested:
		return Negative, true
	case catalog.ReadNeutral, catalog.Unrated:
		return Negative, false
	}
	return Negative, false
}

// InsufficientDataError means there are too few labeled samples to train.
type InsufficientDataError struct {
	Positive    int
	Negative    int
	MinPositive int
	MinNegative int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient labeled data: %d positive (need %d), %d negative (need %d)",
		e.Positive, e.MinPositive, e.Negative, e.MinNegative)
}

// Dataset is a labeled training set. It is read-only once built.
type Dataset struct {
	schema     feature.Schema
	weights    feature.WeightProfile
	items      []catalog.Item
	interests  []catalog.Interest
	vectors    [][]float32
	labels     []Label
	timestamps []time.Time
	positive   int
	negative   int
}

// NewDataset creates a dataset from vectors and labels directly.
func NewDataset(vectors [][]float32, labels []Label) *Dataset {
	d := &Dataset{vectors: vectors, labels: labels}
	for _, label := range labels {
		if label == Positive {
			d.positive++
		} else {
			d.negative++
		}
	}
	return d
}

func (d *Dataset) Count() int {
	return len(d.labels)
}

func (d *Dataset) CountPositive() int {
	return d.positive
}

func (d *Dataset) CountNegative() int {
	return d.negative
}

func (d *Dataset) GetSchema() feature.Schema {
	return d.schema
}

func (d *Dataset) GetWeights() feature.WeightProfile {
	return d.weights
}

func (d *Dataset) GetItems() []catalog.Item {
	return d.items
}

func (d *Dataset) GetVectors() [][]float32 {
	return d.vectors
}

func (d *Dataset) GetLabels() []Label {
	return d.labels
}

func (d *Dataset) GetTimestamps() []time.Time {
	return d.timestamps
}

// Dim returns the length of feature vectors.
func (d *Dataset) Dim() int {
	if len(d.vectors) == 0 {
		return 0
	}
	return len(d.vectors[0])
}

// Builder joins catalog items with annotations into a labeled dataset.
type Builder struct {
	MinPositive   int
	MinNegative   int
	Normalization feature.Normalization
	Imputation    feature.Imputation
}

func NewBuilder(cfg config.TrainConfig) *Builder {
	return &Builder{
		MinPositive:   cfg.MinPositive,
		MinNegative:   cfg.MinNegative,
		Normalization: feature.Normalization(cfg.Normalization),
		Imputation:    feature.Imputation(cfg.Imputation),
	}
}

// Build a dataset. Items are vectorized with weights, the genre vocabulary and numeric statistics
// are derived from labeled items only. It returns *InsufficientDataError if either class has
// fewer samples than required.
func (b *Builder) Build(items []catalog.Item, annotations []catalog.Annotation, weights feature.WeightProfile) (*Dataset, error) {
	// latest annotation per item
	latest := make(map[string]catalog.Annotation, len(annotations))
	for _, annotation := range annotations {
		if prev, exist := latest[annotation.ItemId]; !exist || !annotation.Timestamp.Before(prev.Timestamp) {
			latest[annotation.ItemId] = annotation
		}
	}

	// join and label
	sorted := make([]catalog.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ItemId < sorted[j].ItemId
	})
	var (
		labeledItems []catalog.Item
		labeledNotes []catalog.Annotation
		labels       []Label
	)
	for _, item := range sorted {
		annotation, exist := latest[item.ItemId]
		if !exist {
			continue
		}
		label, ok := LabelOf(annotation.Interest)
		if !ok {
			continue
		}
		labeledItems = append(labeledItems, item)
		labeledNotes = append(labeledNotes, annotation)
		labels = append(labels, label)
	}

	// vectorize
	schema := feature.NewSchema(labeledItems, b.Normalization, b.Imputation)
	vectorizer := feature.NewVectorizer(schema)
	vectors, indices := vectorizer.VectorizeBatch(labeledItems, weights)
	d := &Dataset{
		schema:     schema,
		weights:    weights.Copy(),
		vectors:    vectors,
		items:      make([]catalog.Item, 0, len(indices)),
		interests:  make([]catalog.Interest, 0, len(indices)),
		labels:     make([]Label, 0, len(indices)),
		timestamps: make([]time.Time, 0, len(indices)),
	}
	for _, i := range indices {
		d.items = append(d.items, labeledItems[i])
		d.interests = append(d.interests, labeledNotes[i].Interest)
		d.labels = append(d.labels, labels[i])
		d.timestamps = append(d.timestamps, labeledNotes[i].Timestamp)
		if labels[i] == Positive {
			d.positive++
		} else {
			d.negative++
		}
	}
	log.Logger().Info("build dataset",
		zap.Int("n_items", len(items)),
		zap.Int("n_annotations", len(annotations)),
		zap.Int("n_positive", d.positive),
		zap.Int("n_negative", d.negative),
		zap.Int("n_genres", len(schema.Vocabulary)))

	// check the minimum number of samples
	if d.positive < b.MinPositive || d.negative < b.MinNegative {
		return nil, &InsufficientDataError{
			Positive:    d.positive,
			Negative:    d.negative,
			MinPositive: b.MinPositive,
			MinNegative: b.MinNegative,
		}
	}
	return d, nil
}
