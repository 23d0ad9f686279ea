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

package engine

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base"
	"github.com/mangarec/mangarec/base/encoding"
	"github.com/mangarec/mangarec/config"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/model"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/mangarec/mangarec/model/forest"
	"github.com/mangarec/mangarec/storage/catalog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArtifact(t *testing.T, genres ...string) *Artifact {
	items := lo.Map(genres, func(genre string, i int) catalog.Item {
		return catalog.Item{
			ItemId:   fmt.Sprint(i),
			Genres:   []string{genre},
			Score:    lo.ToPtr(float64(i)),
			Chapters: lo.ToPtr(10 * (i + 1)),
		}
	})
	schema := feature.NewSchema(items, feature.ZScore, feature.Zero)

	rng := base.NewRandomGenerator(0)
	vectors := make([][]float32, 40)
	labels := make([]dataset.Label, len(vectors))
	for i := range vectors {
		labels[i] = lo.Ternary(i%2 == 0, dataset.Positive, dataset.Negative)
		vectors[i] = make([]float32, schema.Dim())
		for j := range vectors[i] {
			vectors[i][j] = rng.Float32()
		}
		vectors[i][0] = float32(labels[i])
	}
	f := forest.NewForest(model.Params{model.NumTrees: 5})
	score, err := f.Fit(context.Background(), dataset.NewDataset(vectors, labels), nil)
	require.NoError(t, err)

	weights := feature.NewWeightProfile()
	require.NoError(t, weights.Set(feature.Score, 2))
	return &Artifact{
		Schema:       schema,
		Weights:      weights,
		WeightPolicy: config.WeightPolicyTraining,
		Score:        score,
		Positive:     20,
		Negative:     20,
		TrainedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Forest:       f,
	}
}

func TestArtifact_Marshal(t *testing.T) {
	a := newArtifact(t, "Action", "Romance")
	buf := bytes.NewBuffer(nil)
	require.NoError(t, MarshalArtifact(buf, a))
	b, err := UnmarshalArtifact(buf)
	require.NoError(t, err)
	assert.Equal(t, a.Schema, b.Schema)
	assert.True(t, a.Weights.Equal(b.Weights))
	assert.Equal(t, a.WeightPolicy, b.WeightPolicy)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Positive, b.Positive)
	assert.Equal(t, a.Negative, b.Negative)
	assert.True(t, a.TrainedAt.Equal(b.TrainedAt))
	assert.Equal(t, a.Forest.Trees, b.Forest.Trees)
	assert.Equal(t, a.Forest.FeatureImportances(), b.Forest.FeatureImportances())

	// same predictions
	vectorizer := feature.NewVectorizer(b.Schema)
	item := catalog.Item{ItemId: "x", Genres: []string{"Action"}, Score: lo.ToPtr(1.0)}
	x, err := vectorizer.Vectorize(item, b.Weights)
	require.NoError(t, err)
	assert.Equal(t, a.Forest.PredictProba(x), b.Forest.PredictProba(x))
}

func TestArtifact_MarshalUntrained(t *testing.T) {
	a := newArtifact(t, "Action")
	a.Forest = forest.NewForest(nil)
	assert.Error(t, MarshalArtifact(bytes.NewBuffer(nil), a))
}

func TestArtifact_UnmarshalInvalid(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, encoding.WriteString(buf, "mangarec/artifact/v0"))
	_, err := UnmarshalArtifact(buf)
	assert.True(t, errors.Is(err, errors.NotValid))

	// truncated
	a := newArtifact(t, "Action", "Romance")
	buf.Reset()
	require.NoError(t, MarshalArtifact(buf, a))
	_, err = UnmarshalArtifact(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
	assert.Error(t, err)
}

func TestArtifact_VocabularyMismatch(t *testing.T) {
	a := newArtifact(t, "Action", "Romance")
	// the forest expects two genres
	a.Schema = newArtifact(t, "Action", "Comedy", "Romance").Schema
	buf := bytes.NewBuffer(nil)
	require.NoError(t, MarshalArtifact(buf, a))
	_, err := UnmarshalArtifact(buf)
	var mismatch *feature.VocabularyMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
}
