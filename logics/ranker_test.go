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
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/mangarec/mangarec/config"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/model"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/mangarec/mangarec/model/forest"
	"github.com/mangarec/mangarec/storage/catalog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// scoreClassifier predicts the normalized community score.
type scoreClassifier struct {
	index int
}

func (c scoreClassifier) PredictProba(x []float32) float32 {
	return x[c.index]
}

type RankerTestSuite struct {
	suite.Suite
	candidates []catalog.Item
	ranker     *Ranker
}

func (suite *RankerTestSuite) SetupTest() {
	suite.candidates = []catalog.Item{
		{ItemId: "a", Genres: []string{"Action"}, Score: lo.ToPtr(5.0)},
		{ItemId: "b", Genres: []string{"Romance"}, Score: lo.ToPtr(9.0)},
		{ItemId: "c", Genres: []string{"Action"}, Score: lo.ToPtr(7.0)},
		{ItemId: "d", Genres: []string{"Comedy"}, Score: lo.ToPtr(7.0)},
		{ItemId: "e", Genres: []string{"Action", "Comedy"}, Score: lo.ToPtr(1.0)},
		{ItemId: "f", Genres: []string{"Drama"}, Score: lo.ToPtr(3.0), Type: catalog.Manhwa},
		{ItemId: "g", Genres: []string{"Romance", "Drama"}, Score: lo.ToPtr(8.0)},
		{ItemId: "h", Genres: []string{"Comedy"}, Score: lo.ToPtr(10.0)},
	}
	schema := feature.NewSchema(suite.candidates, feature.MinMax, feature.Mean)
	scoreIndex := lo.IndexOf(schema.FeatureNames(), feature.Score)
	suite.ranker = NewRanker(scoreClassifier{index: scoreIndex}, schema.Vocabulary, feature.NewVectorizer(schema))
}

func (suite *RankerTestSuite) ids(recommendations []Recommendation) []string {
	return lo.Map(recommendations, func(r Recommendation, _ int) string { return r.Item.ItemId })
}

func (suite *RankerTestSuite) TestRank() {
	annotations := []catalog.Annotation{
		{ItemId: "h", Interest: catalog.Liked},
		{ItemId: "a", Interest: catalog.ReadNeutral},
	}
	recommendations, err := suite.ranker.Rank(suite.candidates, annotations, feature.NewWeightProfile(), nil, 4)
	suite.NoError(err)
	// ties are broken by item id
	suite.Equal([]string{"b", "g", "c", "d"}, suite.ids(recommendations))
	suite.True(sort.SliceIsSorted(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	}))
	suite.Equal(recommendations[2].Score, recommendations[3].Score)
	for _, r := range recommendations {
		suite.GreaterOrEqual(r.Score, float32(0))
		suite.LessOrEqual(r.Score, float32(1))
	}
}

func (suite *RankerTestSuite) TestBannedGenres() {
	recommendations, err := suite.ranker.Rank(suite.candidates, nil, feature.NewWeightProfile(), []string{"romance"}, 10)
	suite.NoError(err)
	suite.Equal([]string{"h", "c", "d", "a", "f", "e"}, suite.ids(recommendations))
}

func (suite *RankerTestSuite) TestDefaultTopK() {
	recommendations, err := suite.ranker.Rank(suite.candidates, nil, feature.NewWeightProfile(), nil, 0)
	suite.NoError(err)
	suite.Len(recommendations, DefaultTopK)
}

func (suite *RankerTestSuite) TestFewerCandidatesThanTopK() {
	annotations := lo.Map([]string{"a", "b", "c", "d", "e"}, func(id string, _ int) catalog.Annotation {
		return catalog.Annotation{ItemId: id, Interest: catalog.Disliked}
	})
	recommendations, err := suite.ranker.Rank(suite.candidates, annotations, feature.NewWeightProfile(), nil, 5)
	suite.NoError(err)
	suite.Equal([]string{"h", "g", "f"}, suite.ids(recommendations))

	recommendations, err = suite.ranker.Rank(nil, nil, feature.NewWeightProfile(), nil, 5)
	suite.NoError(err)
	suite.Empty(recommendations)
}

func (suite *RankerTestSuite) TestIdempotent() {
	weights := feature.NewWeightProfile()
	first, err := suite.ranker.Rank(suite.candidates, nil, weights, []string{"Drama"}, 5)
	suite.NoError(err)
	second, err := suite.ranker.Rank(suite.candidates, nil, weights, []string{"Drama"}, 5)
	suite.NoError(err)
	suite.Equal(first, second)
}

func (suite *RankerTestSuite) TestWeights() {
	weights := feature.NewWeightProfile()
	suite.NoError(weights.Set(feature.Score, 0.5))
	recommendations, err := suite.ranker.Rank(suite.candidates, nil, weights, nil, 1)
	suite.NoError(err)
	suite.Equal("h", recommendations[0].Item.ItemId)
	suite.Equal(float32(0.5), recommendations[0].Score)
}

func (suite *RankerTestSuite) TestInvalidItem() {
	candidates := append([]catalog.Item{{ItemId: "empty"}}, suite.candidates...)
	recommendations, err := suite.ranker.Rank(candidates, nil, feature.NewWeightProfile(), nil, 100)
	suite.NoError(err)
	suite.Len(recommendations, 8)
	suite.NotContains(suite.ids(recommendations), "empty")
}

func (suite *RankerTestSuite) TestItemWithoutGenres() {
	candidates := append([]catalog.Item{
		{ItemId: "no-genre", Score: lo.ToPtr(10.0)},
		{ItemId: "blank-genre", Genres: []string{" ", ""}, Score: lo.ToPtr(10.0)},
	}, suite.candidates...)
	recommendations, err := suite.ranker.Rank(candidates, nil, feature.NewWeightProfile(), nil, 100)
	suite.NoError(err)
	suite.Len(recommendations, 8)
	suite.NotContains(suite.ids(recommendations), "no-genre")
	suite.NotContains(suite.ids(recommendations), "blank-genre")
	for _, r := range recommendations {
		suite.NotEmpty(r.Item.Genres)
	}
}

func (suite *RankerTestSuite) TestFilter() {
	suite.NoError(suite.ranker.SetFilter(`item.Type == "manhwa"`))
	recommendations, err := suite.ranker.Rank(suite.candidates, nil, feature.NewWeightProfile(), nil, 5)
	suite.NoError(err)
	suite.Equal([]string{"f"}, suite.ids(recommendations))
	suite.NoError(suite.ranker.SetFilter(""))
	recommendations, err = suite.ranker.Rank(suite.candidates, nil, feature.NewWeightProfile(), nil, 5)
	suite.NoError(err)
	suite.Len(recommendations, 5)
	suite.Error(suite.ranker.SetFilter(`item.Score`))
}

func (suite *RankerTestSuite) TestVocabularyMismatch() {
	schema := feature.NewSchema(suite.candidates[:1], feature.MinMax, feature.Mean)
	ranker := NewRanker(scoreClassifier{}, []string{"Action", "Romance"}, feature.NewVectorizer(schema))
	_, err := ranker.Rank(suite.candidates, nil, feature.NewWeightProfile(), nil, 5)
	var mismatch *feature.VocabularyMismatchError
	suite.True(errors.As(err, &mismatch))
	suite.Equal(2, mismatch.Expected)
	suite.Equal(1, mismatch.Actual)
}

func (suite *RankerTestSuite) TestGenrePreference() {
	var (
		items       []catalog.Item
		annotations []catalog.Annotation
	)
	for i := 0; i < 60; i++ {
		items = append(items,
			catalog.Item{ItemId: fmt.Sprintf("action%02d", i), Genres: []string{"Action"}, Score: lo.ToPtr(7.0)},
			catalog.Item{ItemId: fmt.Sprintf("romance%02d", i), Genres: []string{"Romance"}, Score: lo.ToPtr(7.0)})
		annotations = append(annotations,
			catalog.Annotation{ItemId: fmt.Sprintf("action%02d", i), Interest: catalog.Liked},
			catalog.Annotation{ItemId: fmt.Sprintf("romance%02d", i), Interest: catalog.Disliked})
	}
	cfg := config.GetDefaultConfig()
	trainSet, err := dataset.NewBuilder(cfg.Train).Build(items, annotations, feature.NewWeightProfile())
	suite.NoError(err)
	classifier := forest.NewForest(model.NewParamsFromConfig(cfg.Train).Overwrite(model.Params{model.NumTrees: 20}))
	_, err = classifier.Fit(context.Background(), trainSet, nil)
	suite.NoError(err)
	ranker := NewRanker(classifier, trainSet.GetSchema().Vocabulary, feature.NewVectorizer(trainSet.GetSchema()))

	candidates := append(items,
		catalog.Item{ItemId: "new-romance", Genres: []string{"Romance"}, Score: lo.ToPtr(7.0)},
		catalog.Item{ItemId: "new-action", Genres: []string{"Action"}, Score: lo.ToPtr(7.0)},
		catalog.Item{ItemId: "no-genre", Score: lo.ToPtr(7.0)})
	recommendations, err := ranker.Rank(candidates, annotations, feature.NewWeightProfile(), nil, 5)
	suite.NoError(err)
	suite.Equal([]string{"new-action", "new-romance"}, suite.ids(recommendations))
	suite.Greater(recommendations[0].Score, recommendations[1].Score)

	recommendations, err = ranker.Rank(candidates, annotations, feature.NewWeightProfile(), []string{"Romance"}, 5)
	suite.NoError(err)
	suite.Equal([]string{"new-action"}, suite.ids(recommendations))
}

func TestRanker(t *testing.T) {
	suite.Run(t, new(RankerTestSuite))
}
