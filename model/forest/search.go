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
	"context"

	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/model"
	"go.uber.org/zap"
)

// SearchResult is the best trial of a model search.
type SearchResult struct {
	Params model.Params
	Score  Score
	Trials int
}

// ModelSearch is a goptuna objective searching hyper-parameters of random forests by
// out-of-bag AUC.
type ModelSearch struct {
	ctx      context.Context
	params   model.Params
	trainSet *dataset.Dataset
	config   *FitConfig
	result   SearchResult
}

// NewModelSearch creates a search. Suggested parameters overwrite params.
func NewModelSearch(ctx context.Context, params model.Params, trainSet *dataset.Dataset, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		ctx:      ctx,
		params:   params,
		trainSet: trainSet,
		config:   config,
	}
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	f := NewForest(ms.params)
	f.SetParams(ms.params.Overwrite(f.SuggestParams(trial)))
	score, err := f.Fit(ms.ctx, ms.trainSet, ms.config)
	if err != nil {
		return 0, errors.Trace(err)
	}
	ms.result.Trials++
	log.Logger().Info("search random forest",
		append([]zap.Field{zap.String("params", f.GetParams().ToString())}, score.ZapFields()...)...)
	if ms.result.Params == nil || score.BetterThan(ms.result.Score) {
		ms.result.Params = f.GetParams()
		ms.result.Score = score
	}
	return float64(score.AUC), nil
}

func (ms *ModelSearch) Result() SearchResult {
	return ms.result
}
