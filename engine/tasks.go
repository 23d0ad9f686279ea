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
	"context"
	"io"
	"sort"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/model"
	"github.com/mangarec/mangarec/model/forest"
	"github.com/mangarec/mangarec/storage/catalog"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Import items and annotations from a Jikan JSON dump. Items already annotated keep their
// annotation, so ratings made with Rate survive a re-import. It returns the number of items and
// the number of new annotations.
func (e *Engine) Import(ctx context.Context, r io.Reader) (int, int, error) {
	items, annotations, err := catalog.ParseJikan(r, time.Now().UTC())
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	existing, err := e.Catalog.ListAnnotations(ctx)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	annotated := mapset.NewThreadUnsafeSet[string]()
	for _, annotation := range existing {
		annotated.Add(annotation.ItemId)
	}
	fresh := lo.Filter(annotations, func(annotation catalog.Annotation, _ int) bool {
		return !annotated.Contains(annotation.ItemId)
	})
	if err = e.Catalog.BatchInsertItems(ctx, items); err != nil {
		return 0, 0, errors.Trace(err)
	}
	if err = e.Catalog.BatchUpsertAnnotations(ctx, fresh); err != nil {
		return 0, 0, errors.Trace(err)
	}
	log.Logger().Info("import catalog",
		zap.Int("n_items", len(items)),
		zap.Int("n_annotations", len(fresh)),
		zap.Int("n_skipped", len(annotations)-len(fresh)))
	return len(items), len(fresh), nil
}

// Rate records an interest for an item. Rating an item Unrated removes its annotation.
func (e *Engine) Rate(ctx context.Context, itemId string, interest catalog.Interest) error {
	if _, err := e.Catalog.GetItem(ctx, itemId); err != nil {
		return errors.Trace(err)
	}
	if interest == catalog.Unrated {
		return errors.Trace(e.Catalog.DeleteAnnotation(ctx, itemId))
	}
	return errors.Trace(e.Catalog.BatchUpsertAnnotations(ctx, []catalog.Annotation{{
		ItemId:    itemId,
		Interest:  interest,
		Timestamp: time.Now().UTC(),
	}}))
}

type GenreReport struct {
	Positive int
	Negative int
	Top      []dataset.GenreCount
	Trend    []dataset.GenreTrend
}

// GenreReport summarizes genre preferences over all labeled items, including when there are
// too few to train.
func (e *Engine) GenreReport(ctx context.Context, n int) (*GenreReport, error) {
	d, err := e.BuildDataset(ctx, true)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &GenreReport{
		Positive: d.CountPositive(),
		Negative: d.CountNegative(),
		Top:      d.TopGenres(n),
		Trend:    d.GenreTrend(),
	}, nil
}

// Export the labeled dataset in Parquet format.
func (e *Engine) Export(ctx context.Context, w io.Writer) (int, error) {
	d, err := e.BuildDataset(ctx, true)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if err = d.WriteParquet(w); err != nil {
		return 0, errors.Trace(err)
	}
	return d.Count(), nil
}

// Tune searches hyper-parameters by out-of-bag AUC with TPE.
func (e *Engine) Tune(ctx context.Context, trials int) (forest.SearchResult, error) {
	trainSet, err := e.BuildDataset(ctx, false)
	if err != nil {
		return forest.SearchResult{}, errors.Trace(err)
	}
	search := forest.NewModelSearch(ctx, model.NewParamsFromConfig(e.Config.Train), trainSet, e.FitConfig)
	study, err := goptuna.CreateStudy("mangarec",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	if err != nil {
		return forest.SearchResult{}, errors.Trace(err)
	}
	if err = study.Optimize(search.Objective, trials); err != nil {
		return forest.SearchResult{}, errors.Trace(err)
	}
	result := search.Result()
	log.Logger().Info("tune model complete",
		append([]zap.Field{
			zap.Int("n_trials", result.Trials),
			zap.String("params", result.Params.ToString()),
		}, result.Score.ZapFields()...)...)
	return result, nil
}

type FeatureImportance struct {
	Name       string
	Group      string
	Importance float32
}

// Importance returns feature importances of the current model in descending order.
func (e *Engine) Importance(ctx context.Context) ([]FeatureImportance, error) {
	artifact, err := e.LoadArtifact(ctx)
	if err != nil {
		return nil, err
	}
	names := artifact.Schema.FeatureNames()
	values := artifact.Forest.FeatureImportances()
	importances := make([]FeatureImportance, 0, len(values))
	for i, value := range values {
		importances = append(importances, FeatureImportance{
			Name:       names[i],
			Group:      artifact.Schema.GroupOf(i),
			Importance: value,
		})
	}
	sort.SliceStable(importances, func(i, j int) bool {
		return importances[i].Importance > importances[j].Importance
	})
	return importances, nil
}
