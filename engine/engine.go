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
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/json"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/config"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/logics"
	"github.com/mangarec/mangarec/model"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/mangarec/mangarec/model/forest"
	"github.com/mangarec/mangarec/storage"
	"github.com/mangarec/mangarec/storage/blob"
	"github.com/mangarec/mangarec/storage/catalog"
	"github.com/mangarec/mangarec/storage/meta"
	"go.uber.org/zap"
)

const modelType = "RandomForest"

// Engine trains models from the catalog and recommends with the latest one.
type Engine struct {
	Config    *config.Config
	Catalog   catalog.Database
	Meta      meta.Database
	Blob      blob.Store
	FitConfig *forest.FitConfig
}

// New creates an engine over opened stores.
func New(cfg *config.Config, catalogDB catalog.Database, metaDB meta.Database, blobStore blob.Store) *Engine {
	return &Engine{
		Config:    cfg,
		Catalog:   catalogDB,
		Meta:      metaDB,
		Blob:      blobStore,
		FitConfig: forest.NewFitConfig().SetJobs(cfg.Train.Jobs),
	}
}

// Open the stores named by the config and creates an engine.
func Open(cfg *config.Config) (*Engine, error) {
	catalogDB, err := catalog.Open(cfg.Database.CatalogStore, cfg.Database.TablePrefix,
		storage.WithMaxOpenConns(cfg.Database.MaxOpenConns),
		storage.WithMaxIdleConns(cfg.Database.MaxIdleConns),
		storage.WithConnMaxLifetime(cfg.Database.ConnMaxLifetime))
	if err != nil {
		return nil, errors.Annotatef(err, "open catalog store %s", log.RedactDBURL(cfg.Database.CatalogStore))
	}
	if err = catalogDB.Init(); err != nil {
		_ = catalogDB.Close()
		return nil, errors.Annotate(err, "init catalog store")
	}
	metaDB, err := meta.Open(cfg.Database.MetaStore)
	if err != nil {
		_ = catalogDB.Close()
		return nil, errors.Annotatef(err, "open meta store %s", cfg.Database.MetaStore)
	}
	if err = metaDB.Init(); err != nil {
		_ = catalogDB.Close()
		_ = metaDB.Close()
		return nil, errors.Annotate(err, "init meta store")
	}
	blobStore, err := blob.NewStore(cfg.Blob)
	if err != nil {
		_ = catalogDB.Close()
		_ = metaDB.Close()
		return nil, errors.Annotate(err, "open blob store")
	}
	log.Logger().Debug("open engine",
		zap.String("catalog_store", log.RedactDBURL(cfg.Database.CatalogStore)),
		zap.String("meta_store", cfg.Database.MetaStore),
		zap.String("blob_store", cfg.Blob.Type))
	return New(cfg, catalogDB, metaDB, blobStore), nil
}

func (e *Engine) Close() error {
	err := e.Catalog.Close()
	if metaErr := e.Meta.Close(); err == nil {
		err = metaErr
	}
	return errors.Trace(err)
}

// GetWeights returns the persisted weight profile, or the configured one if none is persisted.
func (e *Engine) GetWeights(ctx context.Context) (feature.WeightProfile, error) {
	weights := feature.NewWeightProfile()
	for name, weight := range e.Config.Weights {
		if err := weights.Set(name, weight); err != nil {
			return nil, errors.Trace(err)
		}
	}
	value, err := e.Meta.Get(ctx, meta.WEIGHTS)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if value != nil {
		var persisted feature.WeightProfile
		if err = json.Unmarshal([]byte(*value), &persisted); err != nil {
			return nil, errors.Annotate(err, "unmarshal weights")
		}
		for name, weight := range persisted {
			if err = weights.Set(name, weight); err != nil {
				return nil, errors.Trace(err)
			}
		}
	}
	return weights, nil
}

// SetWeights validates and persists updates to the weight profile.
func (e *Engine) SetWeights(ctx context.Context, updates map[string]float32) (feature.WeightProfile, error) {
	weights, err := e.GetWeights(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for name, weight := range updates {
		if err = weights.Set(name, weight); err != nil {
			return nil, errors.Trace(err)
		}
	}
	data, err := json.Marshal(weights)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = e.Meta.Put(ctx, meta.WEIGHTS, string(data)); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("update weights", zap.Stringer("weights", weights))
	return weights, nil
}

// ResetWeights removes the persisted weight profile.
func (e *Engine) ResetWeights(ctx context.Context) error {
	return errors.Trace(e.Meta.Delete(ctx, meta.WEIGHTS))
}

// trainingWeights are the weights applied to training vectors.
func (e *Engine) trainingWeights(ctx context.Context) (feature.WeightProfile, error) {
	if e.Config.Recommend.WeightPolicy == config.WeightPolicyTraining {
		return e.GetWeights(ctx)
	}
	return feature.NewWeightProfile(), nil
}

// BuildDataset builds the labeled dataset. The size gate is skipped if ungated is true.
func (e *Engine) BuildDataset(ctx context.Context, ungated bool) (*dataset.Dataset, error) {
	items, err := e.Catalog.ListItems(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	annotations, err := e.Catalog.ListAnnotations(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	weights, err := e.trainingWeights(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	builder := dataset.NewBuilder(e.Config.Train)
	if ungated {
		builder.MinPositive, builder.MinNegative = 0, 0
	}
	return builder.Build(items, annotations, weights)
}

// Train a model on the current catalog and make it the model used for recommendations. It
// returns *dataset.InsufficientDataError if there are too few ratings.
func (e *Engine) Train(ctx context.Context) (*meta.Model[forest.Score], error) {
	trainSet, err := e.BuildDataset(ctx, false)
	if err != nil {
		return nil, errors.Trace(err)
	}
	f := forest.NewForest(model.NewParamsFromConfig(e.Config.Train))
	score, err := f.Fit(ctx, trainSet, e.FitConfig)
	if err != nil {
		return nil, errors.Trace(err)
	}
	artifact := &Artifact{
		Schema:       trainSet.GetSchema(),
		Weights:      trainSet.GetWeights(),
		WeightPolicy: e.Config.Recommend.WeightPolicy,
		Score:        score,
		Positive:     trainSet.CountPositive(),
		Negative:     trainSet.CountNegative(),
		TrainedAt:    time.Now().UTC(),
		Forest:       f,
	}

	// save artifact
	name := uuid.NewString()
	if err = blob.Write(ctx, e.Blob, name, func(w io.Writer) error {
		return MarshalArtifact(w, artifact)
	}); err != nil {
		return nil, errors.Annotate(err, "save model")
	}

	// update model record
	previous, err := e.GetModel(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	record := &meta.Model[forest.Score]{
		ID:        name,
		Type:      modelType,
		Positive:  artifact.Positive,
		Negative:  artifact.Negative,
		TrainedAt: artifact.TrainedAt,
		Score:     score,
	}
	var expired []string
	if previous != nil {
		history := append([]string{previous.ID}, previous.History...)
		keep := min(len(history), e.Config.Train.KeepHistory)
		record.History, expired = history[:keep], history[keep:]
	}
	if err = e.Meta.Put(ctx, meta.MODEL, record.ToJSON()); err != nil {
		return nil, errors.Trace(err)
	}
	for _, id := range expired {
		if err = e.Blob.Remove(ctx, id); err != nil {
			log.Logger().Warn("failed to remove expired model", zap.String("id", id), zap.Error(err))
		}
	}
	log.Logger().Info("train model complete",
		append([]zap.Field{
			zap.String("id", name),
			zap.Int("n_positive", record.Positive),
			zap.Int("n_negative", record.Negative),
		}, score.ZapFields()...)...)
	return record, nil
}

// GetModel returns the current model record, or nil if no model has been trained.
func (e *Engine) GetModel(ctx context.Context) (*meta.Model[forest.Score], error) {
	value, err := e.Meta.Get(ctx, meta.MODEL)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if value == nil {
		return nil, nil
	}
	record := new(meta.Model[forest.Score])
	if err = record.FromJSON(*value); err != nil {
		return nil, errors.Annotate(err, "unmarshal model record")
	}
	return record, nil
}

// LoadArtifact loads the current model. It returns *ModelNotTrainedError if there is none.
func (e *Engine) LoadArtifact(ctx context.Context) (*Artifact, error) {
	record, err := e.GetModel(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if record == nil {
		return nil, &ModelNotTrainedError{Reason: "no model has been trained"}
	}
	r, err := e.Blob.Open(ctx, record.ID)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return nil, &ModelNotTrainedError{Reason: "model " + record.ID + " is missing"}
		}
		return nil, errors.Trace(err)
	}
	defer r.Close()
	artifact, err := UnmarshalArtifact(r)
	if err != nil {
		return nil, errors.Annotatef(err, "load model %s", record.ID)
	}
	return artifact, nil
}

// Recommend returns the top k unrated items. A non-positive k falls back to the configured
// default.
func (e *Engine) Recommend(ctx context.Context, k int) ([]logics.Recommendation, error) {
	artifact, err := e.LoadArtifact(ctx)
	if err != nil {
		return nil, err
	}
	weights, err := e.GetWeights(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if artifact.WeightPolicy == config.WeightPolicyTraining && !artifact.Weights.Equal(weights) {
		return nil, &ModelNotTrainedError{Reason: "weights changed since the model was trained"}
	}
	items, err := e.Catalog.ListItems(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	annotations, err := e.Catalog.ListAnnotations(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ranker := logics.NewRanker(artifact.Forest, artifact.Schema.Vocabulary, feature.NewVectorizer(artifact.Schema))
	if err = ranker.SetFilter(e.Config.Recommend.Filter); err != nil {
		return nil, errors.Trace(err)
	}
	if k <= 0 {
		k = e.Config.Recommend.TopK
	}
	return ranker.Rank(items, annotations, weights, e.Config.Recommend.BannedGenres, k)
}
