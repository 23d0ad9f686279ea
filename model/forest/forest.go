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
	"io"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/c-bata/goptuna"
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base"
	"github.com/mangarec/mangarec/base/encoding"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/base/parallel"
	"github.com/mangarec/mangarec/base/progress"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const header = "RandomForest"

// ErrEmptyDataset is returned when fitting on a dataset without samples.
var ErrEmptyDataset = errors.New("empty dataset")

type FitConfig struct {
	Jobs    int
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// Forest is a random forest binary classifier. It is read-only after fitting.
type Forest struct {
	model.BaseModel
	Trees       []Tree
	NumFeatures int
	importances []float32
	// hyper-parameters
	numTrees        int
	maxDepth        int
	minSamplesLeaf  int
	minSamplesSplit int
	maxFeatures     float32
}

func NewForest(params model.Params) *Forest {
	f := new(Forest)
	f.SetParams(params)
	return f
}

func (f *Forest) SetParams(params model.Params) {
	f.BaseModel.SetParams(params)
	f.numTrees = f.Params.GetInt(model.NumTrees, 100)
	f.maxDepth = f.Params.GetInt(model.MaxDepth, 0)
	f.minSamplesLeaf = f.Params.GetInt(model.MinSamplesLeaf, 1)
	f.minSamplesSplit = f.Params.GetInt(model.MinSamplesSplit, 2)
	f.maxFeatures = f.Params.GetFloat32(model.MaxFeatures, 0)
}

func (f *Forest) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NumTrees:       lo.Must(trial.SuggestInt(string(model.NumTrees), 10, 300)),
		model.MaxDepth:       lo.Must(trial.SuggestInt(string(model.MaxDepth), 0, 20)),
		model.MinSamplesLeaf: lo.Must(trial.SuggestInt(string(model.MinSamplesLeaf), 1, 10)),
	}
}

func (f *Forest) Clear() {
	f.Trees = nil
	f.NumFeatures = 0
	f.importances = nil
}

func (f *Forest) Invalid() bool {
	return f == nil || len(f.Trees) == 0
}

// NumFeaturesPerSplit is the number of features examined at each split.
func (f *Forest) NumFeaturesPerSplit(numFeatures int) int {
	var n int
	if f.maxFeatures > 0 {
		n = int(f.maxFeatures * float32(numFeatures))
	} else {
		n = int(math32.Sqrt(float32(numFeatures)))
	}
	return min(max(1, n), max(1, numFeatures))
}

// Fit the forest and returns its out-of-bag score. Tree i is grown with the random state plus i,
// so the result does not depend on the number of jobs.
func (f *Forest) Fit(ctx context.Context, trainSet *dataset.Dataset, config *FitConfig) (Score, error) {
	config = config.LoadDefaultIfNil()
	if trainSet.Count() == 0 {
		return Score{}, ErrEmptyDataset
	}
	if f.numTrees < 1 {
		return Score{}, errors.NotValidf("number of trees %d", f.numTrees)
	}
	n, dim := trainSet.Count(), trainSet.Dim()
	log.Logger().Info("fit random forest",
		zap.Int("n_samples", n),
		zap.Int("n_features", dim),
		zap.Int("n_positive", trainSet.CountPositive()),
		zap.Int("n_negative", trainSet.CountNegative()),
		zap.String("params", f.Params.ToString()))
	f.Clear()

	trees := make([]Tree, f.numTrees)
	inBags := make([]*bitset.BitSet, f.numTrees)
	importances := make([][]float64, f.numTrees)
	span := progress.Start(ctx, "fit random forest", f.numTrees)
	var mu sync.Mutex
	done := 0
	err := parallel.Parallel(ctx, f.numTrees, config.Jobs, func(_, jobId int) error {
		rng := base.NewRandomGenerator(f.GetRandomState() + int64(jobId))
		samples := rng.Bootstrap(n)
		inBag := bitset.New(uint(n))
		for _, i := range samples {
			inBag.Set(uint(i))
		}
		builder := &treeBuilder{
			x:               trainSet.GetVectors(),
			y:               trainSet.GetLabels(),
			maxDepth:        f.maxDepth,
			minSamplesLeaf:  f.minSamplesLeaf,
			minSamplesSplit: f.minSamplesSplit,
			maxFeatures:     f.NumFeaturesPerSplit(dim),
			rng:             rng,
			importances:     make([]float64, dim),
		}
		builder.build(samples, 0)
		trees[jobId] = Tree{Nodes: builder.nodes}
		inBags[jobId] = inBag
		importances[jobId] = builder.importances
		span.Add(1)
		mu.Lock()
		done++
		if config.Verbose > 0 && done%config.Verbose == 0 {
			log.Logger().Debug("fit random forest", zap.Int("n_trees", done), zap.Int("total", f.numTrees))
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		span.Fail(err)
		return Score{}, errors.Trace(err)
	}
	span.End()
	f.Trees = trees
	f.NumFeatures = dim
	f.importances = normalizeImportances(importances, dim)

	score := f.evaluateOOB(trainSet, inBags)
	log.Logger().Info("fit random forest complete", score.ZapFields()...)
	return score, nil
}

// evaluateOOB predicts each sample with the trees that did not see it.
func (f *Forest) evaluateOOB(trainSet *dataset.Dataset, inBags []*bitset.BitSet) Score {
	var posPrediction, negPrediction []float32
	for i, x := range trainSet.GetVectors() {
		var sum float32
		var count int
		for t := range f.Trees {
			if !inBags[t].Test(uint(i)) {
				sum += f.Trees[t].Predict(x)
				count++
			}
		}
		if count == 0 {
			continue
		}
		if trainSet.GetLabels()[i] == dataset.Positive {
			posPrediction = append(posPrediction, sum/float32(count))
		} else {
			negPrediction = append(negPrediction, sum/float32(count))
		}
	}
	return Evaluate(posPrediction, negPrediction)
}

func normalizeImportances(importances [][]float64, dim int) []float32 {
	total := make([]float64, dim)
	for _, tree := range importances {
		var sum float64
		for _, v := range tree {
			sum += v
		}
		if sum == 0 {
			continue
		}
		for i, v := range tree {
			total[i] += v / sum
		}
	}
	var sum float64
	for _, v := range total {
		sum += v
	}
	result := make([]float32, dim)
	if sum == 0 {
		return result
	}
	for i, v := range total {
		result[i] = float32(v / sum)
	}
	return result
}

// PredictProba returns the mean positive fraction of all trees, in [0, 1].
func (f *Forest) PredictProba(x []float32) float32 {
	if f.Invalid() {
		return 0
	}
	var sum float32
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float32(len(f.Trees))
}

// FeatureImportances returns the mean decrease in impurity of each feature, summing to 1
// unless no tree was split.
func (f *Forest) FeatureImportances() []float32 {
	return f.importances
}

func (f *Forest) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, header); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, f.Params); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, int32(f.NumFeatures)); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteSlice(w, f.importances); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, int32(len(f.Trees))); err != nil {
		return errors.Trace(err)
	}
	for _, tree := range f.Trees {
		if err := encoding.WriteSlice(w, tree.Nodes); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (f *Forest) Unmarshal(r io.Reader) error {
	name, err := encoding.ReadString(r)
	if err != nil {
		return errors.Trace(err)
	}
	if name != header {
		return errors.Errorf("unknown model %v", name)
	}
	var params model.Params
	if err = encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	f.SetParams(params)
	var numFeatures, numTrees int32
	if err = encoding.ReadGob(r, &numFeatures); err != nil {
		return errors.Trace(err)
	}
	if numFeatures < 0 {
		return errors.NotValidf("number of features %d", numFeatures)
	}
	f.NumFeatures = int(numFeatures)
	if f.importances, err = encoding.ReadSlice[float32](r); err != nil {
		return errors.Trace(err)
	}
	if len(f.importances) != f.NumFeatures {
		return errors.NotValidf("%d importances for %d features", len(f.importances), f.NumFeatures)
	}
	if err = encoding.ReadGob(r, &numTrees); err != nil {
		return errors.Trace(err)
	}
	if numTrees < 0 {
		return errors.NotValidf("number of trees %d", numTrees)
	}
	f.Trees = make([]Tree, numTrees)
	for i := range f.Trees {
		if f.Trees[i].Nodes, err = encoding.ReadSlice[Node](r); err != nil {
			return errors.Trace(err)
		}
		if err = f.Trees[i].validate(f.NumFeatures); err != nil {
			return errors.Annotatef(err, "tree %d", i)
		}
	}
	return nil
}
