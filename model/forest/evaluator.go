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
	"sort"

	"go.uber.org/zap"
	"modernc.org/sortutil"
)

// Threshold of the positive class probability.
const Threshold = 0.5

type Score struct {
	Accuracy  float32
	Precision float32
	Recall    float32
	AUC       float32
}

func (score Score) ZapFields() []zap.Field {
	return []zap.Field{
		zap.Float32("Accuracy", score.Accuracy),
		zap.Float32("Precision", score.Precision),
		zap.Float32("Recall", score.Recall),
		zap.Float32("AUC", score.AUC),
	}
}

func (score Score) BetterThan(s Score) bool {
	return score.AUC > s.AUC
}

// Evaluate computes classification metrics from predictions of positive and negative samples.
func Evaluate(posPrediction, negPrediction []float32) Score {
	return Score{
		Accuracy:  Accuracy(posPrediction, negPrediction),
		Precision: Precision(posPrediction, negPrediction),
		Recall:    Recall(posPrediction, negPrediction),
		AUC:       AUC(posPrediction, negPrediction),
	}
}

func Precision(posPrediction, negPrediction []float32) float32 {
	var tp, fp float32
	for _, p := range posPrediction {
		if p >= Threshold { // true positive
			tp++
		}
	}
	for _, p := range negPrediction {
		if p >= Threshold { // false positive
			fp++
		}
	}
	if tp+fp == 0 {
		return 0
	}
	return tp / (tp + fp)
}

func Recall(posPrediction, _ []float32) float32 {
	var tp float32
	for _, p := range posPrediction {
		if p >= Threshold {
			tp++
		}
	}
	if len(posPrediction) == 0 {
		return 0
	}
	return tp / float32(len(posPrediction))
}

func Accuracy(posPrediction, negPrediction []float32) float32 {
	var correct float32
	for _, p := range posPrediction {
		if p >= Threshold {
			correct++
		}
	}
	for _, p := range negPrediction {
		if p < Threshold {
			correct++
		}
	}
	if len(posPrediction)+len(negPrediction) == 0 {
		return 0
	}
	return correct / float32(len(posPrediction)+len(negPrediction))
}

// AUC is the probability that a random positive sample is ranked above a random negative
// sample. Ties count one half. Inputs are sorted in place.
func AUC(posPrediction, negPrediction []float32) float32 {
	if len(posPrediction)*len(negPrediction) == 0 {
		return 0
	}
	sort.Sort(sortutil.Float32Slice(posPrediction))
	sort.Sort(sortutil.Float32Slice(negPrediction))
	var sum float32
	var nLess, nLessEqual int
	for _, p := range posPrediction {
		for nLess < len(negPrediction) && negPrediction[nLess] < p {
			nLess++
		}
		for nLessEqual < len(negPrediction) && negPrediction[nLessEqual] <= p {
			nLessEqual++
		}
		sum += float32(nLess) + float32(nLessEqual-nLess)/2
	}
	return sum / float32(len(posPrediction)*len(negPrediction))
}
