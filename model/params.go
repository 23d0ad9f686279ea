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

package model

import (
	"fmt"
	"reflect"

	"github.com/mangarec/mangarec/base/json"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/config"
	"go.uber.org/zap"
)

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	NumTrees        ParamName = "NumTrees"        // number of trees
	MaxDepth        ParamName = "MaxDepth"        // maximum depth of a tree, 0 means unlimited
	MinSamplesLeaf  ParamName = "MinSamplesLeaf"  // minimum number of samples in a leaf
	MinSamplesSplit ParamName = "MinSamplesSplit" // minimum number of samples to split a node
	MaxFeatures     ParamName = "MaxFeatures"     // fraction of features examined per split, 0 means sqrt(n)
	RandomState     ParamName = "RandomState"     // random state (seed)
)

// Params stores hyper-parameters for a model. It is a map between names
// and values. For example, hyper-parameters for a random forest are given by:
//
//	model.Params{
//		model.NumTrees:       100,
//		model.MinSamplesLeaf: 1,
//		model.RandomState:    42,
//	}
type Params map[ParamName]interface{}

// Copy hyper-parameters.
func (parameters Params) Copy() Params {
	newParams := make(Params)
	for k, v := range parameters {
		newParams[k] = v
	}
	return newParams
}

// GetInt gets an integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		case int32:
			return int(val)
		case int64:
			return int(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetInt64 gets an int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int64"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetFloat32 gets a float32 parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetFloat32(name ParamName, _default float32) float32 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case float32:
			return val
		case float64:
			return float32(val)
		case int:
			return float32(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "float32"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// Overwrite merges params into a copy of parameters.
func (parameters Params) Overwrite(params Params) Params {
	merged := parameters.Copy()
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		return fmt.Sprint(map[ParamName]interface{}(parameters))
	}
	return string(b)
}

// ZapFields returns hyper-parameters as structured log fields.
func (parameters Params) ZapFields() []zap.Field {
	fields := make([]zap.Field, 0, len(parameters))
	for k, v := range parameters {
		fields = append(fields, zap.Any(string(k), v))
	}
	return fields
}

// NewParamsFromConfig creates hyper-parameters for a random forest from the [train] section.
func NewParamsFromConfig(cfg config.TrainConfig) Params {
	return Params{
		NumTrees:        cfg.NumTrees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MaxFeatures:     float32(cfg.MaxFeatures),
		RandomState:     cfg.RandomState,
	}
}
