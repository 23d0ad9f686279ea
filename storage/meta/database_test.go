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

package meta

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) TestKeyValue() {
	ctx := context.Background()
	// Get missing key
	value, err := suite.Database.Get(ctx, "key")
	suite.NoError(err)
	suite.Nil(value)
	// Put and get
	err = suite.Database.Put(ctx, "key", "value")
	suite.NoError(err)
	value, err = suite.Database.Get(ctx, "key")
	suite.NoError(err)
	if suite.NotNil(value) {
		suite.Equal("value", *value)
	}
	// Overwrite
	err = suite.Database.Put(ctx, "key", "value2")
	suite.NoError(err)
	value, err = suite.Database.Get(ctx, "key")
	suite.NoError(err)
	if suite.NotNil(value) {
		suite.Equal("value2", *value)
	}
	// Delete
	err = suite.Database.Delete(ctx, "key")
	suite.NoError(err)
	value, err = suite.Database.Get(ctx, "key")
	suite.NoError(err)
	suite.Nil(value)
}

type testScore struct {
	AUC float32
}

func (suite *baseTestSuite) TestModel() {
	ctx := context.Background()
	trainedAt := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	m := Model[testScore]{
		ID:        "model-2",
		Type:      "rf-v1",
		Positive:  60,
		Negative:  61,
		TrainedAt: trainedAt,
		Score:     testScore{AUC: 0.875},
		History:   []string{"model-1"},
	}
	suite.NoError(suite.Database.Put(ctx, MODEL, m.ToJSON()))
	value, err := suite.Database.Get(ctx, MODEL)
	suite.NoError(err)
	if suite.NotNil(value) {
		var loaded Model[testScore]
		suite.NoError(loaded.FromJSON(*value))
		suite.Equal(m, loaded)
	}
}
