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
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/encoding"
	"github.com/mangarec/mangarec/cmd/version"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/mangarec/mangarec/model/forest"
)

const artifactHeader = "mangarec/artifact/" + version.ArtifactFormat

// Artifact is a trained model with everything needed to vectorize candidates the same way
// training samples were vectorized.
type Artifact struct {
	Schema       feature.Schema
	Weights      feature.WeightProfile // weights applied to training vectors
	WeightPolicy string
	Score        forest.Score
	Positive     int
	Negative     int
	TrainedAt    time.Time
	Forest       *forest.Forest
}

type artifactMeta struct {
	Schema       feature.Schema
	Weights      feature.WeightProfile
	WeightPolicy string
	Score        forest.Score
	Positive     int
	Negative     int
	TrainedAt    time.Time
}

func MarshalArtifact(w io.Writer, a *Artifact) error {
	if a.Forest.Invalid() {
		return errors.New("marshal an untrained model")
	}
	if err := encoding.WriteString(w, artifactHeader); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteGob(w, artifactMeta{
		Schema:       a.Schema,
		Weights:      a.Weights,
		WeightPolicy: a.WeightPolicy,
		Score:        a.Score,
		Positive:     a.Positive,
		Negative:     a.Negative,
		TrainedAt:    a.TrainedAt,
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(a.Forest.Marshal(w))
}

// UnmarshalArtifact reads an artifact. It returns *feature.VocabularyMismatchError if the
// forest was trained on vectors of another length than the schema produces.
func UnmarshalArtifact(r io.Reader) (*Artifact, error) {
	header, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if header != artifactHeader {
		return nil, errors.NotValidf("artifact header %q", header)
	}
	var m artifactMeta
	if err = encoding.ReadGob(r, &m); err != nil {
		return nil, errors.Trace(err)
	}
	f := forest.NewForest(nil)
	if err = f.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	if f.NumFeatures != m.Schema.Dim() {
		return nil, &feature.VocabularyMismatchError{
			Expected: f.NumFeatures - (m.Schema.Dim() - len(m.Schema.Vocabulary)),
			Actual:   len(m.Schema.Vocabulary),
		}
	}
	return &Artifact{
		Schema:       m.Schema,
		Weights:      m.Weights,
		WeightPolicy: m.WeightPolicy,
		Score:        m.Score,
		Positive:     m.Positive,
		Negative:     m.Negative,
		TrainedAt:    m.TrainedAt,
		Forest:       f,
	}, nil
}
