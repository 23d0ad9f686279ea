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

package feature

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// WeightProfile maps feature groups to positive multipliers. Missing groups weigh 1.
type WeightProfile map[string]float32

// NewWeightProfile creates the neutral profile.
func NewWeightProfile() WeightProfile {
	profile := make(WeightProfile, len(Names))
	for _, name := range Names {
		profile[name] = 1
	}
	return profile
}

// Get the weight of a feature group.
func (w WeightProfile) Get(name string) float32 {
	if weight, exist := w[name]; exist {
		return weight
	}
	return 1
}

// Set the weight of a feature group.
func (w WeightProfile) Set(name string, weight float32) error {
	if err := validateWeight(name, weight); err != nil {
		return err
	}
	w[name] = weight
	return nil
}

func (w WeightProfile) Validate() error {
	for name, weight := range w {
		if err := validateWeight(name, weight); err != nil {
			return err
		}
	}
	return nil
}

func validateWeight(name string, weight float32) error {
	if !lo.Contains(Names, name) {
		return errors.NotValidf("feature %q (expect one of %s)", name, strings.Join(Names, ", "))
	}
	if weight <= 0 || math32.IsNaN(weight) || math32.IsInf(weight, 0) {
		return errors.NotValidf("weight %v of feature %s", weight, name)
	}
	return nil
}

// Copy returns a complete profile with every group present.
func (w WeightProfile) Copy() WeightProfile {
	profile := make(WeightProfile, len(Names))
	for _, name := range Names {
		profile[name] = w.Get(name)
	}
	return profile
}

// Equal compares effective weights.
func (w WeightProfile) Equal(other WeightProfile) bool {
	for _, name := range Names {
		if w.Get(name) != other.Get(name) {
			return false
		}
	}
	return true
}

func (w WeightProfile) String() string {
	return strings.Join(lo.Map(Names, func(name string, _ int) string {
		return fmt.Sprintf("%s=%g", name, w.Get(name))
	}), " ")
}
