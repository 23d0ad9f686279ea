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
	"fmt"

	"github.com/juju/errors"
)

// ErrModelNotTrained is matched by every *ModelNotTrainedError.
var ErrModelNotTrained = errors.New("model not trained")

// ModelNotTrainedError means recommendations were requested without a usable model.
type ModelNotTrainedError struct {
	Reason string
}

func (e *ModelNotTrainedError) Error() string {
	return fmt.Sprintf("model not trained: %s, run `mangarec train` first", e.Reason)
}

func (e *ModelNotTrainedError) Unwrap() error {
	return ErrModelNotTrained
}
