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

package logics

import (
	"reflect"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/juju/errors"
	"github.com/mangarec/mangarec/storage/catalog"
)

func normalizeGenre(genre string) string {
	return strings.ToLower(strings.TrimSpace(genre))
}

// FilterGenres returns candidates sharing no genre with banned, in their original order.
// Genres are compared case-insensitively after trimming spaces.
func FilterGenres(candidates []catalog.Item, banned []string) []catalog.Item {
	bannedSet := mapset.NewThreadUnsafeSet[string]()
	for _, genre := range banned {
		if genre = normalizeGenre(genre); genre != "" {
			bannedSet.Add(genre)
		}
	}
	filtered := make([]catalog.Item, 0, len(candidates))
	for _, item := range candidates {
		excluded := false
		for _, genre := range item.Genres {
			if bannedSet.Contains(normalizeGenre(genre)) {
				excluded = true
				break
			}
		}
		if !excluded {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// ItemView is the item seen by filter expressions. Unknown numbers are zero.
type ItemView struct {
	ItemId   string
	Title    string
	Genres   []string
	Type     string
	Chapters int
	Score    float64
	Year     int
}

func NewItemView(item catalog.Item) ItemView {
	view := ItemView{
		ItemId: item.ItemId,
		Title:  item.Title,
		Genres: item.Genres,
		Type:   item.Type.String(),
	}
	if item.Chapters != nil {
		view.Chapters = *item.Chapters
	}
	if item.Score != nil {
		view.Score = *item.Score
	}
	if item.Published != nil {
		view.Year = item.Published.Year()
	}
	return view
}

// Filter is a compiled boolean expression over an item, for example
// `item.Type == "manhwa" && item.Chapters > 50`.
type Filter struct {
	program *vm.Program
}

func NewFilter(filter string) (*Filter, error) {
	program, err := expr.Compile(filter, expr.Env(map[string]any{
		"item": ItemView{},
	}))
	if err != nil {
		return nil, errors.Annotatef(err, "compile filter %q", filter)
	}
	if program.Node().Type().Kind() != reflect.Bool {
		return nil, errors.Errorf("filter %q must return bool", filter)
	}
	return &Filter{program: program}, nil
}

func (f *Filter) Match(item catalog.Item) (bool, error) {
	result, err := expr.Run(f.program, map[string]any{
		"item": NewItemView(item),
	})
	if err != nil {
		return false, errors.Trace(err)
	}
	return result.(bool), nil
}
