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

package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// GenreCount counts labels of samples with a genre.
type GenreCount struct {
	Genre    string
	Positive int
	Negative int
}

// GenreTrend is the genre counts of samples annotated within a month.
type GenreTrend struct {
	Period time.Time
	Genres []GenreCount
}

// TopGenres returns the n genres most frequent among positive samples, with their negative
// counts. A negative n returns all genres.
func (d *Dataset) TopGenres(n int) []GenreCount {
	positive, negative := NewFreqDict(), NewFreqDict()
	for i, item := range d.items {
		for _, genre := range lo.Uniq(item.Genres) {
			genre = strings.TrimSpace(genre)
			if genre == "" {
				continue
			}
			if d.labels[i] == Positive {
				positive.Id(genre)
				negative.NotCount(genre)
			} else {
				positive.NotCount(genre)
				negative.Id(genre)
			}
		}
	}
	return lo.Map(positive.Top(n), func(id int, _ int) GenreCount {
		genre, _ := positive.String(id)
		return GenreCount{
			Genre:    genre,
			Positive: positive.Freq(id),
			Negative: negative.Freq(negative.NotCount(genre)),
		}
	})
}

// GenreTrend buckets samples by the month they were annotated in and counts genres per bucket.
// Buckets are ordered by time and genres by name.
func (d *Dataset) GenreTrend() []GenreTrend {
	buckets := make(map[time.Time]map[string]*GenreCount)
	for i, item := range d.items {
		timestamp := d.timestamps[i].UTC()
		period := time.Date(timestamp.Year(), timestamp.Month(), 1, 0, 0, 0, 0, time.UTC)
		bucket, exist := buckets[period]
		if !exist {
			bucket = make(map[string]*GenreCount)
			buckets[period] = bucket
		}
		for _, genre := range lo.Uniq(item.Genres) {
			genre = strings.TrimSpace(genre)
			if genre == "" {
				continue
			}
			count, exist := bucket[genre]
			if !exist {
				count = &GenreCount{Genre: genre}
				bucket[genre] = count
			}
			if d.labels[i] == Positive {
				count.Positive++
			} else {
				count.Negative++
			}
		}
	}
	trends := make([]GenreTrend, 0, len(buckets))
	for period, bucket := range buckets {
		counts := lo.Map(lo.Values(bucket), func(c *GenreCount, _ int) GenreCount { return *c })
		sort.Slice(counts, func(i, j int) bool { return counts[i].Genre < counts[j].Genre })
		trends = append(trends, GenreTrend{Period: period, Genres: counts})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Period.Before(trends[j].Period) })
	return trends
}
