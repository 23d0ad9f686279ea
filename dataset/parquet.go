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
	"io"

	"github.com/juju/errors"
	"github.com/parquet-go/parquet-go"
	"github.com/samber/lo"
)

// Row is a labeled sample in the exported dataset.
type Row struct {
	ItemId      string    `parquet:"item_id"`
	Title       string    `parquet:"title"`
	Type        string    `parquet:"type"`
	Genres      []string  `parquet:"genres,list"`
	Score       *float64  `parquet:"score"`
	Chapters    *int64    `parquet:"chapters"`
	Published   *string   `parquet:"published"`
	Interest    string    `parquet:"interest"`
	Label       int32     `parquet:"label"`
	AnnotatedAt int64     `parquet:"annotated_at"`
	Features    []float32 `parquet:"features,list"`
}

// Rows converts samples to exported rows.
func (d *Dataset) Rows() []Row {
	rows := make([]Row, 0, d.Count())
	for i, item := range d.items {
		row := Row{
			ItemId:      item.ItemId,
			Title:       item.Title,
			Type:        item.Type.String(),
			Genres:      lo.Ternary(item.Genres == nil, []string{}, item.Genres),
			Score:       item.Score,
			Interest:    d.interests[i].String(),
			Label:       int32(d.labels[i]),
			AnnotatedAt: d.timestamps[i].UnixMilli(),
			Features:    d.vectors[i],
		}
		if item.Chapters != nil {
			row.Chapters = lo.ToPtr(int64(*item.Chapters))
		}
		if item.Published != nil {
			row.Published = lo.ToPtr(item.Published.UTC().Format("2006-01-02"))
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteParquet exports the labeled samples in Parquet format.
func (d *Dataset) WriteParquet(w io.Writer) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(d.Rows()); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(writer.Close())
}
