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

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/dataset"
	"github.com/mangarec/mangarec/engine"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the current ratings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		if jobs, _ := cmd.Flags().GetInt("jobs"); jobs > 0 {
			e.FitConfig.SetJobs(jobs)
		}
		ctx, cancel := signalContext()
		defer cancel()
		start := time.Now()
		record, err := e.Train(withProgressBar(ctx))
		if err != nil {
			var insufficient *dataset.InsufficientDataError
			if errors.As(err, &insufficient) {
				fmt.Fprintln(os.Stderr, insufficient.Error())
				os.Exit(1)
			}
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
		fmt.Printf("Trained model %s on %d positive and %d negative ratings (%v)\n",
			record.ID, record.Positive, record.Negative, time.Since(start).Round(time.Millisecond))
		fmt.Printf("Out-of-bag: AUC = %.4f, accuracy = %.4f, precision = %.4f, recall = %.4f\n",
			record.Score.AUC, record.Score.Accuracy, record.Score.Precision, record.Score.Recall)
	},
}

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Search hyper-parameters by out-of-bag AUC",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		trials, _ := cmd.Flags().GetInt("trials")
		ctx, cancel := signalContext()
		defer cancel()
		result, err := e.Tune(ctx, trials)
		if err != nil {
			log.Logger().Fatal("failed to tune model", zap.Error(err))
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Param", "Value")
		for name, value := range result.Params {
			_ = table.Append([]string{string(name), fmt.Sprint(value)})
		}
		_ = table.Append([]string{"AUC", strconv.FormatFloat(float64(result.Score.AUC), 'f', 4, 32)})
		_ = table.Render()
	},
}

var importanceCommand = &cobra.Command{
	Use:   "importance",
	Short: "Show feature importances of the current model",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		importances, err := e.Importance(cmd.Context())
		if err != nil {
			exitIfNotTrained(err)
			log.Logger().Fatal("failed to load model", zap.Error(err))
		}
		n, _ := cmd.Flags().GetInt("n")
		if n > 0 && n < len(importances) {
			importances = importances[:n]
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Feature", "Group", "Importance")
		for _, importance := range importances {
			_ = table.Append([]string{
				importance.Name,
				importance.Group,
				strconv.FormatFloat(float64(importance.Importance), 'f', 4, 32),
			})
		}
		_ = table.Render()
	},
}

// exitIfNotTrained prints the error and exits if err means there is no usable model.
func exitIfNotTrained(err error) {
	var notTrained *engine.ModelNotTrainedError
	if errors.As(err, &notTrained) {
		fmt.Fprintln(os.Stderr, notTrained.Error())
		os.Exit(1)
	}
}

func init() {
	rootCommand.AddCommand(trainCommand, tuneCommand, importanceCommand)
	trainCommand.Flags().Int("jobs", 0, "number of jobs for model fitting, 0 uses the configured value")
	tuneCommand.Flags().Int("trials", 20, "number of trials")
	importanceCommand.Flags().IntP("n", "n", 20, "number of features to show, 0 shows all")
}
