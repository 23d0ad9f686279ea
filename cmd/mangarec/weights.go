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
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/mangarec/mangarec/base/encoding"
	"github.com/mangarec/mangarec/base/log"
	"github.com/mangarec/mangarec/model/feature"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var weightsCommand = &cobra.Command{
	Use:   "weights",
	Short: "Show or change feature weights",
}

var weightsGetCommand = &cobra.Command{
	Use:   "get",
	Short: "Show feature weights",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		weights, err := e.GetWeights(cmd.Context())
		if err != nil {
			log.Logger().Fatal("failed to load weights", zap.Error(err))
		}
		printWeights(weights)
	},
}

var weightsSetCommand = &cobra.Command{
	Use:   "set <name=weight>...",
	Short: "Change feature weights",
	Long: `Change the multipliers of numeric features (score, chapters, recency).
Genre and type indicators are not weighted.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		updates, err := parseWeights(args)
		if err != nil {
			log.Logger().Fatal("invalid weights", zap.Error(err))
		}
		e := openEngine(cmd)
		defer e.Close()
		weights, err := e.SetWeights(cmd.Context(), updates)
		if err != nil {
			log.Logger().Fatal("failed to set weights", zap.Error(err))
		}
		printWeights(weights)
	},
}

var weightsResetCommand = &cobra.Command{
	Use:   "reset",
	Short: "Restore configured feature weights",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEngine(cmd)
		defer e.Close()
		if err := e.ResetWeights(cmd.Context()); err != nil {
			log.Logger().Fatal("failed to reset weights", zap.Error(err))
		}
	},
}

func parseWeights(args []string) (map[string]float32, error) {
	updates := make(map[string]float32, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found {
			return nil, errors.NotValidf("weight %q", arg)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			return nil, errors.Annotatef(err, "parse weight %q", arg)
		}
		updates[strings.TrimSpace(name)] = float32(weight)
	}
	return updates, nil
}

func printWeights(weights feature.WeightProfile) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Feature", "Weight")
	for _, name := range feature.Names {
		_ = table.Append([]string{name, encoding.FormatFloat32(weights.Get(name))})
	}
	_ = table.Render()
}

func init() {
	rootCommand.AddCommand(weightsCommand)
	weightsCommand.AddCommand(weightsGetCommand, weightsSetCommand, weightsResetCommand)
}
