/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"cutlayout/internal/seed"
	"cutlayout/internal/storage"
)

func (a *app) seedCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Print or write the current seed layout",
		Long: `Seed writes the configured layout (or the built-in demo layout) as a
seed document, ready to edit and pass back with --seed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := a.loadLayout()
			if err != nil {
				return err
			}
			if a.cfg.Editor.AdID != 0 {
				doc.AdID = a.cfg.Editor.AdID
			}
			f, err := resolveFormat(format, out)
			if err != nil {
				return err
			}
			if out == "" {
				return seed.Encode(cmd.OutOrStdout(), doc, f)
			}
			if err := writeSeed(out, doc, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "yaml or toml (default from --out extension, else yaml)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write instead of stdout")
	return cmd
}

func resolveFormat(format, path string) (seed.Format, error) {
	switch {
	case format != "":
		return seed.FormatFor(format)
	case path != "":
		return seed.FormatFor(path)
	default:
		return seed.FormatYAML, nil
	}
}

func writeSeed(path string, doc seed.Document, f seed.Format) error {
	var buf bytes.Buffer
	if err := seed.Encode(&buf, doc, f); err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, buf.Bytes())
}
