/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	applog "cutlayout/internal/log"
	"cutlayout/internal/seed"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		script    string
		sinks     string
		preset    string
		printJSON bool
		strict    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Replay a drop script on the layout and export the record",
		Long: `Export loads the layout, optionally replays a script of transfers
(a yaml or toml file with a top-level "steps" list), then serializes the
sections into an export record and hands it to the configured sinks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := a.openSinks(sinks, preset)
			if err != nil {
				return err
			}
			defer func() { _ = ms.Close() }()

			sess, err := a.newSession(ms)
			if err != nil {
				return err
			}
			if script != "" {
				steps, err := seed.LoadScript(script)
				if err != nil {
					return err
				}
				refused := 0
				for i, st := range steps {
					out := sess.Move(cmd.Context(), st.Move())
					if !out.Applied {
						refused++
						fmt.Fprintf(cmd.ErrOrStderr(), "step %d: %s -> %s refused: %s\n", i+1, st.Item, st.Target, out.Reason)
					}
				}
				applog.WithComponent("cli").Info("script replayed",
					slog.Int("steps", len(steps)), slog.Int("refused", refused))
				if strict && refused > 0 {
					return fmt.Errorf("%d of %d steps refused", refused, len(steps))
				}
			}

			rec, err := sess.Export(cmd.Context())
			if err != nil {
				return err
			}
			if printJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported ad %d: %d cuts, %d items via %s\n",
				rec.AdID, len(rec.CutLayouts.Updated), len(rec.CutContentItems.Updated), ms.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&script, "drops", "", "script of transfers to replay before exporting")
	cmd.Flags().StringVar(&sinks, "sinks", "", "comma separated sinks: log, file, archive")
	cmd.Flags().StringVar(&preset, "preset", "", "sink preset: console, local, archive")
	cmd.Flags().BoolVar(&printJSON, "print", false, "write the record JSON to stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a scripted step is refused")
	return cmd
}
