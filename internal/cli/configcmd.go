/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cutlayout/internal/config"
)

// overridable lists the config keys that environment variables can set.
var overridable = []string{
	"general.telemetry_opt_in", "general.workspace",
	"editor.ad_id", "editor.reference_dimension", "editor.actor", "editor.id_scheme", "editor.seed_file",
	"export.sinks", "export.out_dir", "export.keep_last",
	"server.addr",
	"logging.level", "logging.format", "logging.source", "logging.file",
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and manage the telemetry token",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# file: %s\n", path)
			var env []string
			for _, k := range overridable {
				if name, ok := config.EnvOverrideFor(k); ok {
					env = append(env, fmt.Sprintf("# %s from %s", k, name))
				}
			}
			sort.Strings(env)
			for _, line := range env {
				fmt.Fprintln(out, line)
			}
			if a.token != "" {
				fmt.Fprintln(out, "# telemetry token: set")
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	setToken := &cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the telemetry token in the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.SetToken(args[0])
		},
	}
	clearToken := &cobra.Command{
		Use:   "clear-token",
		Short: "Remove the telemetry token from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.ClearToken()
		},
	}
	cmd.AddCommand(show, setToken, clearToken)
	return cmd
}
