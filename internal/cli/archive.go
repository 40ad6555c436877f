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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cutlayout/internal/storage"
)

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and prune archived exports",
	}
	cmd.AddCommand(a.archiveListCmd(), a.archiveShowCmd(), a.archivePruneCmd())
	return cmd
}

func (a *app) withArchive(fn func(*storage.Archive) error) error {
	ar, err := storage.OpenArchive(a.cfg.General.Workspace)
	if err != nil {
		return err
	}
	defer func() { _ = ar.Close() }()
	return fn(ar)
}

func (a *app) archiveListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived exports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(func(ar *storage.Archive) error {
				list, err := ar.ListExports(cmd.Context(), limit)
				if err != nil {
					return err
				}
				schema, err := ar.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s (schema %d)\n", ar.Path(), schema)
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tAD\tCREATED\tCUTS\tITEMS")
				for _, e := range list {
					fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\n", e.ID, e.AdID, e.CreatedAt.UTC().Format(time.RFC3339), e.Sections, e.Items)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to list")
	return cmd
}

func (a *app) archiveShowCmd() *cobra.Command {
	var adID int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the latest archived record of an ad",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(func(ar *storage.Archive) error {
				e, ok, err := ar.LatestExport(cmd.Context(), adID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no export archived for ad %d", adID)
				}
				_, err = cmd.OutOrStdout().Write(append(e.Payload, '\n'))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&adID, "ad-id", 0, "ad id")
	return cmd
}

func (a *app) archivePruneCmd() *cobra.Command {
	var (
		adID int
		keep int
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop all but the newest archived exports of an ad",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1")
			}
			return a.withArchive(func(ar *storage.Archive) error {
				n, err := ar.PruneExports(cmd.Context(), adID, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d exports of ad %d\n", n, adID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&adID, "ad-id", 0, "ad id")
	cmd.Flags().IntVar(&keep, "keep", 1, "number of newest exports to keep")
	return cmd
}
