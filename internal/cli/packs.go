/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cutlayout/internal/domain"
	"cutlayout/internal/imagepack"
	"cutlayout/internal/seed"
)

func (a *app) packsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Install and export image packs",
	}
	cmd.AddCommand(a.packsInstallCmd(), a.packsExportCmd())
	return cmd
}

func (a *app) assetsDir(flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(a.cfg.General.Workspace, "assets")
}

func (a *app) packsInstallCmd() *cobra.Command {
	var assets string
	cmd := &cobra.Command{
		Use:   "install <zip>",
		Short: "Extract a pack archive and add it to the seed layout",
		Long: `Install extracts the images of a pack archive under the assets folder.
When a seed file is configured the pack is appended to it, so the next
session starts with the replenished images.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, n, err := imagepack.Install(args[0], a.assetsDir(assets))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s: %d images, %d files extracted\n", g.ID, len(g.Items), n)
			if a.cfg.Editor.SeedFile == "" {
				return nil
			}
			doc, st, err := a.loadLayout()
			if err != nil {
				return err
			}
			next, err := st.AddPack(g)
			if err != nil {
				return err
			}
			f, err := seed.FormatFor(a.cfg.Editor.SeedFile)
			if err != nil {
				return err
			}
			if err := writeSeed(a.cfg.Editor.SeedFile, seed.FromStore(doc.AdID, next), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", g.ID, a.cfg.Editor.SeedFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&assets, "assets", "", "assets folder (default <workspace>/assets)")
	return cmd
}

func (a *app) packsExportCmd() *cobra.Command {
	var assets string
	cmd := &cobra.Command{
		Use:   "export <pack-id> <zip>",
		Short: "Write a pack of the layout to a zip archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := a.loadLayout()
			if err != nil {
				return err
			}
			g, ok := st.Group(args[0])
			if !ok || g.Kind != domain.KindPack {
				return errors.New("no pack with id " + args[0])
			}
			if err := imagepack.Export(g, a.assetsDir(assets), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d images)\n", args[1], len(g.Items))
			return nil
		},
	}
	cmd.Flags().StringVar(&assets, "assets", "", "assets folder (default <workspace>/assets)")
	return cmd
}
