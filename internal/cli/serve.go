/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cutlayout/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr   string
		sinks  string
		preset string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing session over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ms, err := a.openSinks(sinks, preset)
			if err != nil {
				return err
			}
			defer func() { _ = ms.Close() }()

			sess, err := a.newSession(ms)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			h := server.New(sess, server.Options{Archive: ms.Archive(), ExportDir: ms.FileDir()}).Handler()
			return server.ListenAndServe(ctx, addr, h, time.Duration(a.cfg.Server.ReadTimeoutMs)*time.Millisecond)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&sinks, "sinks", "", "comma separated sinks: log, file, archive")
	cmd.Flags().StringVar(&preset, "preset", "", "sink preset: console, local, archive")
	return cmd
}
