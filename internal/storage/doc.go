/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists export records.
// It writes JSON documents atomically (temp file + rename) with timestamped backups of the replaced file.
// It also manages the per-workspace SQLite archive at <workspace>/.cut/archive.sqlite that keeps every exported record.
// Layout state itself is never persisted here; the archive only holds what was handed to downstream consumers.
package storage
