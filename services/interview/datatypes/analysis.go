// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// AnalysisCache is the structured summary of an ingested repository plus the
// full file contents retained for later snippet extraction. It is built once
// per analyze call; a subsequent analyze replaces it wholesale. Its lifetime
// equals the owning session's.
type AnalysisCache struct {
	// EntryPoints lists paths that look like program entry points.
	EntryPoints []string `json:"main_entry_points"`

	// Dependencies maps a file path to the paths it depends on.
	Dependencies map[string][]string `json:"dependencies"`

	// Patterns lists architectural or design patterns the model identified.
	Patterns []string `json:"patterns"`

	// Libraries lists third-party libraries in use.
	Libraries []string `json:"libraries_used"`

	// Summary is the free-text overview of the repository.
	Summary string `json:"summary"`

	// FileContents retains the full content of every ingested file, keyed by
	// path. Snippet extraction reads from here, independent of which files
	// were sampled into the analysis prompt.
	FileContents map[string]string `json:"file_contents"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}
