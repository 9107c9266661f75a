package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jacquesd/jacques/internal/transcript"
)

// Progress reports an extraction pass's status to an optional callback.
type Progress struct {
	Total     int
	Completed int
	Current   string
	Skipped   int
	Errors    int
}

// ExtractOptions controls one extraction pass.
type ExtractOptions struct {
	Force      bool
	OnProgress func(Progress)
}

// Indexer owns the per-project write-lock registry used by every mutating
// operation below.
type Indexer struct {
	locks *writeLocks
}

func NewIndexer() *Indexer {
	return &Indexer{locks: newWriteLocks()}
}

// ExtractProjectCatalog walks every transcript file for projectDir, deciding
// per file whether to re-extract: force, or transcript mtime newer than the
// session manifest's recorded jsonlModifiedAt.
func (ix *Indexer) ExtractProjectCatalog(projectDir string, opts ExtractOptions) error {
	return withProjectLock(ix.locks, projectDir, func() error {
		idx, err := LoadProjectIndex(projectDir)
		if err != nil {
			return err
		}

		files, err := transcriptFilesForProject(projectDir)
		if err != nil {
			return err
		}

		progress := Progress{Total: len(files)}
		report := func() {
			if opts.OnProgress != nil {
				opts.OnProgress(progress)
			}
		}

		manifestByID := make(map[string]SessionManifest, len(idx.Sessions))
		for _, m := range idx.Sessions {
			manifestByID[m.ID] = m
		}

		for _, path := range files {
			progress.Current = path
			info, statErr := os.Stat(path)
			if statErr != nil {
				progress.Errors++
				progress.Completed++
				report()
				continue
			}

			sessionID := sessionIDFromPath(path)
			existing, seen := manifestByID[sessionID]
			if !opts.Force && seen && !info.ModTime().After(existing.JSONLModifiedAt) {
				progress.Skipped++
				progress.Completed++
				report()
				continue
			}

			if err := ix.extractOneTranscript(idx, projectDir, sessionID, path, info.ModTime()); err != nil {
				progress.Errors++
			}
			progress.Completed++
			report()
		}

		idx.UpdatedAt = time.Now()
		return SaveProjectIndex(projectDir, idx)
	})
}

func (ix *Indexer) extractOneTranscript(idx *ProjectIndex, projectDir, sessionID, path string, modTime time.Time) error {
	outcome, err := transcript.ParseFrom(path, 0)
	if err != nil {
		return err
	}

	stats := transcript.GetEntryStatistics(outcome.Entries)
	plansDir := filepath.Join(projectDir, ".jacques", "plans")
	detected := transcript.DetectModeAndPlans(outcome.Entries, plansDir)

	var planIDs []string
	for _, p := range detected {
		id := mergePlan(idx, sessionID, p)
		planIDs = append(planIDs, id)
	}

	mergeSubagents(idx, sessionID, outcome.Entries)

	manifest := SessionManifest{
		ID:              sessionID,
		StartedAt:       firstTimestamp(outcome.Entries),
		MessageCount:    stats.CountsByType[transcript.EntryUserMessage] + stats.CountsByType[transcript.EntryAssistantMessage],
		ToolCallCount:   stats.CountsByType[transcript.EntryToolCall],
		PlanIDs:         planIDs,
		SavedAt:         time.Now(),
		JSONLModifiedAt: modTime,
	}
	replaceManifest(idx, manifest)
	return nil
}

func firstTimestamp(entries []transcript.Entry) time.Time {
	for _, e := range entries {
		if !e.Timestamp.IsZero() {
			return e.Timestamp
		}
	}
	return time.Time{}
}

func replaceManifest(idx *ProjectIndex, m SessionManifest) {
	for i, existing := range idx.Sessions {
		if existing.ID == m.ID {
			idx.Sessions[i] = m
			return
		}
	}
	idx.Sessions = append(idx.Sessions, m)
}

// mergePlan deduplicates plans by (title, content-hash) per invariant iv:
// an identical plan produced in multiple sessions appears once with a
// union of session-ids. A colliding title with different content gets a
// versioned filename.
func mergePlan(idx *ProjectIndex, sessionID string, p transcript.Plan) string {
	hash := contentHash(p.Body)

	for i := range idx.Plans {
		existing := &idx.Plans[i]
		if existing.Title == p.Title && existing.ContentHash == hash {
			if !containsString(existing.SessionIDs, sessionID) {
				existing.SessionIDs = append(existing.SessionIDs, sessionID)
			}
			existing.UpdatedAt = time.Now()
			return existing.ID
		}
	}

	filename := slugify(p.Title) + ".md"
	version := 2
	for titleCollides(idx.Plans, p.Title, filename) {
		filename = fmt.Sprintf("%s-%d.md", slugify(p.Title), version)
		version++
	}

	newPlan := Plan{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Filename:    filename,
		ContentHash: hash,
		SessionIDs:  []string{sessionID},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	idx.Plans = append(idx.Plans, newPlan)
	return newPlan.ID
}

func titleCollides(plans []Plan, title, filename string) bool {
	for _, p := range plans {
		if p.Filename == filename && p.Title == title {
			return true
		}
	}
	return false
}

func mergeSubagents(idx *ProjectIndex, sessionID string, entries []transcript.Entry) {
	for _, e := range entries {
		if e.Type != transcript.EntryAgentProgress {
			continue
		}
		ref := SubagentRef{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Type:      SubagentGeneral,
			Title:     e.Text,
			Timestamp: e.Timestamp,
		}
		idx.Subagents = append(idx.Subagents, ref)
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "plan"
	}
	return slug
}

// contentHash canonicalises a plan body before hashing (trim trailing
// per-line whitespace, collapse blank-line runs, normalize CRLF, drop
// trailing newlines) so whitespace-only re-saves hash identically.
func contentHash(body string) string {
	canonical := canonicalizePlanBody(body)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func canonicalizePlanBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	var out []string
	blankRun := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if blankRun {
				continue
			}
			blankRun = true
		} else {
			blankRun = false
		}
		out = append(out, trimmed)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

func transcriptFilesForProject(projectDir string) ([]string, error) {
	encoded := EncodeProjectPath(projectDir)
	root, err := ProjectsRoot()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, encoded)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func sessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

// ExtractAllCatalogs iterates every project directory under the assistant's
// projects root and extracts each.
func (ix *Indexer) ExtractAllCatalogs(opts ExtractOptions) error {
	root, err := ProjectsRoot()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		projectDir := DecodeProjectPath(e.Name())
		if err := ix.ExtractProjectCatalog(projectDir, opts); err != nil {
			continue
		}
	}
	return nil
}

// BuildSessionIndex walks every transcript, preferring each project's
// catalog (when fresh) over a fresh transcript parse, and writes the
// result to ~/.jacques/session-index.json.
func (ix *Indexer) BuildSessionIndex(onProgress func(Progress)) error {
	root, err := ProjectsRoot()
	if err != nil {
		return err
	}
	projectDirs, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return SaveGlobalSessionIndex(&GlobalSessionIndex{LastScanned: time.Now()})
	}
	if err != nil {
		return err
	}

	var entries []SessionEntry
	progress := Progress{Total: len(projectDirs)}
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		progress.Current = pd.Name()
		projectDir := DecodeProjectPath(pd.Name())

		idx, err := LoadProjectIndex(projectDir)
		if err != nil {
			idx = &ProjectIndex{}
		}
		manifestByID := make(map[string]SessionManifest, len(idx.Sessions))
		for _, m := range idx.Sessions {
			manifestByID[m.ID] = m
		}

		files, _ := transcriptFilesForProject(projectDir)
		for _, path := range files {
			sessionID := sessionIDFromPath(path)
			info, statErr := os.Stat(path)
			if statErr != nil {
				continue
			}

			entry := SessionEntry{
				SessionID:           sessionID,
				Source:              "claude_code",
				Project:             filepath.Base(projectDir),
				TranscriptPath:      path,
				TranscriptSizeBytes: info.Size(),
			}

			if manifest, ok := manifestByID[sessionID]; ok && !info.ModTime().After(manifest.JSONLModifiedAt) {
				entry.StartedAt = manifest.StartedAt
				entry.TotalInputTokens = 0 // catalog-first fast path: the manifest records no token totals, so they stay zero
			} else {
				outcome, err := transcript.ParseFrom(path, 0)
				if err == nil {
					stats := transcript.GetEntryStatistics(outcome.Entries)
					entry.TotalInputTokens = stats.TotalInputTokens
					entry.TotalOutputTokens = stats.TotalOutputTokens
					entry.StartedAt = firstTimestamp(outcome.Entries)
				}
			}
			entries = append(entries, entry)
		}
		progress.Completed++
		if onProgress != nil {
			onProgress(progress)
		}
	}

	return SaveGlobalSessionIndex(&GlobalSessionIndex{Sessions: entries, LastScanned: time.Now()})
}
