package catalog

import (
	"testing"

	"github.com/jacquesd/jacques/internal/transcript"
)

func plansFixture(title, body string) transcript.Plan {
	return transcript.Plan{Title: title, Source: transcript.PlanSourceEmbedded, Body: body}
}

func TestEncodeProjectPathReplacesSeparatorsWithDashes(t *testing.T) {
	// Only the encoding direction is checked: decoding is lossy and picks
	// among candidate paths by which of them exist on disk.
	encoded := EncodeProjectPath("/home/user/proj")
	if encoded != "-home-user-proj" {
		t.Fatalf("unexpected encoding: %s", encoded)
	}
}

func TestContentHashIgnoresTrailingWhitespaceAndBlankRuns(t *testing.T) {
	a := "# Title  \n\nStep one.\n\n\nStep two."
	b := "# Title\n\nStep one.\n\nStep two.\n"
	if contentHash(a) != contentHash(b) {
		t.Fatal("expected whitespace-only differences to hash identically")
	}
}

func TestContentHashDiffersForDifferentBodies(t *testing.T) {
	if contentHash("# A\nstep one") == contentHash("# B\nstep two") {
		t.Fatal("expected different plan bodies to hash differently")
	}
}

func TestMergePlanDeduplicatesByTitleAndHash(t *testing.T) {
	idx := &ProjectIndex{}
	plan := plansFixture("Ship the feature", "do the thing")

	id1 := mergePlan(idx, "session-a", plan)
	id2 := mergePlan(idx, "session-b", plan)

	if id1 != id2 {
		t.Fatalf("expected identical plan to dedupe to same id, got %s and %s", id1, id2)
	}
	if len(idx.Plans) != 1 {
		t.Fatalf("expected 1 deduplicated plan, got %d", len(idx.Plans))
	}
	if len(idx.Plans[0].SessionIDs) != 2 {
		t.Fatalf("expected union of session ids, got %v", idx.Plans[0].SessionIDs)
	}
}
