package types

import "testing"

func TestFragmentKind_Valid(t *testing.T) {
	t.Parallel()

	for _, k := range AllFragmentKinds() {
		if !k.Valid() {
			t.Errorf("kind %s should be valid", k)
		}
	}
	if FragmentKind("paragraph").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestSourceKind_Valid(t *testing.T) {
	t.Parallel()

	for _, k := range DefaultPriorityOrder() {
		if !k.Valid() {
			t.Errorf("kind %s should be valid", k)
		}
	}
	if SourceKind("wiki").Valid() {
		t.Error("unknown source kind should be invalid")
	}
}

func TestCombinedContext_KindAndCount(t *testing.T) {
	t.Parallel()

	ctx := CombinedContext{
		Entities: []RankedFragment{
			{ContextFragment: ContextFragment{Content: "Metformin", Kind: FragmentEntity}, Rank: 1},
		},
		Chunks: []RankedFragment{
			{ContextFragment: ContextFragment{Content: "Metformin is first-line therapy", Kind: FragmentChunk}, Rank: 1},
			{ContextFragment: ContextFragment{Content: "HbA1c targets vary by age", Kind: FragmentChunk}, Rank: 2},
		},
	}

	if got := ctx.FragmentCount(); got != 3 {
		t.Fatalf("expected 3 fragments, got %d", got)
	}
	if got := len(ctx.Kind(FragmentChunk)); got != 2 {
		t.Fatalf("expected 2 chunks, got %d", got)
	}
	if ctx.Kind(FragmentRelationship) != nil {
		t.Fatal("expected nil slice for empty kind")
	}
}
