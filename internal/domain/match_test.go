package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(id string, skills, wants []string) *Profile {
	return &Profile{ID: id, Name: "User " + id, Skills: skills, WantsToLearn: wants}
}

func matchIDs(ms []MatchCandidate) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestComputeMatches_MutualSwap(t *testing.T) {
	a := profile("a", []string{"Python"}, []string{"Design"})
	b := profile("b", []string{"Design"}, []string{"Python"})

	got := ComputeMatches(a, []*Profile{b})

	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 2, got[0].MatchScore)
	assert.ElementsMatch(t, []string{"Design", "Python"}, got[0].CommonSkills)
}

func TestComputeMatches_Scoring(t *testing.T) {
	tests := []struct {
		name       string
		self       *Profile
		candidate  *Profile
		wantScore  int
		wantCommon []string
	}{
		{
			name:       "one direction only",
			self:       profile("a", nil, []string{"Go", "Rust"}),
			candidate:  profile("b", []string{"Go"}, nil),
			wantScore:  1,
			wantCommon: []string{"Go"},
		},
		{
			name:       "same skill both ways counts twice",
			self:       profile("a", []string{"SQL"}, []string{"SQL"}),
			candidate:  profile("b", []string{"SQL"}, []string{"SQL"}),
			wantScore:  2,
			wantCommon: []string{"SQL"},
		},
		{
			name:       "duplicate labels collapse",
			self:       profile("a", nil, []string{"Go", "Go"}),
			candidate:  profile("b", []string{"Go", "Go"}, nil),
			wantScore:  1,
			wantCommon: []string{"Go"},
		},
		{
			name:       "labels are case sensitive",
			self:       profile("a", []string{"go"}, []string{"Figma"}),
			candidate:  profile("b", []string{"Figma"}, []string{"Go"}),
			wantScore:  1,
			wantCommon: []string{"Figma"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeMatches(tt.self, []*Profile{tt.candidate})
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantScore, got[0].MatchScore)
			assert.Equal(t, tt.wantCommon, got[0].CommonSkills)
		})
	}
}

func TestComputeMatches_ScoreIsSumOfDirections(t *testing.T) {
	self := profile("a", []string{"Go", "SQL", "Figma"}, []string{"Rust", "Design", "Go"})
	candidate := profile("b", []string{"Rust", "Go", "Excel"}, []string{"SQL", "Figma", "Python"})

	got := ComputeMatches(self, []*Profile{candidate})

	require.Len(t, got, 1)
	// teaching {Rust, Go} + learning {SQL, Figma}
	assert.Equal(t, 4, got[0].MatchScore)
	assert.Equal(t, []string{"Rust", "Go", "SQL", "Figma"}, got[0].CommonSkills)
}

func TestComputeMatches_ExcludesSelfAndZeroScores(t *testing.T) {
	self := profile("a", []string{"Go"}, []string{"Design"})
	candidates := []*Profile{
		self,
		profile("b", []string{"Cooking"}, []string{"Knitting"}),
		profile("c", []string{"Design"}, nil),
		nil,
	}

	got := ComputeMatches(self, candidates)

	assert.Equal(t, []string{"c"}, matchIDs(got))
}

func TestComputeMatches_StableDescendingOrder(t *testing.T) {
	self := profile("a", []string{"Go", "SQL"}, []string{"Design", "Figma"})
	candidates := []*Profile{
		profile("one-1", []string{"Design"}, nil),
		profile("three", []string{"Design", "Figma"}, []string{"Go"}),
		profile("one-2", nil, []string{"SQL"}),
		profile("two", []string{"Figma"}, []string{"Go"}),
		profile("one-3", []string{"Figma"}, nil),
	}

	got := ComputeMatches(self, candidates)

	assert.Equal(t, []string{"three", "two", "one-1", "one-2", "one-3"}, matchIDs(got))
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].MatchScore, got[i].MatchScore)
	}
}

func TestComputeMatches_TruncatesToMax(t *testing.T) {
	self := profile("a", []string{"Go"}, []string{"Design"})
	var candidates []*Profile
	for i := 0; i < MaxMatches+5; i++ {
		candidates = append(candidates, profile(fmt.Sprintf("u%02d", i), []string{"Design"}, nil))
	}
	// a higher scoring candidate at the end still makes the cut
	candidates = append(candidates, profile("best", []string{"Design"}, []string{"Go"}))

	got := ComputeMatches(self, candidates)

	require.Len(t, got, MaxMatches)
	assert.Equal(t, "best", got[0].ID)
	assert.Equal(t, "u00", got[1].ID)
}

func TestComputeMatches_Defaults(t *testing.T) {
	self := profile("a", nil, []string{"Design"})
	c := profile("b", []string{"Design"}, nil)

	got := ComputeMatches(self, []*Profile{c})

	require.Len(t, got, 1)
	assert.Equal(t, "No bio available", got[0].Bio)
	assert.Equal(t, []string{}, got[0].WantsToLearn)
	assert.Empty(t, ComputeMatches(nil, []*Profile{c}))
}

func TestFilterVisible(t *testing.T) {
	self := profile("a", []string{"Go"}, []string{"Design"})
	var candidates []*Profile
	for _, id := range []string{"b", "c", "d", "e", "f"} {
		candidates = append(candidates, profile(id, []string{"Design"}, nil))
	}
	ranked := ComputeMatches(self, candidates)

	connections := []*Connection{
		{ID: "c1", User1ID: "b", User2ID: "a"},
		{ID: "c2", User1ID: "x", User2ID: "y"},
	}
	requests := []*ConnectionRequest{
		{ID: "r1", FromUserID: "c", ToUserID: "a", Status: RequestStatusPending},
		{ID: "r2", FromUserID: "a", ToUserID: "d", Status: RequestStatusPending},
	}
	passed := []string{"e", "e"}

	got := FilterVisible("a", ranked, connections, requests, passed)

	assert.Equal(t, []string{"f"}, matchIDs(got))
	assert.Len(t, ranked, 5, "input is not modified")
}

func TestFilterVisible_PassIsOneSided(t *testing.T) {
	a := profile("a", []string{"Python"}, []string{"Design"})
	b := profile("b", []string{"Design"}, []string{"Python"})

	forA := FilterVisible("a", ComputeMatches(a, []*Profile{b}), nil, nil, []string{"b"})
	forB := FilterVisible("b", ComputeMatches(b, []*Profile{a}), nil, nil, nil)

	assert.Empty(t, forA)
	assert.Equal(t, []string{"a"}, matchIDs(forB))
}

func TestFilterVisible_AfterTruncation(t *testing.T) {
	self := profile("a", []string{"Go"}, []string{"Design"})
	var candidates []*Profile
	var passed []string
	for i := 0; i < MaxMatches+3; i++ {
		id := fmt.Sprintf("u%02d", i)
		candidates = append(candidates, profile(id, []string{"Design"}, nil))
		if i < 3 {
			passed = append(passed, id)
		}
	}

	got := FilterVisible("a", ComputeMatches(self, candidates), nil, nil, passed)

	assert.Len(t, got, MaxMatches-3)
}
