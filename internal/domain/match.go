package domain

import "sort"

// MaxMatches is the number of ranked candidates kept before visibility filtering
const MaxMatches = 20

const defaultBio = "No bio available"

// MatchCandidate is another user ranked against the acting user's profile
type MatchCandidate struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Bio          string   `json:"bio"`
	AvatarURL    string   `json:"avatarUrl,omitempty"`
	Skills       []string `json:"skills"`
	WantsToLearn []string `json:"wantsToLearn"`
	MatchScore   int      `json:"matchScore"`
	CommonSkills []string `json:"commonSkills"`
}

// ComputeMatches scores every candidate against self and returns the top
// MaxMatches with a positive score, highest first. Equal scores keep the
// candidates' input order.
//
// The score counts a skill once per direction, so a label that self can both
// teach and learn from the candidate scores 2 while appearing once in
// CommonSkills.
func ComputeMatches(self *Profile, candidates []*Profile) []MatchCandidate {
	matches := []MatchCandidate{}
	if self == nil {
		return matches
	}

	selfSkills := toSet(self.Skills)
	for _, c := range candidates {
		if c == nil || c.ID == self.ID {
			continue
		}

		teaching := intersect(self.WantsToLearn, toSet(c.Skills))
		learning := intersect(c.WantsToLearn, selfSkills)
		score := len(teaching) + len(learning)
		if score == 0 {
			continue
		}

		bio := c.Bio
		if bio == "" {
			bio = defaultBio
		}
		matches = append(matches, MatchCandidate{
			ID:           c.ID,
			Name:         c.Name,
			Bio:          bio,
			AvatarURL:    c.AvatarURL,
			Skills:       nonNil(c.Skills),
			WantsToLearn: nonNil(c.WantsToLearn),
			MatchScore:   score,
			CommonSkills: union(teaching, learning),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > MaxMatches {
		matches = matches[:MaxMatches]
	}
	return matches
}

// FilterVisible drops candidates that are already connected to self, have a
// pending request with self in either direction, or were passed by self.
// It runs on the already truncated ranking, so fewer than MaxMatches may remain.
func FilterVisible(selfID string, matches []MatchCandidate, connections []*Connection, requests []*ConnectionRequest, passedIDs []string) []MatchCandidate {
	passed := toSet(passedIDs)
	visible := make([]MatchCandidate, 0, len(matches))

	for _, m := range matches {
		if _, ok := passed[m.ID]; ok {
			continue
		}
		if isConnected(selfID, m.ID, connections) {
			continue
		}
		if hasPendingRequest(selfID, m.ID, requests) {
			continue
		}
		visible = append(visible, m)
	}
	return visible
}

func isConnected(a, b string, connections []*Connection) bool {
	for _, c := range connections {
		if c != nil && c.Links(a, b) {
			return true
		}
	}
	return false
}

func hasPendingRequest(a, b string, requests []*ConnectionRequest) bool {
	for _, r := range requests {
		if r == nil {
			continue
		}
		if (r.FromUserID == a && r.ToUserID == b) || (r.FromUserID == b && r.ToUserID == a) {
			return true
		}
	}
	return false
}

func toSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// intersect keeps the labels present in set, in order, without duplicates
func intersect(labels []string, set map[string]struct{}) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, l := range labels {
		if _, ok := set[l]; !ok {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, l := range list {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
