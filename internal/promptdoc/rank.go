package promptdoc

import "sort"

// RankItem is one eligible document entering the PriorityRanker (§4.7).
type RankItem struct {
	Runtime        Runtime
	FilePath       string
	IsSystemSource bool
}

func statusWeight(s PromptStatus) int {
	switch s {
	case StatusStable:
		return 4
	case StatusDraft:
		return 3
	case StatusDeprecated:
		return 2
	case StatusLegacy:
		return 1
	default:
		return 0
	}
}

func sourceWeight(s Source) int {
	switch s {
	case SourceRegistry:
		return 3
	case SourceEmbedded:
		return 2
	case SourceLegacy:
		return 1
	default:
		return 0
	}
}

// Rank imposes the §4.7 total order over items, highest priority first:
// status, then version (numeric, missing components as 0), then source
// kind, then lexicographic id as a stable tiebreaker. The sort is stable,
// so two items tied on all four criteria keep their relative input order.
func Rank(items []RankItem) []RankItem {
	out := make([]RankItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Runtime, out[j].Runtime
		if sw1, sw2 := statusWeight(a.Status), statusWeight(b.Status); sw1 != sw2 {
			return sw1 > sw2
		}
		if c := compareVersions(a.Version, b.Version); c != 0 {
			return c > 0
		}
		if srw1, srw2 := sourceWeight(a.Source), sourceWeight(b.Source); srw1 != srw2 {
			return srw1 > srw2
		}
		return a.ID < b.ID
	})
	return out
}

// ResolveWinners walks a ranked (Rank-sorted) list of user-source items
// followed by system-source items, and returns the subset that wins a
// tool registration: exactly one item per id, user-source items always
// beating a system-source item with the same id, per §4.7's closing rule
// ("the user wins on conflict") and §4.3 (system source registers after
// user sources). Only items with runtime_state ∈ {active, legacy} compete
// for a win (§4.7) — an invalid/disabled/warning document must never
// out-rank and suppress an eligible one sharing its id.
func ResolveWinners(userItems, systemItems []RankItem) []RankItem {
	rankedUser := Rank(eligible(userItems))
	winners := make([]RankItem, 0, len(rankedUser))
	seen := make(map[string]bool, len(rankedUser))
	for _, it := range rankedUser {
		if seen[it.ID()] {
			continue
		}
		seen[it.ID()] = true
		winners = append(winners, it)
	}
	for _, it := range Rank(eligible(systemItems)) {
		if seen[it.ID()] {
			continue
		}
		seen[it.ID()] = true
		winners = append(winners, it)
	}
	return winners
}

func eligible(items []RankItem) []RankItem {
	out := make([]RankItem, 0, len(items))
	for _, it := range items {
		if it.Runtime.IsToolEligible() {
			out = append(out, it)
		}
	}
	return out
}

// ID is a convenience accessor used for dedup bookkeeping.
func (i RankItem) ID() string { return i.Runtime.ID }
