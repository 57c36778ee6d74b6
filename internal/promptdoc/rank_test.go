package promptdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_ScenarioD_DuplicateIDPriority(t *testing.T) {
	items := []RankItem{
		{Runtime: Runtime{ID: "x", Status: StatusDraft, Version: "1.0.0"}, FilePath: "common/x.yaml"},
		{Runtime: Runtime{ID: "x", Status: StatusStable, Version: "1.0.1"}, FilePath: "laravel/x.yaml"},
	}
	ranked := Rank(items)
	assert.Equal(t, "laravel/x.yaml", ranked[0].FilePath)
}

func TestRank_VersionNumericCompare(t *testing.T) {
	items := []RankItem{
		{Runtime: Runtime{ID: "a", Status: StatusStable, Version: "1.9.0"}},
		{Runtime: Runtime{ID: "a", Status: StatusStable, Version: "1.10.0"}},
	}
	ranked := Rank(items)
	assert.Equal(t, "1.10.0", ranked[0].Runtime.Version)
}

func TestRank_SourceKindTiebreak(t *testing.T) {
	items := []RankItem{
		{Runtime: Runtime{ID: "a", Status: StatusStable, Version: "1.0.0", Source: SourceEmbedded}},
		{Runtime: Runtime{ID: "a", Status: StatusStable, Version: "1.0.0", Source: SourceRegistry}},
	}
	ranked := Rank(items)
	assert.Equal(t, SourceRegistry, ranked[0].Runtime.Source)
}

func TestRank_IdempotentOnUnchangedTree(t *testing.T) {
	items := []RankItem{
		{Runtime: Runtime{ID: "b", Status: StatusStable, Version: "1.0.0"}},
		{Runtime: Runtime{ID: "a", Status: StatusStable, Version: "1.0.0"}},
	}
	first := Rank(items)
	second := Rank(items)
	assert.Equal(t, first, second)
	assert.Equal(t, "a", first[0].Runtime.ID)
}

func TestResolveWinners_UserBeatsSystemOnConflict(t *testing.T) {
	user := []RankItem{{Runtime: Runtime{ID: "common-tool", Status: StatusLegacy, Version: "", RuntimeState: StateLegacy}}}
	system := []RankItem{{Runtime: Runtime{ID: "common-tool", Status: StatusStable, Version: "9.0.0", RuntimeState: StateActive}, IsSystemSource: true}}

	winners := ResolveWinners(user, system)
	assert.Len(t, winners, 1)
	assert.False(t, winners[0].IsSystemSource)
}

func TestResolveWinners_SystemOnlyIDsStillRegistered(t *testing.T) {
	user := []RankItem{{Runtime: Runtime{ID: "user-tool", Status: StatusStable, Version: "1.0.0", RuntimeState: StateActive}}}
	system := []RankItem{{Runtime: Runtime{ID: "common-tool", Status: StatusStable, Version: "1.0.0", RuntimeState: StateActive}, IsSystemSource: true}}

	winners := ResolveWinners(user, system)
	assert.Len(t, winners, 2)
}

func TestResolveWinners_IneligibleItemNeverOutranksAnEligibleOne(t *testing.T) {
	user := []RankItem{
		{Runtime: Runtime{ID: "dup", Status: StatusDraft, Version: "1.0.0", RuntimeState: StateActive}, FilePath: "a.yaml"},
		{Runtime: Runtime{ID: "dup", Status: StatusStable, Version: "9.0.0", RuntimeState: StateInvalid}, FilePath: "b.yaml"},
	}
	winners := ResolveWinners(user, nil)
	assert.Len(t, winners, 1)
	assert.Equal(t, "a.yaml", winners[0].FilePath)
}
