package reaction

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/catalog-service/internal/app/catalog/entity"
)

func kindsOf(edges []Edge, userID uuid.UUID) []entity.ReactionKind {
	var kinds []entity.ReactionKind
	for _, e := range edges {
		if e.UserID == userID {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}

func TestToggle_AddLike(t *testing.T) {
	user := uuid.New()

	next, out := Toggle(nil, user, entity.ReactionLike)

	assert.Equal(t, ChangeAdded, out.Change)
	assert.Nil(t, out.Removed)
	require.NotNil(t, out.Added)
	assert.Equal(t, entity.ReactionLike, out.Added.Kind)
	assert.Equal(t, []Edge{{UserID: user, Kind: entity.ReactionLike}}, next)
}

func TestToggle_SameKindRemoves(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	edges := []Edge{
		{UserID: other, Kind: entity.ReactionDislike},
		{UserID: user, Kind: entity.ReactionLike},
	}

	next, out := Toggle(edges, user, entity.ReactionLike)

	assert.Equal(t, ChangeRemoved, out.Change)
	assert.Nil(t, out.Added)
	require.NotNil(t, out.Removed)
	assert.Equal(t, user, out.Removed.UserID)
	assert.Equal(t, []Edge{{UserID: other, Kind: entity.ReactionDislike}}, next)
}

func TestToggle_OppositeKindSwitches(t *testing.T) {
	user := uuid.New()
	edges := []Edge{{UserID: user, Kind: entity.ReactionDislike}}

	next, out := Toggle(edges, user, entity.ReactionLike)

	assert.Equal(t, ChangeSwitched, out.Change)
	assert.Equal(t, entity.ReactionDislike, out.Removed.Kind)
	assert.Equal(t, entity.ReactionLike, out.Added.Kind)
	assert.Equal(t, []entity.ReactionKind{entity.ReactionLike}, kindsOf(next, user))
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	user := uuid.New()
	edges := []Edge{{UserID: user, Kind: entity.ReactionLike}}

	_, _ = Toggle(edges, user, entity.ReactionDislike)

	assert.Equal(t, []Edge{{UserID: user, Kind: entity.ReactionLike}}, edges)
}

func TestToggle_DoubleToggleRestoresState(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	start := []Edge{{UserID: b, Kind: entity.ReactionDislike}}

	for _, kind := range []entity.ReactionKind{entity.ReactionLike, entity.ReactionDislike} {
		once, _ := Toggle(start, a, kind)
		twice, _ := Toggle(once, a, kind)

		assert.ElementsMatch(t, start, twice)
		assert.Equal(t, Recount(start), Recount(twice))
	}
}

// Любая последовательность переключений оставляет не больше одного ребра на пользователя,
// а счётчики совпадают с количеством рёбер
func TestToggle_RandomSequencesKeepInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	kinds := []entity.ReactionKind{entity.ReactionLike, entity.ReactionDislike}

	var edges []Edge
	for i := 0; i < 500; i++ {
		user := users[rnd.Intn(len(users))]
		edges, _ = Toggle(edges, user, kinds[rnd.Intn(len(kinds))])

		for _, u := range users {
			assert.LessOrEqual(t, len(kindsOf(edges, u)), 1)
		}

		counters := Recount(edges)
		assert.Equal(t, len(edges), counters.LikesCount+counters.DislikesCount)
		assert.True(t, counters.IsBestRated != counters.IsWorstRated)
		if counters.LikesCount == counters.DislikesCount {
			assert.True(t, counters.IsBestRated)
		}
	}
}

func TestDerive_Flags(t *testing.T) {
	tests := []struct {
		name     string
		likes    int
		dislikes int
		best     bool
		worst    bool
	}{
		{"fresh", 0, 0, true, false},
		{"more likes", 3, 1, true, false},
		{"tie", 2, 2, true, false},
		{"more dislikes", 1, 2, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Derive(tt.likes, tt.dislikes)

			assert.Equal(t, tt.likes, r.LikesCount)
			assert.Equal(t, tt.dislikes, r.DislikesCount)
			assert.Equal(t, tt.best, r.IsBestRated)
			assert.Equal(t, tt.worst, r.IsWorstRated)
		})
	}
}

// A лайкает, затем дизлайкает товар; B лайкает
func TestToggle_Scenario(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	edges, _ := Toggle(nil, a, entity.ReactionLike)
	assert.Equal(t, entity.Reactions{LikesCount: 1, DislikesCount: 0, IsBestRated: true, IsWorstRated: false}, Recount(edges))

	edges, _ = Toggle(edges, a, entity.ReactionDislike)
	assert.Equal(t, entity.Reactions{LikesCount: 0, DislikesCount: 1, IsBestRated: false, IsWorstRated: true}, Recount(edges))

	edges, _ = Toggle(edges, b, entity.ReactionLike)
	assert.Equal(t, entity.Reactions{LikesCount: 1, DislikesCount: 1, IsBestRated: true, IsWorstRated: false}, Recount(edges))
}

func TestSnapshot_Drifted(t *testing.T) {
	user := uuid.New()
	s := Snapshot{
		EntityID: uuid.New(),
		Stored:   Derive(0, 0),
		Edges:    []Edge{{UserID: user, Kind: entity.ReactionDislike}},
	}

	actual, drifted := s.Drifted()
	assert.True(t, drifted)
	assert.Equal(t, Derive(0, 1), actual)

	s.Stored = actual
	_, drifted = s.Drifted()
	assert.False(t, drifted)
}
