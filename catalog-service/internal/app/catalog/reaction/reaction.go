// Package reaction содержит единый для товаров и отзывов алгоритм
// переключения лайка/дизлайка и пересчёта производных полей.
// Пакет не делает I/O: репозиторий загружает рёбра одной сущности,
// вызывает Toggle и сохраняет результат.
package reaction

import (
	"github.com/google/uuid"

	"storefront/catalog-service/internal/app/catalog/entity"
)

// Edge - реакция одного пользователя на одну сущность
type Edge struct {
	UserID uuid.UUID
	Kind   entity.ReactionKind
}

// Change описывает, что произошло с рёбрами пользователя
type Change string

const (
	ChangeAdded    Change = "added"
	ChangeRemoved  Change = "removed"
	ChangeSwitched Change = "switched"
)

// Outcome - результат переключения. Removed и Added применяются
// в одной транзакции, сначала удаление.
type Outcome struct {
	Change  Change
	Removed *Edge
	Added   *Edge
}

// Toggle применяет реакцию kind пользователя userID к набору рёбер одной сущности:
//   - есть ребро того же вида - оно удаляется;
//   - иначе добавляется ребро kind, а ребро противоположного вида (если было) удаляется.
//
// Входной срез не изменяется.
func Toggle(edges []Edge, userID uuid.UUID, kind entity.ReactionKind) ([]Edge, Outcome) {
	next := make([]Edge, 0, len(edges)+1)
	var existing *Edge

	for _, e := range edges {
		if e.UserID == userID {
			if existing == nil {
				found := e
				existing = &found
			}
			continue
		}
		next = append(next, e)
	}

	if existing != nil && existing.Kind == kind {
		return next, Outcome{Change: ChangeRemoved, Removed: existing}
	}

	added := Edge{UserID: userID, Kind: kind}
	next = append(next, added)

	if existing != nil {
		return next, Outcome{Change: ChangeSwitched, Removed: existing, Added: &added}
	}
	return next, Outcome{Change: ChangeAdded, Added: &added}
}

// Recount пересчитывает производные поля из рёбер
func Recount(edges []Edge) entity.Reactions {
	var likes, dislikes int
	for _, e := range edges {
		switch e.Kind {
		case entity.ReactionLike:
			likes++
		case entity.ReactionDislike:
			dislikes++
		}
	}
	return Derive(likes, dislikes)
}

// Derive строит производные поля по счётчикам. При равенстве товар считается best rated.
func Derive(likes, dislikes int) entity.Reactions {
	return entity.Reactions{
		LikesCount:    likes,
		DislikesCount: dislikes,
		IsBestRated:   likes >= dislikes,
		IsWorstRated:  dislikes > likes,
	}
}

// Snapshot - сохранённые счётчики сущности вместе с её рёбрами.
// Используется при полной сверке.
type Snapshot struct {
	EntityID uuid.UUID
	Stored   entity.Reactions
	Version  int64 // version строки на момент чтения счётчиков
	Edges    []Edge
}

// Drifted сообщает, разошлись ли сохранённые счётчики с рёбрами,
// и возвращает правильные значения
func (s Snapshot) Drifted() (entity.Reactions, bool) {
	actual := Recount(s.Edges)
	return actual, actual != s.Stored
}
