// catalog/catalog.go
package catalog

import (
	"sort"

	"github.com/HSouheill/matrix_backend/models"
)

// levels is the static plan/level table. Loaded once, read-only.
var levels = []models.LevelDefinition{
	{PackageName: models.PlanThree, LevelNumber: 1, Price: 10, Slots: 3, CyclesToFreeze: 2},
	{PackageName: models.PlanThree, LevelNumber: 2, Price: 20, Slots: 3, CyclesToFreeze: 2},
	{PackageName: models.PlanThree, LevelNumber: 3, Price: 30, Slots: 3, CyclesToFreeze: 2},
	{PackageName: models.PlanThree, LevelNumber: 4, Price: 40, Slots: 3, CyclesToFreeze: 2},
	{PackageName: models.PlanThree, LevelNumber: 5, Price: 50, Slots: 3, CyclesToFreeze: 2},
	{PackageName: models.PlanThree, LevelNumber: 6, Price: 60, Slots: 3, CyclesToFreeze: 2},

	{PackageName: models.PlanSix, LevelNumber: 1, Price: 10, Slots: 6, CyclesToFreeze: 1},
	{PackageName: models.PlanSix, LevelNumber: 2, Price: 40, Slots: 6, CyclesToFreeze: 1},
	{PackageName: models.PlanSix, LevelNumber: 3, Price: 70, Slots: 6, CyclesToFreeze: 1},
	{PackageName: models.PlanSix, LevelNumber: 4, Price: 100, Slots: 6, CyclesToFreeze: 1},
	{PackageName: models.PlanSix, LevelNumber: 5, Price: 130, Slots: 6, CyclesToFreeze: 1},
	{PackageName: models.PlanSix, LevelNumber: 6, Price: 160, Slots: 6, CyclesToFreeze: 1},
}

// Lookup returns the definition for (packageName, levelNumber)
func Lookup(packageName string, levelNumber int) (models.LevelDefinition, bool) {
	for _, l := range levels {
		if l.PackageName == packageName && l.LevelNumber == levelNumber {
			return l, true
		}
	}
	return models.LevelDefinition{}, false
}

// ListAll returns the level definitions for a plan, ordered by level
// number. An empty packageName returns every plan.
func ListAll(packageName string) []models.LevelDefinition {
	out := make([]models.LevelDefinition, 0, len(levels))
	for _, l := range levels {
		if packageName == "" || l.PackageName == packageName {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PackageName != out[j].PackageName {
			return out[i].PackageName < out[j].PackageName
		}
		return out[i].LevelNumber < out[j].LevelNumber
	})
	return out
}
