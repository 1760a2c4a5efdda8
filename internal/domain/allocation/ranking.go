package allocation

import (
	"slices"
	"sort"

	"github.com/Spok95/stock-planner/internal/domain/demand"
)

// Rank возвращает строки спроса в порядке распределения: класс приоритета
// (High, Medium, Low), затем средняя выручка в день по убыванию, затем ранг по возрастанию.
func Rank(lines []demand.Line) []demand.Line {
	out := slices.Clone(lines)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PriorityClass.Order() != b.PriorityClass.Order() {
			return a.PriorityClass.Order() < b.PriorityClass.Order()
		}
		if a.DailyAvgSales != b.DailyAvgSales {
			return a.DailyAvgSales > b.DailyAvgSales
		}
		return a.PriorityRank < b.PriorityRank
	})
	return out
}
