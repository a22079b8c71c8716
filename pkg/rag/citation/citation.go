package citation

import (
	"regexp"
	"sort"
	"strconv"
)

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Cited 回答中引用到的来源编号(1-based)，去重并按出现顺序排列，丢弃越界编号
func Cited(answer string, total int) []int {
	var (
		cited []int
		seen  = make(map[int]bool)
	)
	for _, m := range markerRe.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > total || seen[n] {
			continue
		}
		seen[n] = true
		cited = append(cited, n)
	}
	return cited
}

// Reconcile 只保留回答实际引用的来源，并把角标按原编号升序重新编号为 1..n。
// 没有任何有效角标时返回空来源，表示回答没有使用资料。
func Reconcile[T any](answer string, sources []T) (string, []T) {
	cited := Cited(answer, len(sources))
	if len(cited) == 0 {
		return answer, []T{}
	}

	sort.Ints(cited)
	mapping := make(map[int]int, len(cited))
	used := make([]T, 0, len(cited))
	for i, old := range cited {
		mapping[old] = i + 1
		used = append(used, sources[old-1])
	}

	rewritten := markerRe.ReplaceAllStringFunc(answer, func(marker string) string {
		n, err := strconv.Atoi(marker[1 : len(marker)-1])
		if err != nil {
			return marker
		}
		if to, ok := mapping[n]; ok {
			return "[" + strconv.Itoa(to) + "]"
		}
		return marker
	})

	return rewritten, used
}
