// Package categorizer 负责舆情事件的分类分组与展示排序。
package categorizer

import (
	"sort"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/taxonomy"
)

// MissingRank 缺失排名在排序时视为该值，排在同平台末尾
const MissingRank = 9999

// Buckets 类别到事件列表的映射
type Buckets map[taxonomy.Category][]model.Topic

// GroupByCategory 将事件放入对应类别，类别非法的归入兜底类别。
// 桶内保持事件的原始相对顺序。
func GroupByCategory(topics []model.Topic) Buckets {
	buckets := make(Buckets)
	for _, t := range topics {
		t.Category = taxonomy.Normalize(string(t.Category))
		buckets[t.Category] = append(buckets[t.Category], t)
	}
	return buckets
}

// RepresentativeHeat 类别的代表热度，即桶内最高的 heat_score
func RepresentativeHeat(topics []model.Topic) float64 {
	var heat float64
	for _, t := range topics {
		if t.HeatScore > heat {
			heat = t.HeatScore
		}
	}
	return heat
}

// OrderCategories 按代表热度降序排列类别，热度相同按分类表顺序，空桶不出现
func OrderCategories(buckets Buckets) []taxonomy.Category {
	out := make([]taxonomy.Category, 0, len(buckets))
	heat := make(map[taxonomy.Category]float64, len(buckets))
	// 遍历分类表而不是 map，保证稳定
	for _, c := range taxonomy.All() {
		topics := buckets[c]
		if len(topics) == 0 {
			continue
		}
		out = append(out, c)
		heat[c] = RepresentativeHeat(topics)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return heat[out[i]] > heat[out[j]]
	})
	return out
}

// OrderRawRows 按平台优先级排序原始条目，未列出的平台排在最后，同平台按排名升序。
// 排序是稳定的，不修改入参。
func OrderRawRows(items []model.AggregatedItem, priority []string) []model.AggregatedItem {
	pos := make(map[string]int, len(priority))
	for i, id := range priority {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	platformIndex := func(id string) int {
		if i, ok := pos[id]; ok {
			return i
		}
		return len(priority)
	}

	out := make([]model.AggregatedItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := platformIndex(out[i].SourceID), platformIndex(out[j].SourceID)
		if pi != pj {
			return pi < pj
		}
		return rankKey(out[i].Rank) < rankKey(out[j].Rank)
	})
	return out
}

func rankKey(rank int) int {
	if rank <= 0 {
		return MissingRank
	}
	return rank
}
