// Package aggregator 把当前抓取结果与时间窗口内的历史快照合并成去重后的条目列表。
//
// 同一 (source_id, title) 只保留一条：排名取最小值，热度取最大值。
// 合并满足交换律与幂等性，重复合并同一份快照不会改变结果。
package aggregator

import (
	"sort"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
)

// Stats 一次合并的统计信息，用于日志
type Stats struct {
	Inputs    int // 参与合并的原始条目数
	Dropped   int // 因标题为空被丢弃的条目数
	Snapshots int // 参与合并的快照数
	Distinct  int // 去重后的条目数
}

// Merge 合并当前条目与窗口内快照，永远返回非 nil 的切片
func Merge(current []model.RawItem, window []model.Snapshot) []model.AggregatedItem {
	items, _ := MergeWithStats(current, window)
	return items
}

// MergeWithStats 同 Merge，额外返回统计信息。
//
// 描述性字段（展示名、链接）取最新一次观测：先折叠当前条目，再按时间从新到旧折叠快照，
// 已有的非空字段不会被覆盖。抓取时间相同的快照视为同一次观测，先在组内合并，
// 冲突的非空值取字典序较小者。因此输出与调用方传入快照的顺序无关。
func MergeWithStats(current []model.RawItem, window []model.Snapshot) ([]model.AggregatedItem, Stats) {
	snaps := make([]model.Snapshot, len(window))
	copy(snaps, window)
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.After(snaps[j].Timestamp)
	})

	m := newMerger()
	m.foldGroup(current)
	for i := 0; i < len(snaps); {
		j := i + 1
		for j < len(snaps) && snaps[j].Timestamp.Equal(snaps[i].Timestamp) {
			j++
		}
		group := make([][]model.RawItem, 0, j-i)
		for _, s := range snaps[i:j] {
			group = append(group, s.Items)
		}
		m.foldGroup(group...)
		i = j
	}
	m.stats.Snapshots = len(snaps)

	out := make([]model.AggregatedItem, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, *m.byKey[k])
	}
	m.stats.Distinct = len(out)
	return out, m.stats
}

type merger struct {
	byKey map[model.Key]*model.AggregatedItem
	order []model.Key
	stats Stats
}

func newMerger() *merger {
	return &merger{byKey: make(map[model.Key]*model.AggregatedItem)}
}

// foldGroup 折叠同一时刻的一组观测：组内先合并成每个 key 一条，再并入总结果
func (m *merger) foldGroup(lists ...[]model.RawItem) {
	group := make(map[model.Key]*model.RawItem)
	var order []model.Key
	for _, items := range lists {
		for _, it := range items {
			m.stats.Inputs++
			if it.Title == "" {
				m.stats.Dropped++
				continue
			}
			k := it.Key()
			g, ok := group[k]
			if !ok {
				cp := it
				group[k] = &cp
				order = append(order, k)
				continue
			}
			pickSmaller(&g.SourceName, it.SourceName)
			pickSmaller(&g.URL, it.URL)
			pickSmaller(&g.MobileURL, it.MobileURL)
			g.Rank = betterRank(g.Rank, it.Rank)
			g.HotValue = max(g.HotValue, it.HotValue)
		}
	}

	// 多份同时刻快照时，key 的先后取决于入参顺序，按 key 排序后再并入
	if len(lists) > 1 {
		sort.Slice(order, func(i, j int) bool {
			if order[i].SourceID != order[j].SourceID {
				return order[i].SourceID < order[j].SourceID
			}
			return order[i].Title < order[j].Title
		})
	}
	for _, k := range order {
		m.fold(k, group[k])
	}
}

func (m *merger) fold(k model.Key, it *model.RawItem) {
	agg, ok := m.byKey[k]
	if !ok {
		agg = &model.AggregatedItem{SourceID: k.SourceID, Title: it.Title}
		m.byKey[k] = agg
		m.order = append(m.order, k)
	}

	fillEmpty(&agg.SourceName, it.SourceName)
	fillEmpty(&agg.URL, it.URL)
	fillEmpty(&agg.MobileURL, it.MobileURL)
	agg.Rank = betterRank(agg.Rank, it.Rank)
	agg.HotValue = max(agg.HotValue, it.HotValue)
}

// betterRank 取较小的正排名，0 表示缺失
func betterRank(cur, v int) int {
	if v > 0 && (cur == 0 || v < cur) {
		return v
	}
	return cur
}

func fillEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func pickSmaller(dst *string, v string) {
	if v != "" && (*dst == "" || v < *dst) {
		*dst = v
	}
}
