package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_radar/app/trend_radar/pkg/model"
)

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func snap(offset time.Duration, items ...model.RawItem) model.Snapshot {
	return model.Snapshot{Timestamp: base.Add(offset), Items: items}
}

func TestMerge_DedupAcrossSnapshots(t *testing.T) {
	a := snap(0, model.RawItem{SourceID: "weibo", Title: "X", Rank: 3, HotValue: 50})
	b := snap(time.Hour, model.RawItem{SourceID: "weibo", Title: "X", Rank: 1, HotValue: 80})

	got := Merge(nil, []model.Snapshot{a, b})
	require.Len(t, got, 1)
	assert.Equal(t, model.AggregatedItem{SourceID: "weibo", Title: "X", Rank: 1, HotValue: 80}, got[0])
}

func TestMerge_Reconciliation(t *testing.T) {
	a := snap(0, model.RawItem{SourceID: "weibo", Title: "K", Rank: 5, HotValue: 300})
	b := snap(time.Hour, model.RawItem{SourceID: "weibo", Title: "K", Rank: 2, HotValue: 100})

	got := Merge(nil, []model.Snapshot{a, b})
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Rank)
	assert.Equal(t, 300.0, got[0].HotValue)
}

func TestMerge_MissingRankNeverOverwrites(t *testing.T) {
	current := []model.RawItem{{SourceID: "zhihu", Title: "Q"}}
	older := snap(0, model.RawItem{SourceID: "zhihu", Title: "Q", Rank: 4})

	got := Merge(current, []model.Snapshot{older})
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Rank)
	assert.Zero(t, got[0].HotValue)
}

func TestMerge_Idempotent(t *testing.T) {
	current := []model.RawItem{
		{SourceID: "weibo", SourceName: "微博热搜", Title: "A", Rank: 1, HotValue: 10, URL: "u1"},
		{SourceID: "weibo", SourceName: "微博热搜", Title: "B", Rank: 2},
		{SourceID: "zhihu", SourceName: "知乎热榜", Title: "A", Rank: 1, MobileURL: "m1"},
	}

	alone := Merge(current, nil)
	withSelf := Merge(current, []model.Snapshot{snap(0, current...)})
	twice := Merge(current, []model.Snapshot{snap(0, current...), snap(time.Minute, current...)})

	assert.ElementsMatch(t, alone, withSelf)
	assert.ElementsMatch(t, alone, twice)
}

func TestMerge_Commutative(t *testing.T) {
	a := snap(0,
		model.RawItem{SourceID: "weibo", SourceName: "微博", Title: "X", Rank: 3, HotValue: 50, URL: "old"},
		model.RawItem{SourceID: "douyin", Title: "D", Rank: 7},
	)
	b := snap(time.Hour,
		model.RawItem{SourceID: "weibo", SourceName: "微博热搜", Title: "X", Rank: 1, HotValue: 20, URL: "new"},
	)
	c := snap(2*time.Hour,
		model.RawItem{SourceID: "douyin", SourceName: "抖音热榜", Title: "D", HotValue: 999},
		model.RawItem{SourceID: "weibo", Title: "Y", Rank: 9},
	)

	orders := [][]model.Snapshot{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	want := Merge(nil, orders[0])
	for _, o := range orders[1:] {
		assert.ElementsMatch(t, want, Merge(nil, o))
	}

	byTitle := map[string]model.AggregatedItem{}
	for _, it := range want {
		byTitle[it.Title] = it
	}
	// 描述性字段取最新观测
	assert.Equal(t, "微博热搜", byTitle["X"].SourceName)
	assert.Equal(t, "new", byTitle["X"].URL)
	assert.Equal(t, "抖音热榜", byTitle["D"].SourceName)
	assert.Equal(t, 7, byTitle["D"].Rank)
	assert.Equal(t, 999.0, byTitle["D"].HotValue)
}

func TestMerge_SameTimestampOrderIndependent(t *testing.T) {
	a := snap(time.Hour,
		model.RawItem{SourceID: "weibo", SourceName: "B", Title: "X", Rank: 4, URL: "ub"},
		model.RawItem{SourceID: "zhihu", Title: "Z", Rank: 2},
	)
	b := snap(time.Hour,
		model.RawItem{SourceID: "weibo", SourceName: "A", Title: "X", Rank: 2, HotValue: 10, URL: "ua", MobileURL: "m"},
	)
	older := snap(0, model.RawItem{SourceID: "weibo", SourceName: "0", Title: "X", URL: "u0"})

	ab := Merge(nil, []model.Snapshot{a, b, older})
	ba := Merge(nil, []model.Snapshot{older, b, a})
	require.Len(t, ab, 2)
	assert.Equal(t, ab, ba)

	assert.Equal(t, model.AggregatedItem{
		SourceID: "weibo", SourceName: "A", Title: "X", Rank: 2, HotValue: 10, URL: "ua", MobileURL: "m",
	}, ab[0])
}

func TestMerge_CurrentFieldsPreferred(t *testing.T) {
	current := []model.RawItem{{SourceID: "weibo", SourceName: "微博热搜", Title: "X", URL: "now"}}
	older := snap(0, model.RawItem{SourceID: "weibo", SourceName: "微博", Title: "X", URL: "then", MobileURL: "m"})

	got := Merge(current, []model.Snapshot{older})
	require.Len(t, got, 1)
	assert.Equal(t, "now", got[0].URL)
	// 空字段由旧观测补齐
	assert.Equal(t, "m", got[0].MobileURL)
	assert.Equal(t, "微博热搜", got[0].SourceName)
}

func TestMerge_EmptyTitleDropped(t *testing.T) {
	current := []model.RawItem{
		{SourceID: "weibo", Title: ""},
		{SourceID: "weibo", Title: "ok", Rank: 1},
	}
	old := snap(0, model.RawItem{SourceID: "zhihu", Title: "", Rank: 1, HotValue: 99})

	got, stats := MergeWithStats(current, []model.Snapshot{old})
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Title)
	assert.Equal(t, Stats{Inputs: 3, Dropped: 2, Snapshots: 1, Distinct: 1}, stats)
}

func TestMerge_SameTitleDifferentSources(t *testing.T) {
	current := []model.RawItem{
		{SourceID: "weibo", Title: "X", Rank: 1},
		{SourceID: "zhihu", Title: "X", Rank: 2},
	}
	assert.Len(t, Merge(current, nil), 2)
}

func TestMerge_SourceNameFallbackKey(t *testing.T) {
	old := snap(0, model.RawItem{SourceName: "微博", Title: "X", Rank: 3})
	cur := []model.RawItem{{SourceName: "微博", Title: "X", Rank: 1}}

	got := Merge(cur, []model.Snapshot{old})
	require.Len(t, got, 1)
	assert.Equal(t, "微博", got[0].SourceID)
	assert.Equal(t, 1, got[0].Rank)
}

func TestMerge_Empty(t *testing.T) {
	got := Merge(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Merge(nil, []model.Snapshot{snap(0), snap(time.Hour)})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMerge_DoesNotReorderCallerWindow(t *testing.T) {
	window := []model.Snapshot{snap(0), snap(time.Hour)}
	Merge(nil, window)
	assert.True(t, window[0].Timestamp.Before(window[1].Timestamp))
}
