// Package taxonomy 定义舆情事件的固定分类（《十大舆情分类》加兜底类别）。
//
// 分类集合是封闭的，声明顺序即规范顺序：分类排序时热度相同的类别按此顺序决胜，
// 渲染层与分类器共用同一张表。
package taxonomy

import "strings"

// Category 舆情类别
type Category string

const (
	Economy       Category = "经济类舆论"
	Emergency     Category = "突发事件舆论"
	RuleOfLaw     Category = "法治类舆论"
	Entertainment Category = "文娱类舆论"
	SciEdu        Category = "科教类舆论"
	International Category = "国际关系类舆论"
	Health        Category = "健康类舆论"
	Governance    Category = "治理类舆论"
	Livelihood    Category = "民生类舆论"
	Environment   Category = "生态环境类舆论"
	Other         Category = "其他"
)

// CatchAll 无法识别的类别统一归入此处
const CatchAll = Other

var ordered = [...]Category{
	Economy,
	Emergency,
	RuleOfLaw,
	Entertainment,
	SciEdu,
	International,
	Health,
	Governance,
	Livelihood,
	Environment,
	Other,
}

var index = func() map[Category]int {
	m := make(map[Category]int, len(ordered))
	for i, c := range ordered {
		m[c] = i
	}
	return m
}()

// All 按规范顺序返回全部类别（返回副本）
func All() []Category {
	out := make([]Category, len(ordered))
	copy(out, ordered[:])
	return out
}

// Size 类别总数
func Size() int { return len(ordered) }

// Normalize 将任意字符串映射到分类表，未知或空值归入兜底类别
func Normalize(s string) Category {
	c := Category(strings.TrimSpace(s))
	if _, ok := index[c]; ok {
		return c
	}
	return CatchAll
}

// Index 类别在规范顺序中的位置；未知类别按兜底类别处理
func Index(c Category) int {
	if i, ok := index[c]; ok {
		return i
	}
	return index[CatchAll]
}

// Valid 是否为分类表中的类别
func (c Category) Valid() bool {
	_, ok := index[c]
	return ok
}

func (c Category) String() string { return string(c) }
