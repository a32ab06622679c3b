package report

import (
	"math"
	"sort"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
)

// TopSpareParts 备件统计只保留前 N 项
const TopSpareParts = 10

// Bucket 计数项
type Bucket struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DelayBucket 停机时长汇总项
type DelayBucket struct {
	Label      string  `json:"label"`
	Hours      float64 `json:"hours"`
	Percentage float64 `json:"percentage"`
}

// Summary 统计分析结果（各分组按数量降序、同数量按名称升序）
type Summary struct {
	TotalRecords    int           `json:"totalRecords"`
	TotalDelayHours float64       `json:"totalDelayHours"`
	ByCategory      []Bucket      `json:"byCategory"`
	ByMachine       []Bucket      `json:"byMachine"`
	ByShift         []Bucket      `json:"byShift"`
	ByPriority      []Bucket      `json:"byPriority"`
	DelayByCategory []DelayBucket `json:"delayByCategory"`
	SpareParts      []Bucket      `json:"spareParts"`
	DistinctParts   int           `json:"distinctParts"`
}

// Summarize 汇总记录列表
func Summarize(records []domain.BreakdownRecord) Summary {
	category := map[string]int{}
	machine := map[string]int{}
	shift := map[string]int{}
	priority := map[string]int{}
	delay := map[string]float64{}
	var totalDelay float64

	for _, r := range records {
		category[r.Category]++
		machine[r.Machine]++
		shift[r.Shift]++
		priority[string(r.Priority)]++
		delay[r.Category] += float64(r.DelayTime)
		totalDelay += float64(r.DelayTime)
	}

	parts := SparePartCounts(records)
	partBuckets := buckets(parts)
	if len(partBuckets) > TopSpareParts {
		partBuckets = partBuckets[:TopSpareParts]
	}

	return Summary{
		TotalRecords:    len(records),
		TotalDelayHours: totalDelay,
		ByCategory:      buckets(category),
		ByMachine:       buckets(machine),
		ByShift:         buckets(shift),
		ByPriority:      buckets(priority),
		DelayByCategory: delayBuckets(delay, totalDelay),
		SpareParts:      partBuckets,
		DistinctParts:   len(parts),
	}
}

// SparePartCounts 统计每种备件出现的次数
func SparePartCounts(records []domain.BreakdownRecord) map[string]int {
	counts := map[string]int{}
	for _, r := range records {
		for _, part := range domain.ParseSpareParts(r.SpareParts) {
			counts[part]++
		}
	}
	return counts
}

func buckets(counts map[string]int) []Bucket {
	total := 0
	for _, n := range counts {
		total += n
	}

	out := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, Bucket{Label: label, Count: n, Percentage: percentage(float64(n), float64(total))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func delayBuckets(hours map[string]float64, total float64) []DelayBucket {
	out := make([]DelayBucket, 0, len(hours))
	for label, h := range hours {
		out = append(out, DelayBucket{Label: label, Hours: h, Percentage: percentage(h, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// percentage 保留一位小数
func percentage(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(part/total*1000) / 10
}
