package baseline

import (
	"sort"

	"wisefido-guardian/internal/geofence"
	"wisefido-guardian/internal/models"
)

const (
	activeHoursLimit      = 6
	defaultStdDev         = 10.0
	defaultDailyStepsMean = 5000
	defaultDailyStepsStd  = 1500
	defaultHomeStayRatio  = 0.7
	dayLayout             = "2006-01-02"
)

// Summarize 计算学习窗口内样本的统计摘要
// 样本先按时间升序稳定排序，结果与输入顺序无关；按 UTC 日历日分组
func Summarize(subjectName string, samples []models.Sample, zones []models.Zone, days int) models.BaselineSummary {
	ordered := make([]models.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RecordedAt.Before(ordered[j].RecordedAt)
	})

	summary := models.BaselineSummary{
		SubjectName:  subjectName,
		Days:         days,
		TotalRecords: len(ordered),
	}
	if len(ordered) == 0 {
		summary.StepsMean = defaultDailyStepsMean
		summary.StepsStd = defaultDailyStepsStd
		summary.HomeRatio = defaultHomeStayRatio
		summary.HRStd = defaultStdDev
		summary.SystolicStd = defaultStdDev
		summary.DiastolicStd = defaultStdDev
		return summary
	}

	heartRates := make([]int, len(ordered))
	systolic := make([]int, len(ordered))
	diastolic := make([]int, len(ordered))
	for i, s := range ordered {
		heartRates[i] = s.HeartRate
		systolic[i] = s.SystolicBP
		diastolic[i] = s.DiastolicBP
	}

	// 心率 / 血压
	summary.HRMean, summary.HRStd = meanStd(heartRates)
	summary.HRMin, summary.HRMax = minMax(heartRates)
	summary.SystolicMean, summary.SystolicStd = meanStd(systolic)
	summary.SystolicMin, summary.SystolicMax = minMax(systolic)
	summary.DiastolicMean, summary.DiastolicStd = meanStd(diastolic)

	// 按天分组：步数为当日累计值，取每日最大值
	var dayOrder []string
	dailyMaxSteps := make(map[string]int)
	hourCounts := make(map[int]int)
	var hourOrder []int
	for _, s := range ordered {
		utc := s.RecordedAt.UTC()
		day := utc.Format(dayLayout)
		if maxSteps, ok := dailyMaxSteps[day]; !ok {
			dayOrder = append(dayOrder, day)
			dailyMaxSteps[day] = s.Steps
		} else if s.Steps > maxSteps {
			dailyMaxSteps[day] = s.Steps
		}

		h := utc.Hour()
		if _, ok := hourCounts[h]; !ok {
			hourOrder = append(hourOrder, h)
		}
		hourCounts[h]++
	}
	summary.DaysWithData = len(dayOrder)

	maxima := make([]float64, 0, len(dayOrder))
	for _, day := range dayOrder {
		maxima = append(maxima, float64(dailyMaxSteps[day]))
	}
	summary.StepsMean = int(mean(maxima))
	summary.StepsStd = defaultDailyStepsStd
	if len(maxima) > 1 {
		summary.StepsStd = int(sampleStdDev(maxima))
	}

	// 活跃时段：样本数最多的 6 个小时，数量相同按首次出现先后
	summary.ActiveHours = topByCount(hourOrder, hourCounts, activeHoursLimit)

	// 位置：在家比例以第一个区域为家
	summary.HomeRatio, summary.FrequentLocations = locationHabits(ordered, zones)

	return summary
}

// AssessDataQuality 数据质量等级
func AssessDataQuality(totalRecords, daysWithData int) models.DataQuality {
	switch {
	case totalRecords >= 500 && daysWithData >= 25:
		return models.DataQualityExcellent
	case totalRecords >= 200 && daysWithData >= 14:
		return models.DataQualityGood
	case totalRecords >= 50 && daysWithData >= 7:
		return models.DataQualityFair
	default:
		return models.DataQualityInsufficient
	}
}

// meanStd 均值与样本标准差，均保留一位小数；单个样本时标准差取 10
func meanStd(values []int) (float64, float64) {
	floats := toFloats(values)
	std := defaultStdDev
	if len(floats) > 1 {
		std = round1(sampleStdDev(floats))
	}
	return round1(mean(floats)), std
}

func locationHabits(samples []models.Sample, zones []models.Zone) (float64, []string) {
	active := models.ActiveZones(zones)

	homeCount := 0
	counts := make(map[string]int)
	var order []string
	for _, s := range samples {
		point := s.Point()
		if len(active) > 0 && geofence.Contains(active[0], point) {
			homeCount++
		}

		name := geofence.ResolveZoneName(point, active)
		if _, ok := counts[name]; !ok {
			order = append(order, name)
		}
		counts[name]++
	}

	return round2(float64(homeCount) / float64(len(samples))), topByCount(order, counts, len(order))
}

// topByCount 按出现次数降序取前 limit 个，次数相同保持 order 中的先后
func topByCount[K comparable](order []K, counts map[K]int, limit int) []K {
	ranked := make([]K, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
