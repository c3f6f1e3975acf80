package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // 时间重力
	WeightUpvote   float64
	WeightBookmark float64
	WeightUsed     float64
	WeightComment  float64
	ScaleFactor    float64
}

var DefaultRankConfig = RankConfig{
	Gravity:        1.5,
	WeightUpvote:   1.0,
	WeightBookmark: 3.0,
	WeightUsed:     3.0,
	WeightComment:  2.0,
	ScaleFactor:    100.0,
}

// HotScore 对互动加权求和后做对数平滑，再按发布时长衰减
func HotScore(createdAt, now time.Time, upvotes, bookmarks, used, comments int64) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(upvotes)*DefaultRankConfig.WeightUpvote +
		float64(bookmarks)*DefaultRankConfig.WeightBookmark +
		float64(used)*DefaultRankConfig.WeightUsed +
		float64(comments)*DefaultRankConfig.WeightComment
	if weightedSum < 0 {
		weightedSum = 0
	}

	numerator := math.Log10(weightedSum+1) * DefaultRankConfig.ScaleFactor
	decay := math.Pow(hours+2, DefaultRankConfig.Gravity)
	return numerator / decay
}
