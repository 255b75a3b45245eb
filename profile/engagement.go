package profile

import (
	"sort"

	"github.com/bwalsh/subscout/models"
)

// Engagement holds the aggregate engagement metrics for a post sample
type Engagement struct {
	AvgUpvotes      float64
	MedianUpvotes   float64
	AvgComments     float64
	EngagementScore float64
}

// CalcEngagement computes engagement metrics over a sample of recent posts.
// An empty sample yields all zeros.
//
// The median takes the element at index n/2 of the ascending-sorted scores,
// which for even-sized samples is the upper of the two middle values rather
// than their average. Downstream data was collected with this behavior, so
// it stays.
func CalcEngagement(posts []models.Post) Engagement {
	if len(posts) == 0 {
		return Engagement{}
	}

	scores := make([]int, len(posts))
	totalScore := 0
	totalComments := 0
	for i, post := range posts {
		scores[i] = post.Score
		totalScore += post.Score
		totalComments += post.NumComments
	}
	sort.Ints(scores)

	avgUpvotes := float64(totalScore) / float64(len(posts))
	avgComments := float64(totalComments) / float64(len(posts))
	median := float64(scores[len(scores)/2])

	return Engagement{
		AvgUpvotes:      avgUpvotes,
		MedianUpvotes:   median,
		AvgComments:     avgComments,
		EngagementScore: 0.7*avgUpvotes + 0.3*avgComments,
	}
}
