package profile

import (
	"sort"

	"github.com/bwalsh/subscout/models"
)

const maxHoursPerDay = 3

// BestPostingTimes groups a top-post sample by (weekday, hour), ranks each
// day's hours by mean score, and keeps the top 3 hours per day. Days with no
// posts in the sample are absent from the result. Equal mean scores break
// toward the lower hour so results are deterministic.
func BestPostingTimes(posts []models.Post) map[string][]int {
	type slot struct {
		total float64
		count int
	}

	byDay := make(map[string]map[int]*slot)
	for _, post := range posts {
		day := post.CreatedAt.Weekday().String()
		hour := post.CreatedAt.Hour()

		hours, ok := byDay[day]
		if !ok {
			hours = make(map[int]*slot)
			byDay[day] = hours
		}
		s, ok := hours[hour]
		if !ok {
			s = &slot{}
			hours[hour] = s
		}
		s.total += float64(post.Score)
		s.count++
	}

	best := make(map[string][]int, len(byDay))
	for day, hours := range byDay {
		type ranked struct {
			hour int
			mean float64
		}
		slots := make([]ranked, 0, len(hours))
		for hour, s := range hours {
			slots = append(slots, ranked{hour: hour, mean: s.total / float64(s.count)})
		}

		sort.Slice(slots, func(i, j int) bool {
			if slots[i].mean != slots[j].mean {
				return slots[i].mean > slots[j].mean
			}
			return slots[i].hour < slots[j].hour
		})

		top := make([]int, 0, maxHoursPerDay)
		for i, s := range slots {
			if i >= maxHoursPerDay {
				break
			}
			top = append(top, s.hour)
		}
		best[day] = top
	}

	return best
}
