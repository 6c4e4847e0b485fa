package model

import "time"

// StoryTTL 故事的固定生存时间，超过后从可见视图中消失
const StoryTTL = 24 * time.Hour

// Story 限时故事
// User 是发布者在创建时刻的快照；ExpiresAt 一经设置不再变化，
// 可见性是 now < ExpiresAt 的纯函数，过期的故事不做物理删除
type Story struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	User      Friend    `json:"user"`
	ImageURL  string    `json:"imageUrl"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Viewers   []string  `json:"viewers"`
	IsViewed  bool      `json:"isViewed"`
}

// Active 判断故事在给定时刻是否可见
func (s *Story) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// HasViewer 判断某个用户是否已经看过该故事
func (s *Story) HasViewer(userID string) bool {
	for _, v := range s.Viewers {
		if v == userID {
			return true
		}
	}
	return false
}
