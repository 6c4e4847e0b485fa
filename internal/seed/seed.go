// Package seed 提供引擎启动时的种子目录（floor state）。
// 种子数据在每次进程启动时都存在，永远不会被持久化或删除；
// 种子 ID 是保留字面量（"1".."6"），用户生成的 ID 来自时间戳派生的雪花 ID，
// 两个集合因此天然不相交。
package seed

import (
	"time"

	"sudooom.im.social/internal/model"
)

// Friends 返回种子好友目录
// LastSeen 相对传入的参考时间计算，模拟"刚刚在线 / 半小时前在线"等状态
func Friends(now time.Time) []model.Friend {
	return []model.Friend{
		{
			ID:            "1",
			Name:          "أحمد محمد",
			Avatar:        "https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg",
			IsOnline:      true,
			LastSeen:      now,
			MutualFriends: 12,
			Bio:           "مطور تطبيقات ومصور",
			Location:      "طرابلس، ليبيا",
			JoinedDate:    time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:            "2",
			Name:          "فاطمة علي",
			Avatar:        "https://images.pexels.com/photos/415829/pexels-photo-415829.jpeg",
			IsOnline:      false,
			LastSeen:      now.Add(-30 * time.Minute),
			MutualFriends: 8,
			Bio:           "مصممة جرافيك",
			Location:      "بنغازي، ليبيا",
			JoinedDate:    time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:            "3",
			Name:          "عمر الصادق",
			Avatar:        "https://images.pexels.com/photos/1222271/pexels-photo-1222271.jpeg",
			IsOnline:      true,
			LastSeen:      now,
			MutualFriends: 15,
			Bio:           "طالب هندسة",
			Location:      "مصراتة، ليبيا",
			JoinedDate:    time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:            "4",
			Name:          "مريم الهادي",
			Avatar:        "https://images.pexels.com/photos/1239291/pexels-photo-1239291.jpeg",
			IsOnline:      false,
			LastSeen:      now.Add(-2 * time.Hour),
			MutualFriends: 6,
			Bio:           "طبيبة أطفال",
			Location:      "سبها، ليبيا",
			JoinedDate:    time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC),
		},
	}
}

// FriendRequests 返回种子好友请求目录
// 发送方 ID "5"、"6" 也是保留字面量，接受后成为好友
func FriendRequests(now time.Time) []model.FriendRequest {
	return []model.FriendRequest{
		{
			ID:         "1",
			FromUserID: "5",
			ToUserID:   model.CurrentUserID,
			FromUser: model.Friend{
				ID:            "5",
				Name:          "سارة أحمد",
				Avatar:        "https://images.pexels.com/photos/1130626/pexels-photo-1130626.jpeg",
				IsOnline:      true,
				LastSeen:      now,
				MutualFriends: 3,
				Location:      "طرابلس، ليبيا",
				JoinedDate:    time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			},
			Status:    model.FriendRequestStatusPending,
			CreatedAt: now.Add(-24 * time.Hour),
		},
		{
			ID:         "2",
			FromUserID: "6",
			ToUserID:   model.CurrentUserID,
			FromUser: model.Friend{
				ID:            "6",
				Name:          "يوسف الطاهر",
				Avatar:        "https://images.pexels.com/photos/1043471/pexels-photo-1043471.jpeg",
				IsOnline:      false,
				LastSeen:      now.Add(-time.Hour),
				MutualFriends: 7,
				Location:      "بنغازي، ليبيا",
				JoinedDate:    time.Date(2023, 4, 20, 0, 0, 0, 0, time.UTC),
			},
			Status:    model.FriendRequestStatusPending,
			CreatedAt: now.Add(-12 * time.Hour),
		},
	}
}

// Stories 返回种子故事目录
// 三条故事分别发布于 2/4/6 小时前，剩余可见时间按 24 小时 TTL 推算
func Stories(now time.Time) []model.Story {
	friends := Friends(now)

	return []model.Story{
		{
			ID:        "1",
			UserID:    friends[0].ID,
			User:      friends[0],
			ImageURL:  "https://images.pexels.com/photos/1640777/pexels-photo-1640777.jpeg",
			Caption:   "يوم جميل في طرابلس! 🌅",
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(22 * time.Hour),
			Viewers:   []string{},
			IsViewed:  false,
		},
		{
			ID:        "2",
			UserID:    friends[1].ID,
			User:      friends[1],
			ImageURL:  "https://images.pexels.com/photos/1640772/pexels-photo-1640772.jpeg",
			Caption:   "مشروع جديد 🎨",
			CreatedAt: now.Add(-4 * time.Hour),
			ExpiresAt: now.Add(20 * time.Hour),
			Viewers:   []string{model.CurrentUserID},
			IsViewed:  true,
		},
		{
			ID:        "3",
			UserID:    friends[2].ID,
			User:      friends[2],
			ImageURL:  "https://images.pexels.com/photos/1640774/pexels-photo-1640774.jpeg",
			Caption:   "في الجامعة 📚",
			CreatedAt: now.Add(-6 * time.Hour),
			ExpiresAt: now.Add(18 * time.Hour),
			Viewers:   []string{},
			IsViewed:  false,
		},
	}
}

// FriendIDSet 返回种子好友 ID 集合，持久化时用于剔除种子数据
func FriendIDSet() map[string]struct{} {
	return idSet([]string{"1", "2", "3", "4"})
}

// RequestIDSet 返回种子好友请求 ID 集合
func RequestIDSet() map[string]struct{} {
	return idSet([]string{"1", "2"})
}

// StoryIDSet 返回种子故事 ID 集合
func StoryIDSet() map[string]struct{} {
	return idSet([]string{"1", "2", "3"})
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
