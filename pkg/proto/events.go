// Package proto 定义引擎对外发布的事件线格式。
package proto

import "time"

// 活动事件类型
// 引擎每次变更后发布一条事件，观察者收到后重新读取活动集合
const (
	EventFriendAccepted  = "friend_accepted"  // 好友请求被接受
	EventRequestRejected = "request_rejected" // 好友请求被拒绝
	EventFriendRemoved   = "friend_removed"   // 好友被移除
	EventStoryAdded      = "story_added"      // 新故事发布
	EventStoryViewed     = "story_viewed"     // 故事被查看
	EventRequestReceived = "request_received" // 收到新的好友请求（后台注入）
)

// ActivityEvent 活动事件
type ActivityEvent struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	At       time.Time `json:"at"`
}
