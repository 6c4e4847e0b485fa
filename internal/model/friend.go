package model

import "time"

// CurrentUserID 单用户模型中"当前用户"的哨兵 ID
// 所有收到的好友请求都指向它，当前用户发布的故事也归属于它
const CurrentUserID = "current-user"

// Friend 好友
// ID 在记录生命周期内不变；除创建外只有 IsOnline / LastSeen 会被修改
type Friend struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Avatar        string    `json:"avatar,omitempty"`
	IsOnline      bool      `json:"isOnline"`
	LastSeen      time.Time `json:"lastSeen"`
	MutualFriends int       `json:"mutualFriends"`
	Bio           string    `json:"bio,omitempty"`
	Location      string    `json:"location,omitempty"`
	JoinedDate    time.Time `json:"joinedDate"`
}

// FriendRequestStatus 好友请求状态
const (
	FriendRequestStatusPending  = "pending"  // 待处理
	FriendRequestStatusAccepted = "accepted" // 已同意
	FriendRequestStatusRejected = "rejected" // 已拒绝
)

// FriendRequest 好友请求
// FromUser 是发送方在请求时刻的快照；接受后以该快照创建好友（copy-on-accept），
// 之后发送方的变更不会再传播过来。
// 状态只会从 pending 转移一次，进入终态的请求直接从待处理集合移除
type FriendRequest struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	FromUser   Friend    `json:"fromUser"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}
