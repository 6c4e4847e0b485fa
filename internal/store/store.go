// Package store 定义引擎的持久化键值存储边界。
// 引擎把存储当作不可靠、尽力而为的外部协作者：
// 读失败降级为"没有用户数据"，写失败只会让存储落后一个版本，
// 内存中的活动集合始终是权威状态。
package store

import "context"

// 固定存储键：值是对应实体类型的 JSON 数组（不含种子数据）
const (
	KeyFriends        = "friends"
	KeyFriendRequests = "friendRequests"
	KeyStories        = "stories"
)

// Store 键值存储接口
type Store interface {
	// Get 读取 key 对应的值；key 不存在时返回 ok=false 且无错误，
	// 存储不可用时返回 ErrStoreUnavailable
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set 写入 key 对应的值，存储不可用时返回 ErrStoreUnavailable
	Set(ctx context.Context, key, value string) error
}
