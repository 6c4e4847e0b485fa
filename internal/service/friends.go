package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"sudooom.im.social/internal/model"
	"sudooom.im.social/internal/remote"
	"sudooom.im.social/internal/seed"
	"sudooom.im.social/internal/store"
	apperrors "sudooom.im.social/pkg/errors"
	"sudooom.im.social/pkg/proto"
	"sudooom.im.social/pkg/snowflake"
)

// Notifier 变更通知接口
// 引擎每次变更后发布一条事件，观察者收到后重新读取活动集合；
// nil 表示不发通知
type Notifier interface {
	PublishActivity(ctx context.Context, event proto.ActivityEvent) error
}

// FriendService 社交图谱与限时内容引擎
// 好友、好友请求、故事三个活动集合的唯一属主。
// 调用方命令和后台模拟器的注入都经过同一把锁串行化，
// 一次变更（含持久化）完成之前结果不可见
type FriendService struct {
	store    store.Store
	gateway  remote.Gateway
	notifier Notifier
	sf       *snowflake.Node
	logger   *slog.Logger

	mu       sync.RWMutex
	friends  []model.Friend
	requests []model.FriendRequest
	stories  []model.Story
	loaded   bool

	seedFriendIDs  map[string]struct{}
	seedRequestIDs map[string]struct{}
	seedStoryIDs   map[string]struct{}

	// now 可注入的时钟，过期视图和测试依赖它
	now func() time.Time
	// rng 只在持有 mu 时使用
	rng *rand.Rand
}

// NewFriendService 创建引擎
// 活动集合初始为种子目录；调用 Load 后并入存储中的用户数据
func NewFriendService(st store.Store, gateway remote.Gateway, notifier Notifier, sf *snowflake.Node) *FriendService {
	s := &FriendService{
		store:          st,
		gateway:        gateway,
		notifier:       notifier,
		sf:             sf,
		logger:         slog.Default(),
		seedFriendIDs:  seed.FriendIDSet(),
		seedRequestIDs: seed.RequestIDSet(),
		seedStoryIDs:   seed.StoryIDSet(),
		now:            time.Now,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	now := s.now()
	s.friends = seed.Friends(now)
	s.requests = seed.FriendRequests(now)
	s.stories = seed.Stories(now)

	return s
}

// ============== 合并加载 ==============

// Load 启动时从存储加载用户数据并与种子目录合并
// 每个进程生命周期只生效一次；三次读取相互独立，
// 任何一次失败都降级为"该集合没有用户数据"，不影响其余集合
func (s *FriendService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return
	}
	s.loaded = true

	now := s.now()
	s.friends = seed.Friends(now)
	s.requests = seed.FriendRequests(now)
	s.stories = seed.Stories(now)

	if raw := s.loadRaw(ctx, store.KeyFriends); raw != nil {
		var userFriends []model.Friend
		if err := json.Unmarshal(raw, &userFriends); err != nil {
			s.logger.Warn("Failed to parse stored friends", "error", err)
		} else {
			s.friends = append(s.friends, userFriends...)
		}
	}

	if raw := s.loadRaw(ctx, store.KeyFriendRequests); raw != nil {
		var userRequests []model.FriendRequest
		if err := json.Unmarshal(raw, &userRequests); err != nil {
			s.logger.Warn("Failed to parse stored friend requests", "error", err)
		} else {
			s.requests = append(s.requests, userRequests...)
		}
	}

	if raw := s.loadRaw(ctx, store.KeyStories); raw != nil {
		var userStories []model.Story
		if err := json.Unmarshal(raw, &userStories); err != nil {
			s.logger.Warn("Failed to parse stored stories", "error", err)
		} else {
			s.stories = append(s.stories, userStories...)
		}
	}

	s.logger.Info("Friends data loaded",
		"friends", len(s.friends),
		"requests", len(s.requests),
		"stories", len(s.stories))
}

// loadRaw 读取一个存储键；失败或缺失都返回 nil
func (s *FriendService) loadRaw(ctx context.Context, key string) []byte {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read store, using seed data only", "key", key, "error", err)
		return nil
	}
	if !ok || value == "" {
		return nil
	}
	return []byte(value)
}

// ============== 生命周期命令 ==============

// SendFriendRequest 向另一个用户发送好友请求
// 请求进入对方的收件箱，本地不产生任何请求记录（沿用原始行为，已知缺口）；
// 远端失败原样上抛，状态不变
func (s *FriendService) SendFriendRequest(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.ErrInvalidParams
	}

	if err := s.gateway.AcknowledgeFriendRequest(ctx, userID); err != nil {
		s.logger.Warn("Failed to send friend request", "userId", userID, "error", err)
		return err
	}

	s.logger.Info("Friend request sent", "userId", userID)
	return nil
}

// AcceptFriendRequest 接受好友请求
// 以请求中的发送方快照创建好友（copy-on-accept，在线状态随机），
// 再从待处理集合移除请求；请求不存在时静默返回。
// 这是 FriendRequest 变成 Friend 的唯一路径
func (s *FriendService) AcceptFriendRequest(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.requests {
		if s.requests[i].ID == requestID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.logger.Debug("Friend request not found, ignoring", "requestId", requestID)
		return nil
	}

	newFriend := s.requests[idx].FromUser
	newFriend.IsOnline = s.rng.Intn(2) == 0

	s.friends = append(s.friends, newFriend)
	s.requests = append(s.requests[:idx], s.requests[idx+1:]...)

	s.persistLocked(ctx)
	s.notify(ctx, proto.EventFriendAccepted, newFriend.ID)

	s.logger.Info("Friend request accepted", "requestId", requestID, "friendId", newFriend.ID)
	return nil
}

// RejectFriendRequest 拒绝好友请求
// 无条件从待处理集合移除，请求不存在时也是 no-op
func (s *FriendService) RejectFriendRequest(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	kept := s.requests[:0]
	for _, req := range s.requests {
		if req.ID == requestID {
			removed = true
			continue
		}
		kept = append(kept, req)
	}
	s.requests = kept

	s.persistLocked(ctx)
	if removed {
		s.notify(ctx, proto.EventRequestRejected, requestID)
		s.logger.Info("Friend request rejected", "requestId", requestID)
	}
	return nil
}

// RemoveFriend 移除好友
// 好友不存在时是 no-op
func (s *FriendService) RemoveFriend(ctx context.Context, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	kept := s.friends[:0]
	for _, f := range s.friends {
		if f.ID == friendID {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	s.friends = kept

	s.persistLocked(ctx)
	if removed {
		s.notify(ctx, proto.EventFriendRemoved, friendID)
		s.logger.Info("Friend removed", "friendId", friendID)
	}
	return nil
}

// SearchUsers 在远端用户目录中搜索，只读，不触碰本地状态
func (s *FriendService) SearchUsers(ctx context.Context, query string) ([]model.Friend, error) {
	results, err := s.gateway.SearchUsers(ctx, query)
	if err != nil {
		s.logger.Warn("User search failed", "query", query, "error", err)
		return nil, err
	}
	return results, nil
}

// AddStory 以当前用户身份发布故事，TTL 24 小时，置于集合最前（最新优先）
func (s *FriendService) AddStory(ctx context.Context, imageURL, caption string) error {
	if imageURL == "" {
		return apperrors.ErrInvalidParams
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	story := model.Story{
		ID:     s.sf.Generate().String(),
		UserID: model.CurrentUserID,
		User: model.Friend{
			ID:         model.CurrentUserID,
			Name:       "أنت",
			IsOnline:   true,
			LastSeen:   now,
			JoinedDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		ImageURL:  imageURL,
		Caption:   caption,
		CreatedAt: now,
		ExpiresAt: now.Add(model.StoryTTL),
		Viewers:   []string{},
	}

	s.stories = append([]model.Story{story}, s.stories...)

	s.persistLocked(ctx)
	s.notify(ctx, proto.EventStoryAdded, story.ID)

	s.logger.Info("Story added", "storyId", story.ID)
	return nil
}

// ViewStory 以当前用户身份查看故事
// 幂等：重复查看不会在观看者集合里产生重复项；故事不存在时是 no-op
func (s *FriendService) ViewStory(ctx context.Context, storyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.stories {
		if s.stories[i].ID == storyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	story := &s.stories[idx]
	story.IsViewed = true
	if !story.HasViewer(model.CurrentUserID) {
		story.Viewers = append(story.Viewers, model.CurrentUserID)
	}

	s.persistLocked(ctx)
	s.notify(ctx, proto.EventStoryViewed, storyID)
	return nil
}

// ============== 读取访问器 ==============

// Friends 返回好友集合快照
func (s *FriendService) Friends() []model.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Friend, len(s.friends))
	copy(out, s.friends)
	return out
}

// FriendByID 按 ID 查找好友
func (s *FriendService) FriendByID(id string) (model.Friend, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.friends {
		if f.ID == id {
			return f, true
		}
	}
	return model.Friend{}, false
}

// PendingRequests 返回好友请求集合快照
func (s *FriendService) PendingRequests() []model.FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.FriendRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// PendingRequestsCount 待处理请求数量（纯查询）
func (s *FriendService) PendingRequestsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pendingCountLocked()
}

func (s *FriendService) pendingCountLocked() int {
	count := 0
	for _, req := range s.requests {
		if req.Status == model.FriendRequestStatusPending {
			count++
		}
	}
	return count
}

// Stories 返回全部故事快照（含已过期，过期的只是不再出现在可见视图里）
func (s *FriendService) Stories() []model.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.copyStoriesLocked(s.stories)
}

// ActiveStories 过期视图：只返回 now < expiresAt 的故事，保持原有顺序
// 每次读取都重新求值，不缓存、没有清扫定时器——
// 两次读取之间过期的故事自然消失，无需显式删除
func (s *FriendService) ActiveStories() []model.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	active := make([]model.Story, 0, len(s.stories))
	for _, story := range s.stories {
		if story.Active(now) {
			active = append(active, story)
		}
	}
	return s.copyStoriesLocked(active)
}

// UserStories 过期视图按发布者过滤
func (s *FriendService) UserStories(userID string) []model.Story {
	stories := s.ActiveStories()

	out := make([]model.Story, 0, len(stories))
	for _, story := range stories {
		if story.UserID == userID {
			out = append(out, story)
		}
	}
	return out
}

// copyStoriesLocked 深拷贝故事切片（Viewers 不能与内部状态共享）
func (s *FriendService) copyStoriesLocked(stories []model.Story) []model.Story {
	out := make([]model.Story, len(stories))
	for i, story := range stories {
		out[i] = story
		out[i].Viewers = append([]string(nil), story.Viewers...)
	}
	return out
}

// ============== 后台注入（供模拟器调用） ==============

// injectSyntheticRequest 注入一条合成好友请求
// 只有待处理数量低于上限时才注入；检查和插入在同一临界区内完成
func (s *FriendService) injectSyntheticRequest(ctx context.Context, pendingCap int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingCountLocked() >= pendingCap {
		return false
	}

	now := s.now()
	sender := model.Friend{
		ID:            "user_" + s.sf.Generate().String(),
		Name:          "مستخدم جديد",
		Avatar:        "https://images.pexels.com/photos/1674752/pexels-photo-1674752.jpeg",
		IsOnline:      true,
		LastSeen:      now,
		MutualFriends: s.rng.Intn(10),
		Location:      "ليبيا",
		JoinedDate:    now,
	}
	req := model.FriendRequest{
		ID:         s.sf.Generate().String(),
		FromUserID: sender.ID,
		ToUserID:   model.CurrentUserID,
		FromUser:   sender,
		Status:     model.FriendRequestStatusPending,
		CreatedAt:  now,
	}

	s.requests = append([]model.FriendRequest{req}, s.requests...)

	s.persistLocked(ctx)
	s.notify(ctx, proto.EventRequestReceived, req.ID)

	s.logger.Info("Synthetic friend request injected", "requestId", req.ID, "fromUserId", sender.ID)
	return true
}

// injectSyntheticStory 以随机一位现有好友的身份注入一条合成故事
// 没有好友时不注入
func (s *FriendService) injectSyntheticStory(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.friends) == 0 {
		return false
	}

	now := s.now()
	friend := s.friends[s.rng.Intn(len(s.friends))]
	story := model.Story{
		ID:        s.sf.Generate().String(),
		UserID:    friend.ID,
		User:      friend,
		ImageURL:  "https://images.pexels.com/photos/1640775/pexels-photo-1640775.jpeg",
		Caption:   "قصة جديدة! ✨",
		CreatedAt: now,
		ExpiresAt: now.Add(model.StoryTTL),
		Viewers:   []string{},
	}

	s.stories = append([]model.Story{story}, s.stories...)

	s.persistLocked(ctx)
	s.notify(ctx, proto.EventStoryAdded, story.ID)

	s.logger.Info("Synthetic story injected", "storyId", story.ID, "userId", friend.ID)
	return true
}

// ============== 持久化 ==============

// persistLocked 把三个集合中的非种子子集整体写入存储
// 每次都是全量重算，写失败只会让存储落后一个版本，不会破坏已有数据；
// 失败记录日志即可，内存状态保持权威
func (s *FriendService) persistLocked(ctx context.Context) {
	userFriends := make([]model.Friend, 0)
	for _, f := range s.friends {
		if _, isSeed := s.seedFriendIDs[f.ID]; !isSeed {
			userFriends = append(userFriends, f)
		}
	}

	userRequests := make([]model.FriendRequest, 0)
	for _, req := range s.requests {
		if _, isSeed := s.seedRequestIDs[req.ID]; !isSeed {
			userRequests = append(userRequests, req)
		}
	}

	userStories := make([]model.Story, 0)
	for _, story := range s.stories {
		if _, isSeed := s.seedStoryIDs[story.ID]; !isSeed {
			userStories = append(userStories, story)
		}
	}

	s.persistCollection(ctx, store.KeyFriends, userFriends)
	s.persistCollection(ctx, store.KeyFriendRequests, userRequests)
	s.persistCollection(ctx, store.KeyStories, userStories)
}

func (s *FriendService) persistCollection(ctx context.Context, key string, collection any) {
	data, err := json.Marshal(collection)
	if err != nil {
		s.logger.Error("Failed to marshal collection", "key", key, "error", err)
		return
	}

	if err := s.store.Set(ctx, key, string(data)); err != nil {
		s.logger.Warn("Failed to persist collection, keeping in-memory state", "key", key, "error", err)
	}
}

// notify 发布变更通知（尽力而为）
func (s *FriendService) notify(ctx context.Context, eventType, entityID string) {
	if s.notifier == nil {
		return
	}

	event := proto.ActivityEvent{
		Type:     eventType,
		EntityID: entityID,
		At:       s.now(),
	}
	if err := s.notifier.PublishActivity(ctx, event); err != nil {
		s.logger.Warn("Failed to publish activity event", "type", eventType, "error", err)
	}
}
