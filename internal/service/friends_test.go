package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"sudooom.im.social/internal/model"
	"sudooom.im.social/internal/store"
	apperrors "sudooom.im.social/pkg/errors"
	"sudooom.im.social/pkg/proto"
	"sudooom.im.social/pkg/snowflake"
)

// ============== 测试辅助 ==============

// stubGateway 可控的远端网关替身
type stubGateway struct {
	ackErr     error
	searchErr  error
	results    []model.Friend
	ackCalls   int
	lastUserID string
}

func (g *stubGateway) AcknowledgeFriendRequest(ctx context.Context, userID string) error {
	g.ackCalls++
	g.lastUserID = userID
	return g.ackErr
}

func (g *stubGateway) SearchUsers(ctx context.Context, query string) ([]model.Friend, error) {
	if g.searchErr != nil {
		return nil, g.searchErr
	}
	return g.results, nil
}

// failingStore 始终不可用的存储替身
type failingStore struct{}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, apperrors.ErrStoreUnavailable
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	return apperrors.ErrStoreUnavailable
}

// recordingNotifier 记录收到的事件
type recordingNotifier struct {
	events []proto.ActivityEvent
}

func (n *recordingNotifier) PublishActivity(ctx context.Context, event proto.ActivityEvent) error {
	n.events = append(n.events, event)
	return nil
}

func newTestService(t *testing.T, st store.Store, gateway *stubGateway) *FriendService {
	t.Helper()

	sf, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("创建雪花节点失败: %v", err)
	}

	svc := NewFriendService(st, gateway, nil, sf)
	svc.rng = rand.New(rand.NewSource(1)) // 固定随机种子
	return svc
}

// ============== 合并加载 ==============

// TestLoadEmptyStore 空存储加载后正好是种子目录
func TestLoadEmptyStore(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	svc.Load(context.Background())

	if got := len(svc.Friends()); got != 4 {
		t.Errorf("期望好友数 = 4, 实际 = %d", got)
	}
	if got := len(svc.PendingRequests()); got != 2 {
		t.Errorf("期望请求数 = 2, 实际 = %d", got)
	}
	if got := len(svc.Stories()); got != 3 {
		t.Errorf("期望故事数 = 3, 实际 = %d", got)
	}
}

// TestLoadMergeIdempotent 同一份存储增量加载两次得到相同的活动集合
func TestLoadMergeIdempotent(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	// 第一个实例：接受一条种子请求，产生用户增量
	svc1 := newTestService(t, ms, &stubGateway{})
	svc1.Load(ctx)
	if err := svc1.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("接受请求失败: %v", err)
	}

	// 用同一份存储再启动两次
	svc2 := newTestService(t, ms, &stubGateway{})
	svc2.Load(ctx)
	svc3 := newTestService(t, ms, &stubGateway{})
	svc3.Load(ctx)

	if len(svc2.Friends()) != len(svc3.Friends()) {
		t.Errorf("两次加载好友数不一致: %d vs %d", len(svc2.Friends()), len(svc3.Friends()))
	}
	if got := len(svc2.Friends()); got != 5 {
		t.Errorf("期望好友数 = 5 (4 种子 + 1 用户), 实际 = %d", got)
	}

	// 按 ID 检查无重复
	seen := make(map[string]int)
	for _, f := range svc2.Friends() {
		seen[f.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("好友 %s 出现 %d 次", id, n)
		}
	}
}

// TestLoadStoreFailure 存储读取失败降级为只有种子数据，不报错
func TestLoadStoreFailure(t *testing.T) {
	svc := newTestService(t, &failingStore{}, &stubGateway{})
	svc.Load(context.Background())

	if got := len(svc.Friends()); got != 4 {
		t.Errorf("期望好友数 = 4, 实际 = %d", got)
	}
}

// TestLoadOnlyOnce Load 每个进程生命周期只生效一次
func TestLoadOnlyOnce(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	svc := newTestService(t, ms, &stubGateway{})
	svc.Load(ctx)
	if err := svc.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("接受请求失败: %v", err)
	}

	// 再次 Load 不应重置状态
	svc.Load(ctx)
	if got := len(svc.Friends()); got != 5 {
		t.Errorf("期望好友数 = 5, 实际 = %d", got)
	}
	if got := len(svc.PendingRequests()); got != 1 {
		t.Errorf("期望请求数 = 1, 实际 = %d", got)
	}
}

// ============== 种子/用户分离 ==============

// TestPersistedSubsetExcludesSeeds 持久化子集不包含任何种子 ID
func TestPersistedSubsetExcludesSeeds(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	svc := newTestService(t, ms, &stubGateway{})
	svc.Load(ctx)

	// 一串混合变更
	if err := svc.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("接受请求失败: %v", err)
	}
	if err := svc.AddStory(ctx, "https://example.com/pic.jpeg", "测试"); err != nil {
		t.Fatalf("发布故事失败: %v", err)
	}
	if err := svc.ViewStory(ctx, "2"); err != nil {
		t.Fatalf("查看故事失败: %v", err)
	}
	if err := svc.RemoveFriend(ctx, "3"); err != nil {
		t.Fatalf("移除好友失败: %v", err)
	}

	seedFriends := map[string]bool{"1": true, "2": true, "3": true, "4": true}
	seedRequests := map[string]bool{"1": true, "2": true}
	seedStories := map[string]bool{"1": true, "2": true, "3": true}

	raw, ok, _ := ms.Get(ctx, store.KeyFriends)
	if !ok {
		t.Fatal("期望 friends 键已写入")
	}
	var friends []model.Friend
	if err := json.Unmarshal([]byte(raw), &friends); err != nil {
		t.Fatalf("解析持久化好友失败: %v", err)
	}
	if len(friends) != 1 || friends[0].ID != "5" {
		t.Errorf("期望持久化好友只有 ID 5, 实际 = %+v", friends)
	}
	for _, f := range friends {
		if seedFriends[f.ID] {
			t.Errorf("持久化子集包含种子好友 %s", f.ID)
		}
	}

	raw, ok, _ = ms.Get(ctx, store.KeyFriendRequests)
	if !ok {
		t.Fatal("期望 friendRequests 键已写入")
	}
	var requests []model.FriendRequest
	if err := json.Unmarshal([]byte(raw), &requests); err != nil {
		t.Fatalf("解析持久化请求失败: %v", err)
	}
	for _, req := range requests {
		if seedRequests[req.ID] {
			t.Errorf("持久化子集包含种子请求 %s", req.ID)
		}
	}

	raw, ok, _ = ms.Get(ctx, store.KeyStories)
	if !ok {
		t.Fatal("期望 stories 键已写入")
	}
	var stories []model.Story
	if err := json.Unmarshal([]byte(raw), &stories); err != nil {
		t.Fatalf("解析持久化故事失败: %v", err)
	}
	if len(stories) != 1 {
		t.Errorf("期望持久化故事数 = 1, 实际 = %d", len(stories))
	}
	for _, story := range stories {
		if seedStories[story.ID] {
			t.Errorf("持久化子集包含种子故事 %s", story.ID)
		}
	}
}

// ============== 请求生命周期 ==============

// TestAcceptFriendRequest 接受请求：快照成为好友，请求从待处理集合消失
func TestAcceptFriendRequest(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("接受请求失败: %v", err)
	}

	if _, ok := svc.FriendByID("5"); !ok {
		t.Error("期望好友 5 存在（来自请求 1 的发送方快照）")
	}
	for _, req := range svc.PendingRequests() {
		if req.ID == "1" {
			t.Error("期望请求 1 已从待处理集合移除")
		}
	}

	// 再次接受同一请求是 no-op
	if err := svc.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("重复接受不应报错: %v", err)
	}
	if got := len(svc.Friends()); got != 5 {
		t.Errorf("期望好友数 = 5, 实际 = %d", got)
	}
}

// TestAcceptIsCopyOnAccept 接受后的好友是快照副本
func TestAcceptIsCopyOnAccept(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	reqs := svc.PendingRequests()
	snapshot := reqs[0].FromUser

	if err := svc.AcceptFriendRequest(ctx, reqs[0].ID); err != nil {
		t.Fatalf("接受请求失败: %v", err)
	}

	friend, ok := svc.FriendByID(snapshot.ID)
	if !ok {
		t.Fatal("期望快照好友存在")
	}
	if friend.Name != snapshot.Name || friend.MutualFriends != snapshot.MutualFriends {
		t.Errorf("期望好友字段来自快照, 实际 = %+v", friend)
	}
}

// TestRejectFriendRequest 拒绝请求直接移除，重复拒绝是 no-op
func TestRejectFriendRequest(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.RejectFriendRequest(ctx, "2"); err != nil {
		t.Fatalf("拒绝请求失败: %v", err)
	}
	if got := len(svc.PendingRequests()); got != 1 {
		t.Errorf("期望请求数 = 1, 实际 = %d", got)
	}
	if _, ok := svc.FriendByID("6"); ok {
		t.Error("被拒绝的请求不应产生好友")
	}

	if err := svc.RejectFriendRequest(ctx, "2"); err != nil {
		t.Fatalf("重复拒绝不应报错: %v", err)
	}
}

// TestRemoveFriend 移除好友，未知 ID 是 no-op
func TestRemoveFriend(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.RemoveFriend(ctx, "2"); err != nil {
		t.Fatalf("移除好友失败: %v", err)
	}
	if _, ok := svc.FriendByID("2"); ok {
		t.Error("期望好友 2 已移除")
	}

	if err := svc.RemoveFriend(ctx, "no-such-friend"); err != nil {
		t.Fatalf("移除未知好友不应报错: %v", err)
	}
	if got := len(svc.Friends()); got != 3 {
		t.Errorf("期望好友数 = 3, 实际 = %d", got)
	}
}

// TestSendFriendRequest 发送请求只经过远端确认，本地不产生任何状态
func TestSendFriendRequest(t *testing.T) {
	ms := store.NewMemoryStore()
	gateway := &stubGateway{}
	svc := newTestService(t, ms, gateway)
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.SendFriendRequest(ctx, "7"); err != nil {
		t.Fatalf("发送请求失败: %v", err)
	}
	if gateway.ackCalls != 1 || gateway.lastUserID != "7" {
		t.Errorf("期望网关确认一次 userId=7, 实际 calls=%d userId=%s", gateway.ackCalls, gateway.lastUserID)
	}
	if got := len(svc.PendingRequests()); got != 2 {
		t.Errorf("发送请求不应改变本地请求集合, 实际 = %d", got)
	}
	if _, ok, _ := ms.Get(ctx, store.KeyFriendRequests); ok {
		t.Error("发送请求不应触发持久化")
	}
}

// TestSendFriendRequestRemoteFailure 远端失败原样上抛，状态不变
func TestSendFriendRequestRemoteFailure(t *testing.T) {
	gateway := &stubGateway{ackErr: apperrors.ErrRemoteActionFailed}
	svc := newTestService(t, store.NewMemoryStore(), gateway)
	ctx := context.Background()
	svc.Load(ctx)

	err := svc.SendFriendRequest(ctx, "7")
	if !apperrors.Is(err, apperrors.ErrRemoteActionFailed) {
		t.Errorf("期望 ErrRemoteActionFailed, 实际 = %v", err)
	}
	if got := len(svc.Friends()); got != 4 {
		t.Errorf("失败后状态不应变化, 好友数 = %d", got)
	}
}

// TestSendFriendRequestEmptyUserID 空 userID 拒绝
func TestSendFriendRequestEmptyUserID(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})

	err := svc.SendFriendRequest(context.Background(), "")
	if !apperrors.Is(err, apperrors.ErrInvalidParams) {
		t.Errorf("期望 ErrInvalidParams, 实际 = %v", err)
	}
}

// ============== 故事 ==============

// TestAddStory 新故事置于集合最前，TTL 24 小时
func TestAddStory(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	base := time.Now()
	svc.now = func() time.Time { return base }

	if err := svc.AddStory(ctx, "https://example.com/pic.jpeg", "مساء الخير"); err != nil {
		t.Fatalf("发布故事失败: %v", err)
	}

	stories := svc.Stories()
	if len(stories) != 4 {
		t.Fatalf("期望故事数 = 4, 实际 = %d", len(stories))
	}
	story := stories[0]
	if story.UserID != model.CurrentUserID {
		t.Errorf("期望故事归属 current-user, 实际 = %s", story.UserID)
	}
	if !story.ExpiresAt.Equal(base.Add(24 * time.Hour)) {
		t.Errorf("期望过期时间 = 创建 + 24h, 实际 = %v", story.ExpiresAt)
	}
	if story.IsViewed || len(story.Viewers) != 0 {
		t.Errorf("新故事不应有观看记录: %+v", story)
	}
}

// TestAddStoryEmptyImage 空图片引用拒绝
func TestAddStoryEmptyImage(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})

	err := svc.AddStory(context.Background(), "", "")
	if !apperrors.Is(err, apperrors.ErrInvalidParams) {
		t.Errorf("期望 ErrInvalidParams, 实际 = %v", err)
	}
}

// TestViewStoryIdempotent 重复查看不会产生重复观看者
func TestViewStoryIdempotent(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.ViewStory(ctx, "1"); err != nil {
		t.Fatalf("查看故事失败: %v", err)
	}
	if err := svc.ViewStory(ctx, "1"); err != nil {
		t.Fatalf("重复查看失败: %v", err)
	}

	var story model.Story
	found := false
	for _, s := range svc.Stories() {
		if s.ID == "1" {
			story = s
			found = true
		}
	}
	if !found {
		t.Fatal("期望故事 1 存在")
	}
	if !story.IsViewed {
		t.Error("期望 IsViewed = true")
	}

	count := 0
	for _, v := range story.Viewers {
		if v == model.CurrentUserID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("期望观看者集合中 current-user 恰好出现一次, 实际 = %d", count)
	}
}

// TestViewStoryUnknown 未知故事是 no-op
func TestViewStoryUnknown(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.ViewStory(ctx, "no-such-story"); err != nil {
		t.Fatalf("查看未知故事不应报错: %v", err)
	}
}

// TestActiveStoriesExpiry 过期视图：23h59m 仍可见，24h01m 后消失，无显式删除
func TestActiveStoriesExpiry(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	base := time.Now()
	svc.now = func() time.Time { return base }

	if err := svc.AddStory(ctx, "https://example.com/pic.jpeg", ""); err != nil {
		t.Fatalf("发布故事失败: %v", err)
	}
	newID := svc.Stories()[0].ID

	// T + 23h59m：种子故事（18-22h 剩余）已过期，新故事仍可见
	svc.now = func() time.Time { return base.Add(23*time.Hour + 59*time.Minute) }
	active := svc.ActiveStories()
	if len(active) != 1 || active[0].ID != newID {
		t.Errorf("期望 T+23h59m 时只有新故事可见, 实际 = %d 条", len(active))
	}

	// T + 24h01m：全部消失
	svc.now = func() time.Time { return base.Add(24*time.Hour + time.Minute) }
	if got := len(svc.ActiveStories()); got != 0 {
		t.Errorf("期望 T+24h01m 时无可见故事, 实际 = %d", got)
	}

	// 物理上没有删除
	if got := len(svc.Stories()); got != 4 {
		t.Errorf("过期不应物理删除故事, 实际 = %d", got)
	}
}

// TestUserStories 过期视图按发布者过滤
func TestUserStories(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	stories := svc.UserStories("1")
	if len(stories) != 1 || stories[0].UserID != "1" {
		t.Errorf("期望好友 1 恰好有一条可见故事, 实际 = %+v", stories)
	}

	if got := len(svc.UserStories("no-such-user")); got != 0 {
		t.Errorf("期望未知用户无故事, 实际 = %d", got)
	}
}

// ============== 查询与降级 ==============

// TestPendingRequestsCount 待处理计数
func TestPendingRequestsCount(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if got := svc.PendingRequestsCount(); got != 2 {
		t.Errorf("期望待处理数 = 2, 实际 = %d", got)
	}

	if err := svc.RejectFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("拒绝请求失败: %v", err)
	}
	if got := svc.PendingRequestsCount(); got != 1 {
		t.Errorf("期望待处理数 = 1, 实际 = %d", got)
	}
}

// TestSearchUsersDelegatesToGateway 搜索委托给远端网关，不触碰本地状态
func TestSearchUsersDelegatesToGateway(t *testing.T) {
	gateway := &stubGateway{results: []model.Friend{{ID: "8", Name: "نور الدين"}}}
	svc := newTestService(t, store.NewMemoryStore(), gateway)
	ctx := context.Background()
	svc.Load(ctx)

	results, err := svc.SearchUsers(ctx, "نور")
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != "8" {
		t.Errorf("期望网关结果原样返回, 实际 = %+v", results)
	}
	if got := len(svc.Friends()); got != 4 {
		t.Errorf("搜索不应改变好友集合, 实际 = %d", got)
	}
}

// TestSearchUsersRemoteFailure 搜索失败上抛给调用方
func TestSearchUsersRemoteFailure(t *testing.T) {
	gateway := &stubGateway{searchErr: apperrors.ErrRemoteActionFailed}
	svc := newTestService(t, store.NewMemoryStore(), gateway)

	_, err := svc.SearchUsers(context.Background(), "نور")
	if !apperrors.Is(err, apperrors.ErrRemoteActionFailed) {
		t.Errorf("期望 ErrRemoteActionFailed, 实际 = %v", err)
	}
}

// TestPersistFailureKeepsMemoryState 持久化失败不回滚内存变更，也不上抛
func TestPersistFailureKeepsMemoryState(t *testing.T) {
	svc := newTestService(t, &failingStore{}, &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("存储失败不应上抛: %v", err)
	}
	if _, ok := svc.FriendByID("5"); !ok {
		t.Error("期望内存状态仍然生效")
	}
}

// TestSnapshotIsolation 读取访问器返回的快照与内部状态隔离
func TestSnapshotIsolation(t *testing.T) {
	svc := newTestService(t, store.NewMemoryStore(), &stubGateway{})
	ctx := context.Background()
	svc.Load(ctx)

	stories := svc.Stories()
	stories[0].Viewers = append(stories[0].Viewers, "intruder")
	stories[0].Caption = "changed"

	again := svc.Stories()
	if again[0].Caption == "changed" {
		t.Error("快照修改不应影响内部状态")
	}
	for _, v := range again[0].Viewers {
		if v == "intruder" {
			t.Error("快照 Viewers 与内部状态共享了底层数组")
		}
	}
}

// TestNotifierReceivesEvents 每次变更发布一条事件
func TestNotifierReceivesEvents(t *testing.T) {
	ms := store.NewMemoryStore()
	sf, _ := snowflake.NewNode(1)
	notifier := &recordingNotifier{}
	svc := NewFriendService(ms, &stubGateway{}, notifier, sf)
	svc.rng = rand.New(rand.NewSource(1))
	ctx := context.Background()
	svc.Load(ctx)

	if err := svc.AcceptFriendRequest(ctx, "1"); err != nil {
		t.Fatalf("接受请求失败: %v", err)
	}
	if err := svc.AddStory(ctx, "https://example.com/pic.jpeg", ""); err != nil {
		t.Fatalf("发布故事失败: %v", err)
	}

	if len(notifier.events) != 2 {
		t.Fatalf("期望事件数 = 2, 实际 = %d", len(notifier.events))
	}
	if notifier.events[0].Type != proto.EventFriendAccepted {
		t.Errorf("期望第一条事件 = %s, 实际 = %s", proto.EventFriendAccepted, notifier.events[0].Type)
	}
	if notifier.events[1].Type != proto.EventStoryAdded {
		t.Errorf("期望第二条事件 = %s, 实际 = %s", proto.EventStoryAdded, notifier.events[1].Type)
	}
}
