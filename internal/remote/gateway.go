// Package remote 模拟引擎之外的远端协作者。
// 没有真实的网络传输：对端确认和目录搜索都以固定延迟模拟，
// 失败以 ErrRemoteActionFailed 上抛给调用方，由表现层提示重试。
package remote

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sudooom.im.social/internal/model"
	apperrors "sudooom.im.social/pkg/errors"
)

// Gateway 远端社交网关
type Gateway interface {
	// AcknowledgeFriendRequest 把好友请求投递到 userID 的收件箱并等待确认。
	// 请求进入的是对方的收件箱，本地不产生任何请求记录
	AcknowledgeFriendRequest(ctx context.Context, userID string) error

	// SearchUsers 在远端用户目录中按显示名做大小写无关的子串匹配。
	// 搜索的对象是目录，不是本地好友集合；无匹配时返回空序列
	SearchUsers(ctx context.Context, query string) ([]model.Friend, error)
}

// SimulatedGateway 模拟网关实现
type SimulatedGateway struct {
	ackLatency    time.Duration
	searchLatency time.Duration
	logger        *slog.Logger
}

// NewSimulatedGateway 创建模拟网关
func NewSimulatedGateway(ackLatency, searchLatency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{
		ackLatency:    ackLatency,
		searchLatency: searchLatency,
		logger:        slog.Default(),
	}
}

// AcknowledgeFriendRequest 模拟投递确认
func (g *SimulatedGateway) AcknowledgeFriendRequest(ctx context.Context, userID string) error {
	if err := g.wait(ctx, g.ackLatency); err != nil {
		return apperrors.ErrRemoteActionFailed.Wrap(err)
	}

	g.logger.Info("Friend request delivered", "userId", userID)
	return nil
}

// SearchUsers 模拟目录搜索
func (g *SimulatedGateway) SearchUsers(ctx context.Context, query string) ([]model.Friend, error) {
	if err := g.wait(ctx, g.searchLatency); err != nil {
		return nil, apperrors.ErrRemoteActionFailed.Wrap(err)
	}

	needle := strings.ToLower(query)
	results := make([]model.Friend, 0)
	for _, user := range directory(time.Now()) {
		if strings.Contains(strings.ToLower(user.Name), needle) {
			results = append(results, user)
		}
	}

	g.logger.Debug("Directory search finished", "query", query, "matches", len(results))
	return results, nil
}

// wait 按模拟延迟阻塞，上下文取消视作远端失败
func (g *SimulatedGateway) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// directory 远端用户目录（固定数据）
func directory(now time.Time) []model.Friend {
	return []model.Friend{
		{
			ID:            "7",
			Name:          "خالد الشريف",
			Avatar:        "https://images.pexels.com/photos/1681010/pexels-photo-1681010.jpeg",
			IsOnline:      true,
			LastSeen:      now,
			MutualFriends: 2,
			Location:      "طرابلس، ليبيا",
			JoinedDate:    time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:            "8",
			Name:          "نور الدين",
			Avatar:        "https://images.pexels.com/photos/1674752/pexels-photo-1674752.jpeg",
			IsOnline:      false,
			LastSeen:      now.Add(-30 * time.Minute),
			MutualFriends: 5,
			Location:      "بنغازي، ليبيا",
			JoinedDate:    time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC),
		},
	}
}
