package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// ActivitySimulator 后台活动模拟器
// 引擎实例拥有的周期定时器：每个周期做一次二元随机选择，
// 注入一条合成好友请求（低于待处理上限时）或一条合成故事（存在好友时），
// 合成实体走和用户命令完全相同的变更/持久化路径。
// 定时器随引擎退出显式停止，重复停止是 no-op
type ActivitySimulator struct {
	svc        *FriendService
	interval   time.Duration
	pendingCap int
	logger     *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	rng       *rand.Rand
	running   bool
	runningMu sync.Mutex
}

// NewActivitySimulator 创建后台活动模拟器
func NewActivitySimulator(svc *FriendService, interval time.Duration, pendingCap int) *ActivitySimulator {
	ctx, cancel := context.WithCancel(context.Background())

	return &ActivitySimulator{
		svc:        svc,
		interval:   interval,
		pendingCap: pendingCap,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start 启动模拟器
func (s *ActivitySimulator) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return fmt.Errorf("模拟器已经在运行中")
	}
	s.running = true
	s.runningMu.Unlock()

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("Activity simulator started",
		"interval", s.interval,
		"pendingCap", s.pendingCap)
	return nil
}

// tickLoop 定时循环协程
func (s *ActivitySimulator) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Activity simulator loop exited")
			return

		case <-ticker.C:
			s.tick(s.ctx)
		}
	}
}

// tick 单次注入
// 选中请求分支但已达上限、或选中故事分支但没有好友时，本周期不注入
func (s *ActivitySimulator) tick(ctx context.Context) {
	if s.rng.Intn(2) == 0 {
		if !s.svc.injectSyntheticRequest(ctx, s.pendingCap) {
			s.logger.Debug("Pending request cap reached, skipping injection")
		}
	} else {
		if !s.svc.injectSyntheticStory(ctx) {
			s.logger.Debug("No friends to attribute a story to, skipping injection")
		}
	}
}

// Stop 停止模拟器
// 幂等：重复调用是 no-op；返回前等待循环协程退出，
// 保证停止之后不会再有注入发生
func (s *ActivitySimulator) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.logger.Info("Activity simulator stopped")
}

// IsRunning 检查模拟器是否运行中
func (s *ActivitySimulator) IsRunning() bool {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	return s.running
}
