package store

import (
	"context"
	"testing"
)

// TestMemoryStoreGetMissing 缺失的键返回 ok=false 且无错误
func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	value, ok, err := s.Get(context.Background(), KeyFriends)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if ok {
		t.Error("期望 ok = false")
	}
	if value != "" {
		t.Errorf("期望空值, 实际 = %s", value)
	}
}

// TestMemoryStoreRoundTrip 写入后读回
func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, KeyStories, `[{"id":"x"}]`); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	value, ok, err := s.Get(ctx, KeyStories)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if !ok {
		t.Fatal("期望 ok = true")
	}
	if value != `[{"id":"x"}]` {
		t.Errorf("期望读回写入值, 实际 = %s", value)
	}
}

// TestMemoryStoreOverwrite 重复写入覆盖旧值
func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, KeyFriends, "v1"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := s.Set(ctx, KeyFriends, "v2"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	value, _, _ := s.Get(ctx, KeyFriends)
	if value != "v2" {
		t.Errorf("期望 v2, 实际 = %s", value)
	}
}
