package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"clinic-intake/internal/ingest"
)

const snapshotKeyPrefix = "intake:session:"

// SnapshotStore 把导入会话的可见状态序列化进 KV，供界面在请求之间重读。
// 快照只是派生状态的缓存：丢失后由会话重算，不影响正确性
type SnapshotStore struct {
	kv  KV
	ttl time.Duration
}

// NewSnapshotStore 创建 SnapshotStore；ttl<=0 表示不过期
func NewSnapshotStore(kv KV, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{kv: kv, ttl: ttl}
}

func snapshotKey(clinicID string) string {
	return snapshotKeyPrefix + clinicID
}

// Save 写入一家诊所的会话快照
func (s *SnapshotStore) Save(ctx context.Context, clinicID string, state ingest.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return s.kv.Set(ctx, snapshotKey(clinicID), string(data), s.ttl)
}

// Load 读取一家诊所的会话快照；无快照时返回 ErrMiss
func (s *SnapshotStore) Load(ctx context.Context, clinicID string) (*ingest.SessionState, error) {
	raw, err := s.kv.Get(ctx, snapshotKey(clinicID))
	if err != nil {
		return nil, err
	}
	var state ingest.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &state, nil
}

// ListClinics 列出当前持有快照的诊所 ID
func (s *SnapshotStore) ListClinics(ctx context.Context) ([]string, error) {
	keys, err := s.kv.ScanKeys(ctx, snapshotKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	clinics := make([]string, 0, len(keys))
	for _, k := range keys {
		clinics = append(clinics, strings.TrimPrefix(k, snapshotKeyPrefix))
	}
	return clinics, nil
}
