package service

import (
	"context"
	"fmt"
	"sync"

	"clinic-intake/internal/domain"
	"clinic-intake/internal/ingest"
	"clinic-intake/internal/repository"
	"clinic-intake/internal/store"

	"go.uber.org/zap"
)

// IntakeService 排程导入服务接口：每家诊所一个导入会话
type IntakeService interface {
	// 导入
	UploadFiles(ctx context.Context, clinicID string, files ...ingest.FileInput) (*ingest.SessionState, []*ingest.FileError, error)
	GetState(ctx context.Context, clinicID string) (*ingest.SessionState, error)

	// 修补/重置
	FixRecord(ctx context.Context, clinicID, recordID string, patch map[domain.FieldName]string) (*ingest.SessionState, error)
	ResetSession(ctx context.Context, clinicID string) (*ingest.SessionState, error)

	// 提交与外呼
	Commit(ctx context.Context, clinicID string, confirmPartial bool) (*CommitResult, error)
	TriggerPendingCalls(ctx context.Context, clinicID string) (*CallRunResult, error)
}

// CommitResult 提交结论
type CommitResult struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"` // 确认部分提交时被丢弃的不完整记录数
}

// CallRunResult 外呼触发结论
type CallRunResult struct {
	Triggered int `json:"triggered"`
	Failed    int `json:"failed"`
}

// intakeService 实现
type intakeService struct {
	mu       sync.Mutex
	sessions map[string]*ingest.Session

	repo      repository.AppointmentsRepository
	snapshots *store.SnapshotStore // 可为 nil（KV 未配置时跳过快照）
	calls     CallTrigger          // 可为 nil（未配置 webhook 时禁用外呼）
	logger    *zap.Logger
}

// NewIntakeService 创建 IntakeService 实例
func NewIntakeService(repo repository.AppointmentsRepository, snapshots *store.SnapshotStore, calls CallTrigger, logger *zap.Logger) IntakeService {
	return &intakeService{
		sessions:  map[string]*ingest.Session{},
		repo:      repo,
		snapshots: snapshots,
		calls:     calls,
		logger:    logger,
	}
}

// session 取出（或懒创建）某诊所的会话
func (s *intakeService) session(clinicID string) *ingest.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[clinicID]
	if !ok {
		sess = ingest.NewSession(s.logger.With(zap.String("clinic_id", clinicID)))
		s.sessions[clinicID] = sess
	}
	return sess
}

// saveSnapshot 尽力而为地落快照；失败只记日志，不影响主流程
func (s *intakeService) saveSnapshot(ctx context.Context, clinicID string, state ingest.SessionState) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, clinicID, state); err != nil {
		s.logger.Warn("failed to save session snapshot",
			zap.String("clinic_id", clinicID),
			zap.Error(err),
		)
	}
}

func (s *intakeService) UploadFiles(ctx context.Context, clinicID string, files ...ingest.FileInput) (*ingest.SessionState, []*ingest.FileError, error) {
	if clinicID == "" {
		return nil, nil, fmt.Errorf("clinic_id is required")
	}
	sess := s.session(clinicID)
	fileErrs := sess.AddFiles(files...)
	state := sess.Snapshot()
	s.saveSnapshot(ctx, clinicID, state)
	return &state, fileErrs, nil
}

func (s *intakeService) GetState(_ context.Context, clinicID string) (*ingest.SessionState, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	state := s.session(clinicID).Snapshot()
	return &state, nil
}

func (s *intakeService) FixRecord(ctx context.Context, clinicID, recordID string, patch map[domain.FieldName]string) (*ingest.SessionState, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	sess := s.session(clinicID)
	if err := sess.FixRecord(recordID, patch); err != nil {
		return nil, err
	}
	state := sess.Snapshot()
	s.saveSnapshot(ctx, clinicID, state)
	return &state, nil
}

func (s *intakeService) ResetSession(ctx context.Context, clinicID string) (*ingest.SessionState, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	sess := s.session(clinicID)
	sess.Reset()
	state := sess.Snapshot()
	s.saveSnapshot(ctx, clinicID, state)
	return &state, nil
}

// Commit 把完整记录写入持久层。成功后重置会话（与界面"保存即清空上传区"的
// 语义一致）；持久化失败时会话保持原状，调用方可修正后重试
func (s *intakeService) Commit(ctx context.Context, clinicID string, confirmPartial bool) (*CommitResult, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	sess := s.session(clinicID)

	appts, err := sess.Commit(confirmPartial)
	if err != nil {
		return nil, err
	}
	skipped := len(sess.Incomplete())

	saved, err := s.repo.InsertBatch(ctx, clinicID, appts)
	if err != nil {
		return nil, fmt.Errorf("failed to persist appointments: %w", err)
	}

	s.logger.Info("appointments committed",
		zap.String("clinic_id", clinicID),
		zap.Int("saved", saved),
		zap.Int("skipped", skipped),
	)

	sess.Reset()
	s.saveSnapshot(ctx, clinicID, sess.Snapshot())
	return &CommitResult{Saved: saved, Skipped: skipped}, nil
}

// TriggerPendingCalls 为每条 pending 预约触发一次外呼；
// 触发成功的标记为 calling，失败的保持 pending 以便重试
func (s *intakeService) TriggerPendingCalls(ctx context.Context, clinicID string) (*CallRunResult, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	if s.calls == nil {
		return nil, fmt.Errorf("call trigger is not configured")
	}

	pending, err := s.repo.ListPending(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending appointments: %w", err)
	}

	res := &CallRunResult{}
	for _, appt := range pending {
		if err := s.calls.TriggerCall(ctx, appt); err != nil {
			res.Failed++
			continue
		}
		if err := s.repo.UpdateStatus(ctx, appt.AppointmentID, domain.StatusCalling); err != nil {
			s.logger.Warn("call triggered but status update failed",
				zap.String("appointment_id", appt.AppointmentID),
				zap.Error(err),
			)
		}
		res.Triggered++
	}

	s.logger.Info("pending calls processed",
		zap.String("clinic_id", clinicID),
		zap.Int("triggered", res.Triggered),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
