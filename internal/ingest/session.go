package ingest

import (
	"regexp"
	"strings"

	"clinic-intake/internal/domain"

	"go.uber.org/zap"
)

// Stage 会话的派生就绪度，由文件数和校验结果推导，不能独立设置
type Stage int

const (
	// StageAwaitingFirstFile 还没有文件
	StageAwaitingFirstFile Stage = 1
	// StageAwaitingMoreFields 有缺失字段或日期冲突，需要更多文件或人工修补
	StageAwaitingMoreFields Stage = 2
	// StageReadyToCommit 全部必填字段就绪且无冲突
	StageReadyToCommit Stage = 3
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingFirstFile:
		return "awaiting_first_file"
	case StageAwaitingMoreFields:
		return "awaiting_more_fields"
	case StageReadyToCommit:
		return "ready_to_commit"
	}
	return "unknown"
}

// FileInput 一个待导入文件：文件名（含扩展名）+ 原始字节
type FileInput struct {
	FileName string
	Data     []byte
}

// Session 导入会话状态机。单写者模型：一个会话只被一条调用序列驱动，
// 不支持并发修改；并发场景下每个会话各自持有独立状态，无共享可变全局
type Session struct {
	reader *TableReader
	merge  *MergeEngine
	logger *zap.Logger

	files  []domain.UploadedFile
	merged []*domain.CanonicalRecord
	result ValidationResult
	stage  Stage
}

// NewSession 创建空会话（stage 1）
func NewSession(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		reader: NewTableReader(logger),
		merge:  NewMergeEngine(),
		logger: logger,
	}
	s.recompute()
	return s
}

// AddFiles 解析并追加一批文件，然后对累计文件集整体重跑合并+校验。
// 单个文件解析失败只影响它自己：失败的文件记入返回值，
// 其余文件照常并入会话（不再像旧行为那样整批中止）
func (s *Session) AddFiles(inputs ...FileInput) []*FileError {
	var fileErrs []*FileError
	added := 0

	for _, in := range inputs {
		rawRows, cols, err := s.reader.Read(in.Data, in.FileName)
		if err != nil {
			s.logger.Warn("file rejected",
				zap.String("file_name", in.FileName),
				zap.Error(err),
			)
			fileErrs = append(fileErrs, &FileError{FileName: in.FileName, Err: err})
			continue
		}

		rows := make([]domain.CanonicalRecord, 0, len(rawRows))
		for _, raw := range rawRows {
			rows = append(rows, Canonicalize(raw))
		}
		s.files = append(s.files, domain.UploadedFile{
			FileName:       in.FileName,
			Rows:           rows,
			ColumnsPresent: cols,
		})
		added++
	}

	if added > 0 {
		s.recompute()
		s.logger.Info("files ingested",
			zap.Int("added", added),
			zap.Int("total_files", len(s.files)),
			zap.Int("merged_records", len(s.merged)),
			zap.Int("stage", int(s.stage)),
		)
	}
	return fileErrs
}

// recompute 对累计文件集从头重算合并结果，再走校验和阶段推导
func (s *Session) recompute() {
	if len(s.files) == 0 {
		s.merged = nil
		s.result = ValidationResult{MissingFieldUnion: append([]domain.FieldName(nil), domain.RequiredFields...)}
		s.stage = StageAwaitingFirstFile
		return
	}

	batches := make([][]domain.CanonicalRecord, 0, len(s.files))
	for _, f := range s.files {
		batches = append(batches, f.Rows)
	}
	s.merged = s.merge.Merge(batches...)
	s.revalidate()
}

// revalidate 只重跑校验和阶段推导，不动合并集（FixRecord 用）
func (s *Session) revalidate() {
	s.result = Validate(s.merged, domain.RequiredFields)
	switch {
	case len(s.files) == 0:
		s.stage = StageAwaitingFirstFile
	case s.result.Conflict != nil || len(s.result.MissingFieldUnion) > 0:
		s.stage = StageAwaitingMoreFields
	default:
		s.stage = StageReadyToCommit
	}
}

// FixRecord 对单条合并记录做定点修补，然后只重新校验（不重新合并）。
// 电话和日期走与导入相同的归一化，保证修补后的记录满足同样的不变量
func (s *Session) FixRecord(id string, patch map[domain.FieldName]string) error {
	var target *domain.CanonicalRecord
	for _, rec := range s.merged {
		if rec.ID == id {
			target = rec
			break
		}
	}
	if target == nil {
		return ErrRecordNotFound
	}

	for f, v := range patch {
		v = strings.TrimSpace(v)
		switch f {
		case domain.FieldPhone:
			v = NormPhone(v)
		case domain.FieldAppointmentDay:
			v = NormDate(v)
		case domain.FieldHealthNumber, domain.FieldInsuranceNumber:
			v = Digits(v)
		}
		target.Set(f, v)
	}

	s.revalidate()
	s.logger.Info("record fixed",
		zap.String("record_id", id),
		zap.Int("stage", int(s.stage)),
	)
	return nil
}

// Reset 清空会话，回到 stage 1。随时安全：Commit 之前没有任何外部副作用
func (s *Session) Reset() {
	s.files = nil
	s.merged = nil
	s.recompute()
}

// Stage 当前阶段
func (s *Session) Stage() Stage { return s.stage }

// Files 已导入文件（追加顺序）
func (s *Session) Files() []domain.UploadedFile { return s.files }

// MergedRecords 当前合并集
func (s *Session) MergedRecords() []*domain.CanonicalRecord { return s.merged }

// MissingFieldUnion 所有记录缺失必填字段的并集
func (s *Session) MissingFieldUnion() []domain.FieldName { return s.result.MissingFieldUnion }

// Incomplete 缺必填字段的记录及缺失清单
func (s *Session) Incomplete() []IncompleteRecord { return s.result.Incomplete }

// MergeError 日期冲突错误，无冲突时为 nil
func (s *Session) MergeError() error {
	if s.result.Conflict == nil {
		return nil
	}
	return s.result.Conflict
}

// timeOfDayPattern 合法时间开头：H:MM 或 HH:MM
var timeOfDayPattern = regexp.MustCompile(`^\d{1,2}:\d{2}`)

// leadingGarbage 时间串前的非数字杂质（如 "V04:45 PM"）
var leadingGarbage = regexp.MustCompile(`^[^\d]*`)

// Commit 产出可持久化的预约列表。只在 stage 3 合法；stage 2 仅当调用方
// 显式确认"只保存完整记录"（confirmPartial）时放行——不完整记录会被丢弃，
// 所以确认必须是显式入参而不是默认行为。日期冲突一律阻止提交。
// 不修改会话状态，提交成功后由调用方自行 Reset
func (s *Session) Commit(confirmPartial bool) ([]domain.Appointment, error) {
	if s.stage == StageAwaitingFirstFile {
		return nil, ErrNoFiles
	}
	if s.result.Conflict != nil {
		return nil, s.result.Conflict
	}
	if len(s.result.Complete) == 0 {
		return nil, ErrNoCompleteRecords
	}
	if len(s.result.Incomplete) > 0 && !confirmPartial {
		return nil, &PartialCommitError{
			Incomplete: len(s.result.Incomplete),
			Complete:   len(s.result.Complete),
		}
	}

	appts := make([]domain.Appointment, 0, len(s.result.Complete))
	for _, rec := range s.result.Complete {
		appts = append(appts, buildAppointment(rec))
	}
	return appts, nil
}

// buildAppointment 组装提交载荷：修剪时间串的前导杂质；有日期而时间缺失
// 或不合法时默认 09:00 AM；最终时间戳为 "日期 时间"
func buildAppointment(rec *domain.CanonicalRecord) domain.Appointment {
	t := leadingGarbage.ReplaceAllString(rec.AppointmentTime, "")
	day := rec.AppointmentDay
	if day != "" && !timeOfDayPattern.MatchString(t) {
		t = "09:00 AM"
	}
	timestamp := ""
	if day != "" && t != "" {
		timestamp = day + " " + t
	}
	return domain.Appointment{
		PatientName:     rec.PatientName,
		Phone:           rec.Phone,
		DoctorName:      rec.DoctorName,
		AppointmentDay:  day,
		AppointmentTime: timestamp,
		Summary:         rec.AppointmentReason,
		Status:          domain.StatusPending,
	}
}

// FileSummary 文件列表项（stage 展示用）
type FileSummary struct {
	FileName string `json:"file_name"`
	RowCount int    `json:"row_count"`
}

// IncompleteSummary 不完整记录的标识和缺失字段
type IncompleteSummary struct {
	ID      string             `json:"id"`
	Missing []domain.FieldName `json:"missing"`
}

// SessionState 会话对调用方/界面的完整可见状态。
// 任何错误之后状态仍然可读，调用方可以继续 AddFiles/FixRecord 而不必重来
type SessionState struct {
	Stage         int                      `json:"stage"`
	StageName     string                   `json:"stage_name"`
	Files         []FileSummary            `json:"files"`
	MergedRecords []domain.CanonicalRecord `json:"merged_records"`
	MissingFields []domain.FieldName       `json:"missing_fields"`
	MergeError    string                   `json:"merge_error,omitempty"`
	Incomplete    []IncompleteSummary      `json:"incomplete,omitempty"`
}

// Snapshot 导出当前状态的值拷贝（可直接序列化存入 KV）
func (s *Session) Snapshot() SessionState {
	state := SessionState{
		Stage:         int(s.stage),
		StageName:     s.stage.String(),
		Files:         make([]FileSummary, 0, len(s.files)),
		MergedRecords: make([]domain.CanonicalRecord, 0, len(s.merged)),
		MissingFields: s.result.MissingFieldUnion,
	}
	for _, f := range s.files {
		state.Files = append(state.Files, FileSummary{FileName: f.FileName, RowCount: len(f.Rows)})
	}
	for _, rec := range s.merged {
		state.MergedRecords = append(state.MergedRecords, *rec)
	}
	if s.result.Conflict != nil {
		state.MergeError = s.result.Conflict.Error()
	}
	for _, inc := range s.result.Incomplete {
		state.Incomplete = append(state.Incomplete, IncompleteSummary{ID: inc.Record.ID, Missing: inc.Missing})
	}
	return state
}
