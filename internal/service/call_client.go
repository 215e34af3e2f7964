package service

import (
	"context"
	"fmt"
	"time"

	"clinic-intake/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CallTrigger 外呼触发抽象：把一条待呼预约交给外部呼叫工作流
type CallTrigger interface {
	TriggerCall(ctx context.Context, appt domain.Appointment) error
}

// callPayload 发给外呼 webhook 的请求体
type callPayload struct {
	AppointmentID   string `json:"appointmentId"`
	ClinicID        string `json:"clinicId"`
	PatientName     string `json:"patient_name"`
	Phone           string `json:"phone"`
	DoctorName      string `json:"doctor_name,omitempty"`
	AppointmentDay  string `json:"appointment_day"`
	AppointmentTime string `json:"appointment_time,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

// WebhookCallClient 通过 HTTP webhook 触发外呼的客户端
type WebhookCallClient struct {
	httpClient *resty.Client
	webhookURL string
	logger     *zap.Logger
}

// NewWebhookCallClient 创建外呼 webhook 客户端
func NewWebhookCallClient(webhookURL string, timeout time.Duration, logger *zap.Logger) *WebhookCallClient {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookCallClient{
		httpClient: client,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

var _ CallTrigger = (*WebhookCallClient)(nil)

// TriggerCall 把一条预约投递给外呼工作流；非 2xx 响应视为触发失败
func (c *WebhookCallClient) TriggerCall(ctx context.Context, appt domain.Appointment) error {
	payload := callPayload{
		AppointmentID:   appt.AppointmentID,
		ClinicID:        appt.ClinicID,
		PatientName:     appt.PatientName,
		Phone:           appt.Phone,
		DoctorName:      appt.DoctorName,
		AppointmentDay:  appt.AppointmentDay,
		AppointmentTime: appt.AppointmentTime,
		Summary:         appt.Summary,
	}

	c.logger.Info("triggering outbound call",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("clinic_id", appt.ClinicID),
	)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.webhookURL)
	if err != nil {
		c.logger.Error("call webhook request failed",
			zap.String("appointment_id", appt.AppointmentID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("call webhook returned error status",
			zap.String("appointment_id", appt.AppointmentID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("call webhook returned status %d", resp.StatusCode())
	}
	return nil
}
