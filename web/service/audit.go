package service

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"

	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/store"
)

// Audit actions written to the Logs sheet.
const (
	ActionLoginSuccess    = "LOGIN_SUCCESS"
	ActionLoginFailed     = "LOGIN_FAILED"
	ActionPasswordChanged = "PASSWORD_CHANGED"
	ActionPasswordReset   = "PASSWORD_RESET"
)

const auditTimeFormat = "2006-01-02 15:04:05"

// auditZone is the desk's civil time, a fixed UTC+8 offset.
var auditZone = time.FixedZone("UTC+8", 8*60*60)

// AuditLogService appends login and password events to the Logs sheet.
type AuditLogService struct {
	workbook *Workbook
	clock    clock.Clock
}

func NewAuditLogService(workbook *Workbook, clk clock.Clock) *AuditLogService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &AuditLogService{workbook: workbook, clock: clk}
}

// LogAction appends one entry. It is best effort: a workbook without a Logs
// sheet is skipped silently and any other failure is only logged.
func (s *AuditLogService) LogAction(ctx context.Context, actor, action, note string) {
	if s == nil {
		return
	}
	logs, err := s.workbook.Worksheet(ctx, model.LogsSheet)
	if errors.Is(err, store.ErrNotFound) {
		return
	} else if err != nil {
		logger.Warningf("Failed to open audit log: actor=%s, action=%s, error=%v", actor, action, err)
		return
	}
	entry := []string{s.timestamp(), actor, action, note}
	if err := logs.AppendRow(ctx, entry); err != nil {
		logger.Warningf("Failed to create audit log: actor=%s, action=%s, error=%v", actor, action, err)
	}
}

func (s *AuditLogService) timestamp() string {
	return s.clock.Now().In(auditZone).Format(auditTimeFormat)
}
