package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pricedesk/pricedesk/database/model"
	"github.com/pricedesk/pricedesk/logger"
	"github.com/pricedesk/pricedesk/store"
	"github.com/pricedesk/pricedesk/util/crypto"
	"github.com/pricedesk/pricedesk/util/mail"
	"github.com/pricedesk/pricedesk/util/random"
)

// AuthService checks and rotates the credentials kept in the Users sheet.
type AuthService struct {
	workbook *Workbook
	sender   mail.Sender
	audit    *AuditLogService
}

// NewAuthService wires the service. audit may be nil to disable audit logging.
func NewAuthService(workbook *Workbook, sender mail.Sender, audit *AuditLogService) *AuthService {
	return &AuthService{workbook: workbook, sender: sender, audit: audit}
}

// Login verifies email and password and returns the user's display name,
// which falls back to the email when the name cell is blank.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)

	users, err := s.workbook.Worksheet(ctx, model.UsersSheet)
	if err != nil {
		logger.Warning("login: open users sheet:", err)
		return "", fail(MsgConnectFailed, err)
	}
	records, err := users.ReadAll(ctx)
	if err != nil {
		logger.Warning("login: read users sheet:", err)
		return "", fail(MsgLoginError, err)
	}

	user := findUser(records, email)
	if user == nil {
		s.audit.LogAction(ctx, email, ActionLoginFailed, "email not registered")
		return "", fail(MsgNotRegistered, nil)
	}
	if !crypto.CheckPassword(user[model.UserPassword], password) {
		s.audit.LogAction(ctx, email, ActionLoginFailed, "wrong password")
		return "", fail(MsgWrongPassword, nil)
	}

	name := strings.TrimSpace(user[model.UserName])
	if name == "" {
		name = email
	}
	s.audit.LogAction(ctx, email, ActionLoginSuccess, "")
	return name, nil
}

// ChangePassword replaces the stored hash for email. The caller is trusted to
// have authenticated email already.
func (s *AuthService) ChangePassword(ctx context.Context, email, newPassword string) error {
	if err := crypto.ValidatePassword(newPassword); err != nil {
		return fail(MsgPasswordTooLong, err)
	}
	users, err := s.workbook.Worksheet(ctx, model.UsersSheet)
	if err != nil {
		logger.Warning("change password: open users sheet:", err)
		return fail(MsgChangeFailed, err)
	}
	row, err := users.FindRow(ctx, email)
	if err != nil {
		logger.Warningf("change password: find %s: %v", email, err)
		return fail(MsgChangeFailed, err)
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fail(MsgChangeFailed, err)
	}
	if err := users.UpdateCell(ctx, row, model.UserPasswordColumn, hash); err != nil {
		logger.Warningf("change password: update %s: %v", email, err)
		return fail(MsgChangeFailed, err)
	}
	s.audit.LogAction(ctx, email, ActionPasswordChanged, "")
	return nil
}

// ResetPassword generates a new password and mails it to email. The stored
// hash is only replaced after the mail went out, so a failed send leaves
// the old password working.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	users, err := s.workbook.Worksheet(ctx, model.UsersSheet)
	if err != nil {
		logger.Warning("reset password: open users sheet:", err)
		return fail(MsgConnectFailed, err)
	}
	row, err := users.FindRow(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return fail(MsgNotRegistered, nil)
	} else if err != nil {
		logger.Warningf("reset password: find %s: %v", email, err)
		return fail(MsgResetFailed, err)
	}

	newPassword := random.Password(random.DefaultPasswordLength)
	if err := s.sender.SendPasswordReset(ctx, email, newPassword); err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			logger.Warning("reset password: mail sender is not configured")
			return fail(MsgMailNotConfigured, err)
		}
		logger.Warning("reset password:", err)
		return fail(MsgSendFailed, err)
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fail(MsgResetFailed, err)
	}
	if err := users.UpdateCell(ctx, row, model.UserPasswordColumn, hash); err != nil {
		logger.Errorf("reset password: mailed a new password to %s but could not store it: %v", email, err)
		return fail(MsgResetFailed, err)
	}
	s.audit.LogAction(ctx, email, ActionPasswordReset, "")
	return nil
}

// findUser returns the first record whose trimmed email equals email.
func findUser(records *store.Records, email string) store.Record {
	for _, r := range records.Rows {
		if strings.TrimSpace(r[model.UserEmail]) == email {
			return r
		}
	}
	return nil
}
