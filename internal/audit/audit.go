package audit

import (
	"context"

	"github.com/folioserve/folio-live/pkg/log"
)

// Audit actions.
const (
	ActionContentCreate  = "content.create"
	ActionContentUpdate  = "content.update"
	ActionContentDelete  = "content.delete"
	ActionAboutUpdate    = "about.update"
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionContactReceive = "contact.receive"
	ActionUpload         = "upload.write"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDomain = "domain"
	FieldItemID = "item_id"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, domainName, itemID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldDomain, domainName).
		Str(FieldItemID, itemID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldDetail, detail).
		Msg(msg)
}
