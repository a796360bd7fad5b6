package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendawaks/dialogate/internal/backend"
)

// Intent names as configured in the NLU agent.
const (
	LeavePolicyInquiry = "LeavePolicyInquiry"
	PayrollQuery       = "Payroll_Query"
	HRContactInfo      = "HR_Contact_Information"
	AskLLM             = "AskDeepSeek"
)

// HRBackend is the subset of backend.Client the handlers use.
type HRBackend interface {
	LeaveBalance(ctx context.Context, employeeID, leaveType string) (backend.Record, error)
	PayrollInfo(ctx context.Context, employeeID, topic string) (backend.Record, error)
	HRContact(ctx context.Context, department string) (backend.Record, error)
}

// Completer answers free-form questions.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HRHandlers builds the dispatch table for the HR assistant. llm may be nil.
func HRHandlers(hr HRBackend, llm Completer, logger *slog.Logger) map[string]Handler {
	h := &hrHandlers{hr: hr, llm: llm, logger: logger.With("component", "intent")}
	return map[string]Handler{
		LeavePolicyInquiry: {RequiresIdentity: true, Fn: h.leave},
		PayrollQuery:       {RequiresIdentity: true, Fn: h.payroll},
		HRContactInfo:      {Fn: h.contact},
		AskLLM:             {Fn: h.ask},
	}
}

// NewHRDispatcher is NewDispatcher over HRHandlers with the default fallback.
func NewHRDispatcher(logger *slog.Logger, resolver IdentityResolver, hr HRBackend, llm Completer) *Dispatcher {
	return NewDispatcher(logger, resolver, HRHandlers(hr, llm, logger), Handler{})
}

type hrHandlers struct {
	hr     HRBackend
	llm    Completer
	logger *slog.Logger
}

func (h *hrHandlers) leave(ctx context.Context, req Request) string {
	leaveType := strings.TrimSpace(req.Param("leaveType"))
	if leaveType == "" {
		return MsgAskLeaveType
	}

	rec, err := h.hr.LeaveBalance(ctx, req.Identity.UserID, leaveType)
	if err != nil {
		h.logger.Warn("leave balance lookup failed",
			"employee_id", req.Identity.UserID, "leave_type", leaveType, "error", err)
		switch backend.KindOf(err) {
		case backend.KindStatus:
			return msgLeaveStatus
		case backend.KindNetwork, backend.KindTimeout:
			return msgLeaveNetwork
		case backend.KindDecode:
			return msgLeaveUnavailable
		default:
			return msgLeaveUnexpected
		}
	}

	kind, balance := rec.Text("leavetype"), rec.Text("balance")
	if kind == "" || balance == "" {
		return fmt.Sprintf(msgLeaveNotFound, leaveType)
	}
	return fmt.Sprintf(msgLeaveBalance, kind, balance)
}

func (h *hrHandlers) payroll(ctx context.Context, req Request) string {
	topic := strings.TrimSpace(req.Param("payrollTopic"))
	if topic == "" {
		return MsgAskPayroll
	}

	rec, err := h.hr.PayrollInfo(ctx, req.Identity.UserID, topic)
	if err != nil {
		h.logger.Warn("payroll lookup failed",
			"employee_id", req.Identity.UserID, "topic", topic, "error", err)
		if backend.KindOf(err) == backend.KindDecode {
			return msgPayrollUnavailable
		}
		return msgPayrollError
	}

	switch {
	case strings.EqualFold(topic, "pay dates"):
		if d := rec.Text("next_pay_date"); d != "" {
			return fmt.Sprintf(msgPayDate, d)
		}
	case strings.EqualFold(topic, "pay stubs"):
		if link := rec.Text("portal_link"); link != "" {
			return fmt.Sprintf(msgPayStub, link)
		}
	}
	return fmt.Sprintf(msgPayrollNotFound, topic)
}

func (h *hrHandlers) contact(ctx context.Context, req Request) string {
	dept := strings.TrimSpace(req.Param("department"))
	if dept == "" {
		return MsgAskDepartment
	}

	rec, err := h.hr.HRContact(ctx, dept)
	if err != nil {
		h.logger.Warn("hr contact lookup failed", "department", dept, "error", err)
		if backend.KindOf(err) == backend.KindDecode {
			return msgContactUnavailable
		}
		return msgContactError
	}

	name, email := rec.Text("name"), rec.Text("email")
	if name == "" || email == "" {
		return fmt.Sprintf(msgContactNotFound, dept)
	}
	return fmt.Sprintf(msgContact, dept, name, email)
}

func (h *hrHandlers) ask(ctx context.Context, req Request) string {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return MsgAskLLMQuestion
	}
	if h.llm == nil {
		return msgLLMError
	}

	answer, err := h.llm.Complete(ctx, text)
	if err != nil {
		h.logger.Warn("completion failed", "session_id", req.SessionID, "error", err)
		return msgLLMError
	}
	return answer
}
