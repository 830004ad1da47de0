package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/triagekit/filtergate/internal/notify"
	"github.com/triagekit/filtergate/internal/types"
)

// Builtin action kind identifiers.
const (
	ActSubjectPrefix      = "SubjectPrefix"
	ActSubjectSuffix      = "SubjectSuffix"
	ActSubjectRemoveMatch = "SubjectRemoveMatch"
	ActSubjectSet         = "SubjectSet"
	ActPrioritySet        = "PrioritySet"
	ActPriorityAdd        = "PriorityAdd"
	ActPrioritySubtract   = "PrioritySubtract"
	ActStatusSet          = "StatusSet"
	ActQueueSet           = "QueueSet"
	ActCustomFieldSet     = "CustomFieldSet"
	ActRequestorAdd       = "RequestorAdd"
	ActRequestorRemove    = "RequestorRemove"
	ActCcAdd              = "CcAdd"
	ActCcRemove           = "CcRemove"
	ActCcAddGroup         = "CcAddGroup"
	ActAdminCcAdd         = "AdminCcAdd"
	ActAdminCcRemove      = "AdminCcRemove"
	ActAdminCcAddGroup    = "AdminCcAddGroup"
	ActReply              = "Reply"
	ActNotifyEmail        = "NotifyEmail"
	ActNotifyGroup        = "NotifyGroup"
	ActNoOp               = "NoOp"
)

func builtinActions() []ActionHandler {
	return []ActionHandler{
		{
			Kind: ActSubjectPrefix, DisplayName: "Add prefix to subject", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetSubject(a.Value + ev.Ticket.Subject())
			},
		},
		{
			Kind: ActSubjectSuffix, DisplayName: "Add suffix to subject", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetSubject(ev.Ticket.Subject() + a.Value)
			},
		},
		{
			Kind: ActSubjectRemoveMatch, DisplayName: "Remove text from subject", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetSubject(removeFold(ev.Ticket.Subject(), a.Value))
			},
		},
		{
			Kind: ActSubjectSet, DisplayName: "Set subject", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetSubject(a.Value)
			},
		},
		{
			Kind: ActPrioritySet, DisplayName: "Set priority", ValueType: types.ValueInteger,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				n, err := parsePriority(a.Value)
				if err != nil {
					return err
				}
				return ev.Ticket.SetPriority(n)
			},
		},
		{
			Kind: ActPriorityAdd, DisplayName: "Increase priority", ValueType: types.ValueInteger,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				n, err := parsePriority(a.Value)
				if err != nil {
					return err
				}
				return ev.Ticket.SetPriority(ev.Ticket.Priority() + n)
			},
		},
		{
			Kind: ActPrioritySubtract, DisplayName: "Decrease priority", ValueType: types.ValueInteger,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				n, err := parsePriority(a.Value)
				if err != nil {
					return err
				}
				return ev.Ticket.SetPriority(ev.Ticket.Priority() - n)
			},
		},
		{
			Kind: ActStatusSet, DisplayName: "Set status", ValueType: types.ValueStatus,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetStatus(a.Value)
			},
		},
		{
			Kind: ActQueueSet, DisplayName: "Move to queue", ValueType: types.ValueQueue,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetQueue(a.Value)
			},
		},
		{
			Kind: ActCustomFieldSet, DisplayName: "Set custom field", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.SetCustomField(a.CustomField, a.Value)
			},
		},
		{
			Kind: ActRequestorAdd, DisplayName: "Add requestor", ValueType: types.ValueEmail,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.AddRequestor(a.Value)
			},
		},
		{
			Kind: ActRequestorRemove, DisplayName: "Remove requestor", ValueType: types.ValueEmail,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.RemoveRequestor(a.Value)
			},
		},
		{
			Kind: ActCcAdd, DisplayName: "Add Cc watcher", ValueType: types.ValueEmail,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.AddCc(a.Value)
			},
		},
		{
			Kind: ActCcRemove, DisplayName: "Remove Cc watcher", ValueType: types.ValueEmail,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.RemoveCc(a.Value)
			},
		},
		{
			Kind: ActCcAddGroup, DisplayName: "Add group members as Cc watchers", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return forEachMember(env, a.NotifyTarget, ev.Ticket.AddCc)
			},
		},
		{
			Kind: ActAdminCcAdd, DisplayName: "Add AdminCc watcher", ValueType: types.ValueEmail,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.AddAdminCc(a.Value)
			},
		},
		{
			Kind: ActAdminCcRemove, DisplayName: "Remove AdminCc watcher", ValueType: types.ValueEmail,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return ev.Ticket.RemoveAdminCc(a.Value)
			},
		},
		{
			Kind: ActAdminCcAddGroup, DisplayName: "Add group members as AdminCc watchers", ValueType: types.ValueString,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return forEachMember(env, a.NotifyTarget, ev.Ticket.AddAdminCc)
			},
		},
		{
			Kind: ActReply, DisplayName: "Reply to requestors", ValueType: types.ValueString,
			Notification: true,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return send(ctx, env, notify.Notification{
					TicketID: ev.Ticket.ID(),
					To:       ev.Ticket.Requestors(),
					Subject:  "Re: " + ev.Ticket.Subject(),
					Body:     a.Value,
				})
			},
		},
		{
			Kind: ActNotifyEmail, DisplayName: "Notify email address", ValueType: types.ValueEmail,
			Notification: true,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return send(ctx, env, notify.Notification{
					TicketID: ev.Ticket.ID(),
					To:       []string{a.NotifyTarget},
					Subject:  ev.Ticket.Subject(),
					Body:     a.Value,
				})
			},
		},
		{
			Kind: ActNotifyGroup, DisplayName: "Notify group members", ValueType: types.ValueString,
			Notification: true,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				if env.Groups == nil {
					return fmt.Errorf("no group directory configured for %s", a.Kind)
				}
				members, err := env.Groups.Members(a.NotifyTarget)
				if err != nil {
					return fmt.Errorf("resolve group %q: %w", a.NotifyTarget, err)
				}
				return send(ctx, env, notify.Notification{
					TicketID: ev.Ticket.ID(),
					To:       members,
					Subject:  ev.Ticket.Subject(),
					Body:     a.Value,
				})
			},
		},
		{
			Kind: ActNoOp, DisplayName: "Do nothing", ValueType: types.ValueNone,
			Perform: func(ctx context.Context, ev *types.EventContext, a Action, env Env) error {
				return nil
			},
		},
	}
}

func parsePriority(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid priority value %q: %w", v, err)
	}
	return n, nil
}

func send(ctx context.Context, env Env, n notify.Notification) error {
	if env.Notifier == nil {
		return fmt.Errorf("no notifier configured")
	}
	return env.Notifier.Send(ctx, n)
}

func forEachMember(env Env, group string, add func(string) error) error {
	if env.Groups == nil {
		return fmt.Errorf("no group directory configured")
	}
	members, err := env.Groups.Members(group)
	if err != nil {
		return fmt.Errorf("resolve group %q: %w", group, err)
	}
	for _, m := range members {
		if err := add(m); err != nil {
			return err
		}
	}
	return nil
}

// removeFold removes every case-insensitive occurrence of substr from s.
// Falls back to exact matching when lowercasing changes byte offsets
// (non-ASCII case pairs of unequal width).
func removeFold(s, substr string) string {
	if substr == "" {
		return s
	}
	lower := strings.ToLower(s)
	lsub := strings.ToLower(substr)
	if len(lower) != len(s) || len(lsub) != len(substr) {
		return strings.ReplaceAll(s, substr, "")
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		j := strings.Index(lower[i:], lsub)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+j])
		i += j + len(lsub)
	}
	return b.String()
}
