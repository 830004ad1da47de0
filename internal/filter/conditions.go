package filter

import (
	"strconv"
	"strings"

	"github.com/triagekit/filtergate/internal/types"
)

/*
 * Builtin condition kinds.
 *
 * Semantics:
 *   - Equality kinds: exact match against the event/ticket attribute
 *     (case-insensitive for emails, statuses, and queue names).
 *   - Substring kinds: case-insensitive substring test.
 *   - RequestorEmailDomainIs: case-insensitive domain suffix test.
 *   - PriorityUnder/Over: strict < / > against ticket priority.
 *   - HasAttachment: presence test, ignores the candidate value.
 *   - AlwaysMatch: always true, value type None.
 *
 * FromQueue and ToQueue only make sense for queue transfers and are limited
 * to the queue-move trigger; conditions using them short-circuit to no match
 * on other triggers.
 */

// Builtin condition kind identifiers.
const (
	CondAlwaysMatch            = "AlwaysMatch"
	CondInQueue                = "InQueue"
	CondFromQueue              = "FromQueue"
	CondToQueue                = "ToQueue"
	CondRequestorEmailIs       = "RequestorEmailIs"
	CondRequestorEmailDomainIs = "RequestorEmailDomainIs"
	CondRecipientEmailIs       = "RecipientEmailIs"
	CondSubjectContains        = "SubjectContains"
	CondSubjectOrBodyContains  = "SubjectOrBodyContains"
	CondBodyContains           = "BodyContains"
	CondHeaderContains         = "HeaderContains"
	CondHasAttachment          = "HasAttachment"
	CondPriorityIs             = "PriorityIs"
	CondPriorityUnder          = "PriorityUnder"
	CondPriorityOver           = "PriorityOver"
	CondCustomFieldIs          = "CustomFieldIs"
	CondCustomFieldContains    = "CustomFieldContains"
	CondStatusIs               = "StatusIs"
)

func builtinConditions() []ConditionHandler {
	queueMoveOnly := []types.TriggerType{types.TriggerQueueMove}

	return []ConditionHandler{
		{
			Kind: CondAlwaysMatch, DisplayName: "Always match", ValueType: types.ValueNone,
			Test: func(ev *types.EventContext, c Condition, v string) bool { return true },
		},
		{
			Kind: CondInQueue, DisplayName: "Ticket is in queue", ValueType: types.ValueQueue,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return strings.EqualFold(ev.ToQueue, v)
			},
		},
		{
			Kind: CondFromQueue, DisplayName: "Ticket moved from queue", ValueType: types.ValueQueue,
			TriggerTypes: queueMoveOnly,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return strings.EqualFold(ev.FromQueue, v)
			},
		},
		{
			Kind: CondToQueue, DisplayName: "Ticket moved to queue", ValueType: types.ValueQueue,
			TriggerTypes: queueMoveOnly,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return strings.EqualFold(ev.ToQueue, v)
			},
		},
		{
			Kind: CondRequestorEmailIs, DisplayName: "Requestor email is", ValueType: types.ValueEmail,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return anyEqualFold(ev.Ticket.Requestors(), v)
			},
		},
		{
			Kind: CondRequestorEmailDomainIs, DisplayName: "Requestor email domain is", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				for _, addr := range ev.Ticket.Requestors() {
					if domainSuffix(addr, v) {
						return true
					}
				}
				return false
			},
		},
		{
			Kind: CondRecipientEmailIs, DisplayName: "Recipient email is", ValueType: types.ValueEmail,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return anyEqualFold(ev.Ticket.Recipients(), v)
			},
		},
		{
			Kind: CondSubjectContains, DisplayName: "Subject contains", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return containsFold(ev.Ticket.Subject(), v)
			},
		},
		{
			Kind: CondSubjectOrBodyContains, DisplayName: "Subject or body contains", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return containsFold(ev.Ticket.Subject(), v) || containsFold(ev.Ticket.Body(), v)
			},
		},
		{
			Kind: CondBodyContains, DisplayName: "Body contains", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return containsFold(ev.Ticket.Body(), v)
			},
		},
		{
			Kind: CondHeaderContains, DisplayName: "Header contains", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				for name, val := range ev.Ticket.Headers() {
					if containsFold(name+": "+val, v) {
						return true
					}
				}
				return false
			},
		},
		{
			Kind: CondHasAttachment, DisplayName: "Ticket has an attachment", ValueType: types.ValueNone,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return ev.Ticket.HasAttachment()
			},
		},
		{
			Kind: CondPriorityIs, DisplayName: "Priority is", ValueType: types.ValueInteger,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				n, err := strconv.Atoi(strings.TrimSpace(v))
				return err == nil && ev.Ticket.Priority() == n
			},
		},
		{
			Kind: CondPriorityUnder, DisplayName: "Priority is under", ValueType: types.ValueInteger,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				n, err := strconv.Atoi(strings.TrimSpace(v))
				return err == nil && ev.Ticket.Priority() < n
			},
		},
		{
			Kind: CondPriorityOver, DisplayName: "Priority is over", ValueType: types.ValueInteger,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				n, err := strconv.Atoi(strings.TrimSpace(v))
				return err == nil && ev.Ticket.Priority() > n
			},
		},
		{
			Kind: CondCustomFieldIs, DisplayName: "Custom field equals", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return strings.EqualFold(ev.Ticket.CustomField(c.CustomField), v)
			},
		},
		{
			Kind: CondCustomFieldContains, DisplayName: "Custom field contains", ValueType: types.ValueString,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return containsFold(ev.Ticket.CustomField(c.CustomField), v)
			},
		},
		{
			Kind: CondStatusIs, DisplayName: "Status is", ValueType: types.ValueStatus,
			Test: func(ev *types.EventContext, c Condition, v string) bool {
				return strings.EqualFold(ev.Ticket.Status(), v)
			},
		},
	}
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// anyEqualFold reports whether any element equals v, case-insensitively.
func anyEqualFold(vals []string, v string) bool {
	for _, s := range vals {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// domainSuffix reports whether the address's domain is the given domain or a
// subdomain of it. "bob@mail.example.com" matches both "mail.example.com"
// and "example.com", never "ample.com".
func domainSuffix(addr, domain string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 || domain == "" {
		return false
	}
	have := strings.ToLower(addr[at+1:])
	want := strings.ToLower(strings.TrimPrefix(domain, "@"))
	return have == want || strings.HasSuffix(have, "."+want)
}
