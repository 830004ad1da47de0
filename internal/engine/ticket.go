package engine

import (
	"strings"
)

// TicketSnapshot is an in-memory types.Ticket implementation. The HTTP
// surface builds one from the inline snapshot in an evaluate request and
// returns its final state; tests use it directly. Mutations apply
// immediately to the snapshot.
type TicketSnapshot struct {
	TicketID     string            `json:"ticket_id"`
	Subj         string            `json:"subject"`
	BodyText     string            `json:"body,omitempty"`
	HeaderMap    map[string]string `json:"headers,omitempty"`
	Prio         int               `json:"priority"`
	State        string            `json:"status"`
	QueueName    string            `json:"queue"`
	Requestor    []string          `json:"requestors,omitempty"`
	Recipient    []string          `json:"recipients,omitempty"`
	Cc           []string          `json:"cc,omitempty"`
	AdminCc      []string          `json:"admin_cc,omitempty"`
	Attachment   bool              `json:"has_attachment"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func (t *TicketSnapshot) ID() string                  { return t.TicketID }
func (t *TicketSnapshot) Subject() string             { return t.Subj }
func (t *TicketSnapshot) Body() string                { return t.BodyText }
func (t *TicketSnapshot) Headers() map[string]string  { return t.HeaderMap }
func (t *TicketSnapshot) Priority() int               { return t.Prio }
func (t *TicketSnapshot) Status() string              { return t.State }
func (t *TicketSnapshot) Queue() string               { return t.QueueName }
func (t *TicketSnapshot) Requestors() []string        { return t.Requestor }
func (t *TicketSnapshot) Recipients() []string        { return t.Recipient }
func (t *TicketSnapshot) HasAttachment() bool         { return t.Attachment }
func (t *TicketSnapshot) CustomField(name string) string {
	return t.CustomFields[name]
}

func (t *TicketSnapshot) SetSubject(s string) error  { t.Subj = s; return nil }
func (t *TicketSnapshot) SetPriority(p int) error    { t.Prio = p; return nil }
func (t *TicketSnapshot) SetStatus(s string) error   { t.State = s; return nil }
func (t *TicketSnapshot) SetQueue(q string) error    { t.QueueName = q; return nil }

func (t *TicketSnapshot) SetCustomField(name, value string) error {
	if t.CustomFields == nil {
		t.CustomFields = make(map[string]string)
	}
	t.CustomFields[name] = value
	return nil
}

func (t *TicketSnapshot) AddRequestor(email string) error {
	t.Requestor = addEmail(t.Requestor, email)
	return nil
}

func (t *TicketSnapshot) RemoveRequestor(email string) error {
	t.Requestor = removeEmail(t.Requestor, email)
	return nil
}

func (t *TicketSnapshot) AddCc(email string) error {
	t.Cc = addEmail(t.Cc, email)
	return nil
}

func (t *TicketSnapshot) RemoveCc(email string) error {
	t.Cc = removeEmail(t.Cc, email)
	return nil
}

func (t *TicketSnapshot) AddAdminCc(email string) error {
	t.AdminCc = addEmail(t.AdminCc, email)
	return nil
}

func (t *TicketSnapshot) RemoveAdminCc(email string) error {
	t.AdminCc = removeEmail(t.AdminCc, email)
	return nil
}

// addEmail appends without duplicating (case-insensitive).
func addEmail(list []string, email string) []string {
	for _, e := range list {
		if strings.EqualFold(e, email) {
			return list
		}
	}
	return append(list, email)
}

func removeEmail(list []string, email string) []string {
	out := list[:0]
	for _, e := range list {
		if !strings.EqualFold(e, email) {
			out = append(out, e)
		}
	}
	return out
}
