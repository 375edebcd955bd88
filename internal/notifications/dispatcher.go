// Package notifications emails residents and admins when a report or permit
// changes status. Mail is rendered here and delivered by the queue worker.
package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/logging"
	"github.com/siwarga/rwrt-backend/internal/projection"
	"github.com/siwarga/rwrt-backend/internal/queue"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/records"
)

// defines a set of recipients and the email template they receive.
type NotifierGroup struct {
	Emails       []string
	Template     string
	TemplateData map[string]interface{}
}

// resolves the active admins of a role (and area, for RT) to email addresses.
type AdminLookupFunc func(ctx context.Context, role rbac.Role, area string) ([]string, error)

// subset of TaskQueue.
type queueService interface {
	Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error)
}

type Options struct {
	// PublicURL is the console base URL used for links.
	PublicURL string
	// NotifyResidents enables mail to the requester.
	NotifyResidents bool
}

type NotificationDispatcher struct {
	queue       queueService
	templates   *template.Template
	adminLookup AdminLookupFunc
	opts        Options
}

func NewNotificationDispatcher(q queueService, tmpl *template.Template, lookup AdminLookupFunc, opts Options) *NotificationDispatcher {
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	return &NotificationDispatcher{
		queue:       q,
		templates:   tmpl,
		adminLookup: lookup,
		opts:        opts,
	}
}

// Transitioned enqueues the mail for a committed transition. Failures are
// logged, not returned: the transition itself already succeeded. A call whose
// status did not change sends nothing.
func (d *NotificationDispatcher) Transitioned(ctx context.Context, req records.Request, from approval.Status) {
	if from == req.Status {
		logging.Debug("status unchanged, no notification", "kind", req.Kind, "id", req.ID, "status", from)
		return
	}
	for _, g := range d.groupsFor(ctx, req, from) {
		d.sendGroupEmails(g)
	}
}

func (d *NotificationDispatcher) groupsFor(ctx context.Context, req records.Request, from approval.Status) []NotifierGroup {
	data := d.templateData(req, from)

	var groups []NotifierGroup
	requester := func(name string) {
		if !d.opts.NotifyResidents || req.RequesterEmail == "" {
			return
		}
		groups = append(groups, NotifierGroup{
			Emails:       []string{req.RequesterEmail},
			Template:     name,
			TemplateData: data,
		})
	}

	switch req.Kind {
	case approval.KindPermit:
		switch req.Status {
		case approval.StatusWaitingRWApproval:
			if emails := d.lookupAdmins(ctx, rbac.RoleRW, ""); len(emails) > 0 {
				groups = append(groups, NotifierGroup{Emails: emails, Template: "permit_awaiting_rw", TemplateData: data})
			}
		case approval.StatusApproved:
			requester("permit_approved")
		case approval.StatusRejected:
			requester("permit_rejected")
		}
	case approval.KindReport:
		switch req.Status {
		case approval.StatusInProgress:
			requester("report_in_progress")
		case approval.StatusDone:
			requester("report_resolved")
		}
	}
	return groups
}

func (d *NotificationDispatcher) lookupAdmins(ctx context.Context, role rbac.Role, area string) []string {
	if d.adminLookup == nil {
		logging.Error("admin lookup func is nil, skipping admin email", "role", role)
		return nil
	}
	emails, err := d.adminLookup(ctx, role, area)
	if err != nil {
		logging.Error("failed to look up admin emails", "role", role, "area", area, "error", err)
		return nil
	}
	return emails
}

func (d *NotificationDispatcher) sendGroupEmails(g NotifierGroup) {
	subject, body, err := d.renderTemplate(g.Template, g.TemplateData)
	if err != nil {
		logging.Error("failed to render notification template", "template", g.Template, "error", err)
		return
	}

	for _, email := range g.Emails {
		if _, err := d.queue.Enqueue(queue.TypeEmailDelivery, queue.EmailDeliveryPayload{
			To:       email,
			Subject:  subject,
			Body:     body,
			Template: g.Template,
		}); err != nil {
			logging.Error("failed to enqueue notification email", "to", email, "template", g.Template, "error", err)
		}
	}
}

// the attribution of the transition that led to the current status
func lastActor(req records.Request) *approval.Attribution {
	switch req.Status {
	case approval.StatusRejected:
		return req.RejectedBy
	case approval.StatusDone:
		return req.ResolvedBy
	case approval.StatusInProgress:
		return req.ProcessedBy
	case approval.StatusWaitingRWApproval:
		return req.ApprovedByRT
	case approval.StatusApproved:
		if req.ApprovedByRW != nil {
			return req.ApprovedByRW
		}
		return req.ApprovedByRT
	}
	return nil
}

func (d *NotificationDispatcher) templateData(req records.Request, from approval.Status) map[string]interface{} {
	actor, at := "pengurus", time.Time{}
	if a := lastActor(req); a != nil {
		at = a.At
		if a.Name != "" {
			actor = fmt.Sprintf("%s (%s)", a.Name, a.Role)
		}
	}
	name := req.RequesterName
	if name == "" {
		name = "Warga"
	}
	return map[string]interface{}{
		"Name":   name,
		"Type":   req.Type,
		"Unit":   req.Unit,
		"Actor":  actor,
		"At":     at,
		"Reason": req.RejectionReason,
		"Note":   req.ResolutionNote,
		"From":   projection.BadgeFor(from).Label,
		"Link":   fmt.Sprintf("%s/%ss/%s", d.opts.PublicURL, req.Kind, req.ID),
	}
}

// {{define "name:subject"}} and {{define "name:body"}}
func (d *NotificationDispatcher) renderTemplate(name string, data map[string]interface{}) (subject, body string, err error) {
	var subjectBuf bytes.Buffer
	if err = d.templates.ExecuteTemplate(&subjectBuf, name+":subject", data); err != nil {
		return "", "", fmt.Errorf("render subject for %q: %w", name, err)
	}

	var bodyBuf bytes.Buffer
	if err = d.templates.ExecuteTemplate(&bodyBuf, name+":body", data); err != nil {
		return "", "", fmt.Errorf("render body for %q: %w", name, err)
	}

	return strings.TrimSpace(subjectBuf.String()), strings.TrimSpace(bodyBuf.String()), nil
}
