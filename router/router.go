package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/orgmesh/core"
	"github.com/hupe1980/orgmesh/dialog"
	"github.com/hupe1980/orgmesh/ledger"
	"github.com/hupe1980/orgmesh/logging"
	"github.com/hupe1980/orgmesh/planner"
	"github.com/hupe1980/orgmesh/reasoner"
	"github.com/hupe1980/orgmesh/scheduler"
)

// defaultSystemPrompt frames the fallback chat stage.
const defaultSystemPrompt = "You are a direct and concise AI agent for an organization. Provide short, to-the-point answers."

// declineReply answers any confirmation that was not accepted.
const declineReply = "No problem, let me know if you need anything else."

// Quick command patterns. They are matched against the trimmed message,
// case-insensitively, before any reasoner is consulted.
var (
	tasksRe    = regexp.MustCompile(`(?i)^(tasks|list tasks|show tasks)$`)
	planRe     = regexp.MustCompile(`(?i)^plan\s+([\w-]+)\s*=\s*(.+)$`)
	projectRe  = regexp.MustCompile(`(?i)^(create|new|start)?\s*project\s+([\w-]+)\s+(.+)$`)
	genTasksRe = regexp.MustCompile(`(?i)^(generate|create|make)\s+tasks\s+(?:for|on)\s+([\w-]+)$`)
	addRe      = regexp.MustCompile(`(?i)^add\s+([\w\s-]+)\s+to\s+project\s+([\w-]+)$`)
	finalizeRe = regexp.MustCompile(`(?i)^(confirm participants for|finalize)\s+project\s+([\w-]+)$`)
)

// emailKeywords gate the email stage. Substring matching mirrors how loose
// the requests tend to be phrased.
var emailKeywords = []string{"email", "gmail", "mail", "inbox", "message", "send", "write", "compose", "draft"}

// Options configures a Router.
type Options struct {
	// Logger receives structured logs. Defaults to NoOpLogger.
	Logger logging.Logger
	// SystemPrompt frames the fallback chat stage.
	SystemPrompt string
}

// Router is the per-node message pipeline.
type Router struct {
	nodeID  string
	state   *dialog.State
	planner *planner.Planner
	sched   *scheduler.Scheduler
	ledger  *ledger.Ledger
	rsn     reasoner.Reasoner
	prompt  string
	logger  logging.Logger
}

// New creates a Router. planner, sched and rsn may each be nil; the stages
// that need them simply pass the message on.
func New(nodeID string, state *dialog.State, pl *planner.Planner, sched *scheduler.Scheduler, ld *ledger.Ledger, rsn reasoner.Reasoner, optFns ...func(o *Options)) *Router {
	opts := Options{
		SystemPrompt: defaultSystemPrompt,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		nodeID:  nodeID,
		state:   state,
		planner: pl,
		sched:   sched,
		ledger:  ld,
		rsn:     rsn,
		prompt:  opts.SystemPrompt,
		logger:  core.EnsureLogger(opts.Logger),
	}
}

// Route processes one inbound message and returns the reply.
func (r *Router) Route(ctx context.Context, message, sender string) string {
	// Stage 1: notifications pass through verbatim, minus the tag. They must
	// never trigger commands or reasoner calls.
	if strings.HasPrefix(message, core.InfoTag) {
		return strings.TrimPrefix(message, core.InfoTag)
	}

	trimmed := strings.TrimSpace(message)

	// Stage 2: quick commands.
	if reply, handled := r.quickCommand(ctx, trimmed); handled {
		return reply
	}

	// Stage 3: a pending confirmation consumes the next message, whatever it
	// says.
	if r.state.ConfirmationActive() {
		return r.resolveConfirmation(ctx, trimmed)
	}

	// Stage 4: calendar intents, then continuation of an active meeting
	// draft.
	if r.sched != nil {
		intent := r.sched.DetectIntent(ctx, message)
		if intent.IsCalendarCommand {
			return r.sched.HandleIntent(ctx, intent, message)
		}
		if r.state.DraftActive() {
			return r.sched.ContinueDraft(ctx, message)
		}
	}

	// Stage 5: email drafting.
	if r.state.EmailActive() || containsEmailKeyword(trimmed) {
		if reply, handled := r.handleEmail(ctx, trimmed); handled {
			return reply
		}
	}

	// Stage 6: transcript-backed chat.
	return r.chat(ctx, message)
}

func (r *Router) quickCommand(ctx context.Context, msg string) (string, bool) {
	if r.planner == nil {
		return "", false
	}
	switch {
	case tasksRe.MatchString(msg):
		return r.planner.ListTasks(), true
	case planRe.MatchString(msg):
		m := planRe.FindStringSubmatch(msg)
		return r.planner.Initiate(ctx, m[1], strings.TrimSpace(m[2])), true
	case genTasksRe.MatchString(msg):
		m := genTasksRe.FindStringSubmatch(msg)
		return r.planner.GenerateTasks(ctx, m[2]), true
	case addRe.MatchString(msg):
		m := addRe.FindStringSubmatch(msg)
		return r.planner.AddParticipant(m[2], strings.TrimSpace(m[1])), true
	case finalizeRe.MatchString(msg):
		m := finalizeRe.FindStringSubmatch(msg)
		return r.planner.Finalize(ctx, m[2]), true
	case projectRe.MatchString(msg):
		m := projectRe.FindStringSubmatch(msg)
		return r.planner.Initiate(ctx, m[2], strings.TrimSpace(m[3])), true
	}
	return "", false
}

// resolveConfirmation consumes the pending gate. Only an answer starting with
// "y" counts as acceptance.
func (r *Router) resolveConfirmation(ctx context.Context, answer string) string {
	conf, ok := r.state.TakeConfirmation()
	if !ok {
		return declineReply
	}
	if !strings.HasPrefix(strings.ToLower(answer), "y") {
		r.logger.Info("confirmation declined", "kind", string(conf.Kind))
		return declineReply
	}

	switch conf.Kind {
	case dialog.ConfirmScheduleMeeting:
		if r.sched != nil && conf.Meeting != nil {
			return r.sched.BookPending(ctx, *conf.Meeting)
		}
	case dialog.ConfirmPlanProject:
		if r.planner != nil {
			return r.planner.Finalize(ctx, conf.ProjectID)
		}
	}
	return declineReply
}

func containsEmailKeyword(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range emailKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// handleEmail drives the email drafting flow. It reports handled=false when
// the message only brushed a keyword but is not actually an email request.
func (r *Router) handleEmail(ctx context.Context, msg string) (string, bool) {
	if r.state.EmailActive() {
		return r.continueEmail(msg), true
	}
	if r.rsn == nil {
		return "", false
	}

	prompt := fmt.Sprintf(
		"Decide whether the message below asks to send or draft an email, and extract what it specifies.\n\n"+
			"Message: %s\n\n"+
			"Respond with JSON only:\n"+
			"{\"is_email_request\": true|false, \"recipient\": \"...\", \"subject\": \"...\", \"body\": \"...\", "+
			"\"missing_info\": [\"recipient\", \"subject\", \"body\"]}",
		msg)
	raw, err := r.rsn.Complete(ctx, []reasoner.Message{
		reasoner.System("You classify and extract email requests. Respond with JSON only."),
		reasoner.User(prompt),
	})
	if err != nil {
		r.logger.Warn("email detection failed", "error", err)
		return "", false
	}

	var parsed struct {
		IsEmailRequest bool     `json:"is_email_request"`
		Recipient      string   `json:"recipient"`
		Subject        string   `json:"subject"`
		Body           string   `json:"body"`
		MissingInfo    []string `json:"missing_info"`
	}
	if err := reasoner.Unmarshal(raw, &parsed); err != nil || !parsed.IsEmailRequest {
		return "", false
	}

	missing := orderEmailFields(parsed.MissingInfo)
	if len(missing) == 0 {
		return renderEmailDraft(parsed.Recipient, parsed.Subject, parsed.Body), true
	}
	r.state.StartEmailDraft(parsed.Recipient, parsed.Subject, missing)
	if parsed.Body != "" {
		r.seedEmailBody(parsed.Body)
	}
	return "Okay, let's draft an email. " + emailQuestion(missing[0]), true
}

func (r *Router) continueEmail(answer string) string {
	email := r.state.Email()
	if len(email.Missing) == 0 {
		r.state.ClearEmail()
		return renderEmailDraft(email.Recipient, email.Subject, email.Body)
	}

	field := email.Missing[0]
	switch field {
	case "recipient":
		email.Recipient = answer
	case "subject":
		email.Subject = answer
	case "body":
		email.Body = answer
	}
	email.Missing = email.Missing[1:]

	r.state.StartEmailDraft(email.Recipient, email.Subject, email.Missing)
	r.seedEmailBody(email.Body)
	if len(email.Missing) > 0 {
		return emailQuestion(email.Missing[0])
	}
	r.state.ClearEmail()
	return renderEmailDraft(email.Recipient, email.Subject, email.Body)
}

// seedEmailBody keeps the body across the draft restart that StartEmailDraft
// performs, since EmailDraft only carries recipient and subject natively.
func (r *Router) seedEmailBody(body string) {
	if body == "" {
		return
	}
	r.state.SetEmailBody(body)
}

func orderEmailFields(missing []string) []string {
	want := map[string]bool{}
	for _, f := range missing {
		want[strings.ToLower(strings.TrimSpace(f))] = true
	}
	var out []string
	for _, f := range []string{"recipient", "subject", "body"} {
		if want[f] {
			out = append(out, f)
		}
	}
	return out
}

func emailQuestion(field string) string {
	switch field {
	case "recipient":
		return "Who should receive the email?"
	case "subject":
		return "What should the subject be?"
	case "body":
		return "What should the email say?"
	default:
		return fmt.Sprintf("Please provide the %s of the email.", field)
	}
}

func renderEmailDraft(recipient, subject, body string) string {
	return fmt.Sprintf("Here's your draft email to %s:\nSubject: %s\n\n%s\n\n(Sending is not connected yet.)", recipient, subject, body)
}

// chat is the final stage: a short completion over the rolling transcript.
func (r *Router) chat(ctx context.Context, message string) string {
	if r.rsn == nil {
		return "I'm not able to answer that right now."
	}

	r.state.AppendTurn("user", message)
	msgs := []reasoner.Message{reasoner.System(r.prompt)}
	for _, turn := range r.state.Transcript() {
		if turn.Role == "assistant" {
			msgs = append(msgs, reasoner.Assistant(turn.Content))
		} else {
			msgs = append(msgs, reasoner.User(turn.Content))
		}
	}

	reply, err := r.rsn.Complete(ctx, msgs)
	if err != nil {
		r.logger.Warn("chat completion failed", "error", err)
		return "Sorry, I couldn't process that right now."
	}
	r.state.AppendTurn("assistant", reply)
	return reply
}
