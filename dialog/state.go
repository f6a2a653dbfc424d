package dialog

import (
	"sync"
	"time"
)

// maxTranscriptTurns bounds the rolling transcript handed to the reasoner.
const maxTranscriptTurns = 20

// MeetingDraft collects answers for missing meeting fields across turns.
// Missing is a FIFO queue; the front element is the field the next inbound
// message answers.
type MeetingDraft struct {
	Active          bool
	OriginalMessage string
	Missing         []string
	Answers         map[string]string
	Rescheduling    bool
	TargetEventID   string
}

// CurrentField returns the front of the missing-field queue.
func (d *MeetingDraft) CurrentField() (string, bool) {
	if !d.Active || len(d.Missing) == 0 {
		return "", false
	}
	return d.Missing[0], true
}

// ConfirmationKind tags what a pending yes/no answer will act on.
type ConfirmationKind string

const (
	// ConfirmScheduleMeeting gates booking a conflict-adjusted meeting time.
	ConfirmScheduleMeeting ConfirmationKind = "schedule-meeting"
	// ConfirmPlanProject gates finalizing a project's participants.
	ConfirmPlanProject ConfirmationKind = "plan-project"
)

// PendingMeeting is the payload needed to book on "yes".
type PendingMeeting struct {
	Title        string
	Start        time.Time
	End          time.Time
	Participants []string
	Description  string
}

// Confirmation is the single outstanding yes/no gate for a node.
type Confirmation struct {
	Active    bool
	Kind      ConfirmationKind
	ProjectID string
	Meeting   *PendingMeeting
}

// EmailDraft collects the pieces of an outgoing email across turns. Sending
// itself is handled outside the core.
type EmailDraft struct {
	Active    bool
	Recipient string
	Subject   string
	Body      string
	Missing   []string
}

// Turn is one transcript entry.
type Turn struct {
	Role    string // user or assistant
	Content string
}

// State is the per-node dialogue container. All access is serialized behind
// an internal lock so foreign handler stacks can continue a flow safely.
type State struct {
	mu           sync.Mutex
	draft        MeetingDraft
	confirmation Confirmation
	email        EmailDraft
	transcript   []Turn
}

// NewState creates an empty State.
func NewState() *State {
	return &State{}
}

// StartDraft activates a meeting draft with the given FIFO missing-field
// queue, clearing any other active slot.
func (s *State) StartDraft(originalMessage string, missing []string, rescheduling bool, targetEventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmation = Confirmation{}
	s.email = EmailDraft{}
	s.draft = MeetingDraft{
		Active:          true,
		OriginalMessage: originalMessage,
		Missing:         append([]string(nil), missing...),
		Answers:         map[string]string{},
		Rescheduling:    rescheduling,
		TargetEventID:   targetEventID,
	}
}

// DraftActive reports whether a meeting draft is in progress.
func (s *State) DraftActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Active
}

// CurrentField returns the field the next inbound message should answer.
func (s *State) CurrentField() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.CurrentField()
}

// RecordAnswer stores answer for the front-of-queue field and pops it. It
// returns the next field to ask for, or done=true when the queue emptied.
func (s *State) RecordAnswer(answer string) (next string, done bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	field, active := s.draft.CurrentField()
	if !active {
		return "", false, false
	}
	s.draft.Answers[field] = answer
	s.draft.Missing = s.draft.Missing[1:]
	if len(s.draft.Missing) == 0 {
		return "", true, true
	}
	return s.draft.Missing[0], false, true
}

// SeedAnswer stores a value for a field outside the missing queue, for
// example details preserved when a draft is reopened after a bad time.
func (s *State) SeedAnswer(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft.Active {
		return
	}
	s.draft.Answers[field] = value
}

// Draft returns a copy of the current draft.
func (s *State) Draft() MeetingDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Missing = append([]string(nil), s.draft.Missing...)
	d.Answers = map[string]string{}
	for k, v := range s.draft.Answers {
		d.Answers[k] = v
	}
	return d
}

// ClearDraft deactivates the meeting draft.
func (s *State) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = MeetingDraft{}
}

// SetConfirmation installs the pending yes/no gate, clearing any other slot.
func (s *State) SetConfirmation(c Confirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = MeetingDraft{}
	s.email = EmailDraft{}
	c.Active = true
	s.confirmation = c
}

// ConfirmationActive reports whether a confirmation is pending.
func (s *State) ConfirmationActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmation.Active
}

// TakeConfirmation removes and returns the pending confirmation. Any answer,
// yes or no, consumes the gate.
func (s *State) TakeConfirmation() (Confirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.confirmation.Active {
		return Confirmation{}, false
	}
	c := s.confirmation
	s.confirmation = Confirmation{}
	return c, true
}

// StartEmailDraft activates an email draft, clearing any other slot.
func (s *State) StartEmailDraft(recipient, subject string, missing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = MeetingDraft{}
	s.confirmation = Confirmation{}
	s.email = EmailDraft{
		Active:    true,
		Recipient: recipient,
		Subject:   subject,
		Missing:   append([]string(nil), missing...),
	}
}

// SetEmailBody stores the body on the active email draft.
func (s *State) SetEmailBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.email.Active {
		return
	}
	s.email.Body = body
}

// EmailActive reports whether an email draft is in progress.
func (s *State) EmailActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email.Active
}

// Email returns a copy of the email draft.
func (s *State) Email() EmailDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.email
	e.Missing = append([]string(nil), s.email.Missing...)
	return e
}

// ClearEmail deactivates the email draft.
func (s *State) ClearEmail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = EmailDraft{}
}

// AppendTurn records a transcript entry, trimming to the retention window.
func (s *State) AppendTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Turn{Role: role, Content: content})
	if len(s.transcript) > maxTranscriptTurns {
		s.transcript = s.transcript[len(s.transcript)-maxTranscriptTurns:]
	}
}

// Transcript returns a copy of the rolling transcript.
func (s *State) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}
