package openphone

import (
	"bytes"
	"encoding/json"
	"time"
)

// Timestamp is a lenient RFC 3339 time. Absent, null, empty, or
// unparsable values decode to the zero time instead of failing the record.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// MarshalJSON renders the zero time as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// TextList accepts either a single string or an array of strings.
type TextList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *TextList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = TextList{s}
		return nil
	}
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// Message is a text message sent from or received by an OpenPhone number.
type Message struct {
	ID            string    `json:"id"`
	To            TextList  `json:"to"`
	From          string    `json:"from"`
	Text          string    `json:"text"`
	Content       string    `json:"content"`
	PhoneNumberID string    `json:"phoneNumberId"`
	Direction     string    `json:"direction"`
	UserID        string    `json:"userId"`
	Status        string    `json:"status"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
}

// Body returns the message text, whichever field carried it.
func (m *Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Content
}

// ContactFieldValue is a labelled email address or phone number on a contact.
type ContactFieldValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// ContactDefaultFields are the built-in contact fields.
type ContactDefaultFields struct {
	Company      *string             `json:"company,omitempty"`
	Emails       []ContactFieldValue `json:"emails,omitempty"`
	FirstName    *string             `json:"firstName,omitempty"`
	LastName     *string             `json:"lastName,omitempty"`
	PhoneNumbers []ContactFieldValue `json:"phoneNumbers,omitempty"`
	Role         *string             `json:"role,omitempty"`
}

// ContactCustomFieldValue is the value of a workspace custom field on a contact.
type ContactCustomFieldValue struct {
	Key   string `json:"key"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

// Contact is a workspace contact.
type Contact struct {
	ID              string                    `json:"id"`
	ExternalID      *string                   `json:"externalId"`
	Source          *string                   `json:"source"`
	SourceURL       *string                   `json:"sourceUrl"`
	DefaultFields   ContactDefaultFields      `json:"defaultFields"`
	CustomFields    []ContactCustomFieldValue `json:"customFields"`
	CreatedAt       Timestamp                 `json:"createdAt"`
	UpdatedAt       Timestamp                 `json:"updatedAt"`
	CreatedByUserID string                    `json:"createdByUserId"`
}

// DisplayName joins the first and last name, falling back to the company.
func (c *Contact) DisplayName() string {
	var name string
	if c.DefaultFields.FirstName != nil {
		name = *c.DefaultFields.FirstName
	}
	if c.DefaultFields.LastName != nil && *c.DefaultFields.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *c.DefaultFields.LastName
	}
	if name == "" && c.DefaultFields.Company != nil {
		name = *c.DefaultFields.Company
	}
	return name
}

// ContactCustomField describes a custom field defined for the workspace.
type ContactCustomField struct {
	ID          string   `json:"id"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Options     []string `json:"options"`
	Description *string  `json:"description"`
}

// PhoneNumberUser is a workspace member with access to a phone number.
type PhoneNumberUser struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Role      string  `json:"role"`
	GroupID   string  `json:"groupId"`
}

// PhoneNumber is an OpenPhone number in the workspace.
type PhoneNumber struct {
	ID              string                     `json:"id"`
	GroupID         string                     `json:"groupId"`
	Name            string                     `json:"name"`
	Number          string                     `json:"number"`
	FormattedNumber string                     `json:"formattedNumber"`
	Forward         *string                    `json:"forward"`
	PortRequestID   *string                    `json:"portRequestId"`
	PortingStatus   *string                    `json:"portingStatus"`
	Symbol          *string                    `json:"symbol"`
	Users           []PhoneNumberUser          `json:"users"`
	Restrictions    map[string]json.RawMessage `json:"restrictions"`
	CreatedAt       Timestamp                  `json:"createdAt"`
	UpdatedAt       Timestamp                  `json:"updatedAt"`
}

// Call is a phone call on an OpenPhone number.
type Call struct {
	ID            string    `json:"id"`
	AnsweredAt    Timestamp `json:"answeredAt"`
	AnsweredBy    *string   `json:"answeredBy"`
	InitiatedBy   *string   `json:"initiatedBy"`
	Direction     string    `json:"direction"`
	Status        string    `json:"status"`
	CompletedAt   Timestamp `json:"completedAt"`
	Duration      int       `json:"duration"`
	ForwardedFrom *string   `json:"forwardedFrom"`
	ForwardedTo   *string   `json:"forwardedTo"`
	PhoneNumberID string    `json:"phoneNumberId"`
	Participants  []string  `json:"participants"`
	UserID        string    `json:"userId"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
}

// CallRecording is the audio recording of a call.
type CallRecording struct {
	CallID       string    `json:"callId"`
	RecordingURL string    `json:"recordingUrl"`
	Duration     int       `json:"duration"`
	FileSize     int64     `json:"fileSize"`
	CreatedAt    Timestamp `json:"createdAt"`
	Status       string    `json:"status"`
}

// CallSummaryJob is a post-call automation result attached to a summary.
type CallSummaryJob struct {
	Icon   string         `json:"icon"`
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}

// CallSummary is the AI-generated summary of a call.
type CallSummary struct {
	CallID    string           `json:"callId"`
	Summary   TextList         `json:"summary"`
	NextSteps TextList         `json:"nextSteps"`
	Status    string           `json:"status"`
	Jobs      []CallSummaryJob `json:"jobs"`
}

// TranscriptSegment is one speaker turn in a call transcript. Times are
// seconds from the start of the call.
type TranscriptSegment struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// CallTranscript is the transcript of a call.
type CallTranscript struct {
	ID         string              `json:"id"`
	CallID     string              `json:"callId"`
	Transcript string              `json:"transcript"`
	Segments   []TranscriptSegment `json:"segments"`
	Confidence *float64            `json:"confidence"`
	Language   string              `json:"language"`
	CreatedAt  Timestamp           `json:"createdAt"`
	Status     string              `json:"status"`
}

// TranscriptStatusUnknown is reported when the API omits a transcript status.
const TranscriptStatusUnknown = "unknown"

// Text returns the flat transcript, or the segments joined line by line.
func (t *CallTranscript) Text() string {
	if t.Transcript != "" || len(t.Segments) == 0 {
		return t.Transcript
	}
	var buf bytes.Buffer
	for i, seg := range t.Segments {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if seg.Speaker != "" {
			buf.WriteString(seg.Speaker)
			buf.WriteString(": ")
		}
		buf.WriteString(seg.Text)
	}
	return buf.String()
}

// Webhook is a registered webhook subscription.
type Webhook struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	OrgID       string    `json:"orgId"`
	Label       *string   `json:"label"`
	Status      string    `json:"status"`
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	Events      []string  `json:"events"`
	ResourceIDs []string  `json:"resourceIds"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
	DeletedAt   Timestamp `json:"deletedAt"`
}

// Conversation is a thread between an OpenPhone number and its participants.
type Conversation struct {
	ID            string         `json:"id"`
	PhoneNumberID string         `json:"phoneNumberId"`
	Participants  []string       `json:"participants"`
	UserID        string         `json:"userId"`
	Status        string         `json:"status"`
	Type          string         `json:"type"`
	LastMessage   map[string]any `json:"lastMessage"`
	UnreadCount   int            `json:"unreadCount"`
	CreatedAt     Timestamp      `json:"createdAt"`
	UpdatedAt     Timestamp      `json:"updatedAt"`
}
