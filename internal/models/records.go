package models

// Profile is the sender's own profile. Stored as a singleton document,
// overwritten on every save.
type Profile struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Profession string `json:"profession"`
	LinkedIn   string `json:"linkedin,omitempty"`
	Twitter    string `json:"twitter,omitempty"`
	GitHub     string `json:"github,omitempty"`
	Signature  string `json:"signature"`
}

// Fields exposes the profile as a placeholder lookup map.
func (p *Profile) Fields() map[string]string {
	return map[string]string{
		"name":       p.Name,
		"title":      p.Title,
		"profession": p.Profession,
		"linkedin":   p.LinkedIn,
		"twitter":    p.Twitter,
		"github":     p.GitHub,
		"signature":  p.Signature,
	}
}

// Contact is one outreach target. Extra carries arbitrary columns
// usable as template placeholders. Duplicate emails are permitted.
type Contact struct {
	ID    int64             `json:"id"`
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Extra map[string]string `json:"extra,omitempty"`
}

// Fields flattens name, email and the extra columns into a single
// placeholder lookup map.
func (c *Contact) Fields() map[string]string {
	fields := make(map[string]string, len(c.Extra)+2)
	for k, v := range c.Extra {
		fields[k] = v
	}
	fields["name"] = c.Name
	fields["email"] = c.Email
	return fields
}

type Template struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderDismissed ReminderStatus = "dismissed"
)

// Reminder is a follow-up notice. EmailID optionally links the
// scheduled email it follows up on; the link is advisory, not a
// foreign key.
type Reminder struct {
	ID      int64          `json:"id"`
	DueTime string         `json:"due_time"`
	Note    string         `json:"note"`
	EmailID int64          `json:"email_id,omitempty"`
	Status  ReminderStatus `json:"status"`
}
