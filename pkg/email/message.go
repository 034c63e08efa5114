package email

// Template names shipped with the console
const (
	TemplateAdminNotification = "adminNotification"
	TemplateUserVerification  = "userVerification"
	TemplateUserApproved      = "userApproved"
	TemplateUserRejected      = "userRejected"
)

// Message is a templated email to a single recipient
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`

	// Template is the template name, the file basename without ".html"
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// Envelope is a rendered email ready for a transport
type Envelope struct {
	From    string
	To      string
	Subject string
	HTML    string
}
