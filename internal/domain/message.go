package domain

// Message is a rendered mail ready for a transport. Text is the canonical
// body: it is what the notification ledger stores and compares.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
