package mail

// Email is the normalized view of a fetched message.
type Email struct {
	ID       string
	ThreadID string
	From     string
	Subject  string
	Date     string
	// Body is the extracted text, the backend snippet when nothing could be
	// extracted, or "".
	Body string
}

// NewEmail normalizes a fetched message. snippet is used as the body when
// the part tree yields no text.
func NewEmail(id, threadID string, headers HeaderSet, root *Part, snippet string) Email {
	body := ExtractBody(root)
	if body == "" {
		body = snippet
	}
	return Email{
		ID:       id,
		ThreadID: threadID,
		From:     headers.Get(HeaderFrom),
		Subject:  headers.Get(HeaderSubject),
		Date:     headers.Get(HeaderDate),
		Body:     body,
	}
}
