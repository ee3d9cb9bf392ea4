package line

// Event is one inbound webhook event.
type Event struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// WebhookBody is the envelope of a webhook delivery.
type WebhookBody struct {
	Events []Event `json:"events"`
}

// IsTextMessage reports whether the event carries user text the command
// router can act on.
func (e Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text" && e.Source.UserID != ""
}
