package notify

// Message is one recorded notification.
type Message struct {
	Title    string
	Preamble string
	Body     string
}

// FakeNotifier records notifications for test assertions.
type FakeNotifier struct {
	Messages []Message
}

func (f *FakeNotifier) Notify(title, preamble, body string) {
	f.Messages = append(f.Messages, Message{Title: title, Preamble: preamble, Body: body})
}
