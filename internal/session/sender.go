package session

const anonymous = "anon"

// Sender identifies who a relayed message came from.
type Sender struct {
	subject string
}

// Identified returns the sender for an authenticated subject.
func Identified(subject string) Sender {
	return Sender{subject: subject}
}

// Anonymous is the sender of messages from unauthenticated connections.
var Anonymous = Sender{}

func (s Sender) isAnonymous() bool {
	return s.subject == ""
}

// String is the wire form: the subject, or "anon".
func (s Sender) String() string {
	if s.isAnonymous() {
		return anonymous
	}
	return s.subject
}
