package types

type NotificationKind string

const (
	NotificationNeedAccepted  NotificationKind = "need-accepted"
	NotificationOfferAccepted NotificationKind = "offer-accepted"
)

// ItemNoun is the word used in message bodies for the accepted item.
func (k NotificationKind) ItemNoun() string {
	if k == NotificationOfferAccepted {
		return "offer"
	}
	return "need"
}

type Notification struct {
	ID           string
	Recipient    Contact
	Kind         NotificationKind
	ItemTitle    string
	Accepter     Contact
	AssignmentID int64
}
