package notify

import (
	"fmt"
	"strings"

	"solidarity/pkg/types"
)

const (
	signature = "Community Hazard Response Platform"
	subject   = "Your item has been accepted!"
)

type Message struct {
	Subject string
	Body    string
}

// Compose renders the plain-text message sent to the owner of an accepted
// need or offer.
func Compose(n *types.Notification) Message {
	var b strings.Builder

	b.WriteString("Good news!\n\n")
	fmt.Fprintf(&b, "Someone has accepted your %s titled:\n\n", n.Kind.ItemNoun())
	fmt.Fprintf(&b, "%q\n\n", n.ItemTitle)

	if contact := accepterContact(n.Accepter); contact != "" {
		fmt.Fprintf(&b, "You can contact them at:\n%s\n\n", contact)
	}

	b.WriteString(signature)
	b.WriteString("\n")

	return Message{Subject: subject, Body: b.String()}
}

// ShortText is the SMS rendition of the same message.
func ShortText(n *types.Notification) string {
	text := fmt.Sprintf("Your %s %q has been accepted.", n.Kind.ItemNoun(), n.ItemTitle)
	if contact := accepterContact(n.Accepter); contact != "" {
		text += " Contact: " + contact
	}
	return text
}

func accepterContact(c types.Contact) string {
	switch {
	case c.Email != "" && c.Phone != "":
		return c.Email + " / " + c.Phone
	case c.Email != "":
		return c.Email
	default:
		return c.Phone
	}
}
