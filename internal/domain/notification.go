package domain

// Notification is the payload record the core emits per lifecycle event.
// Delivery is outside the core; a dispatcher renders and sends it.
type Notification struct {
	To         []Principal
	CC         []Principal
	Subject    string
	Properties map[string]string
}
