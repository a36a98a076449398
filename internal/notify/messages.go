package notify

import "fmt"

// RegistrationReceived confirms a submission to the applicant.
func RegistrationReceived(email, firstName string) Message {
	return Message{
		To:      []string{email},
		Subject: "Registration received",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour registration request has been received and is awaiting review.\nYou will be notified once an administrator has made a decision.\n",
			firstName),
	}
}

// RegistrationApproved tells the applicant the account is live.
func RegistrationApproved(email, firstName, loginID string) Message {
	return Message{
		To:      []string{email},
		Subject: "Registration approved",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour registration has been approved. You can now sign in with your login id %s.\n",
			firstName, loginID),
	}
}

// RegistrationRejected tells the applicant the request was declined.
func RegistrationRejected(email, firstName, reason string) Message {
	body := fmt.Sprintf("Hello %s,\n\nYour registration request has been declined.\n", firstName)
	if reason != "" {
		body += fmt.Sprintf("Reason: %s\n", reason)
	}
	return Message{
		To:      []string{email},
		Subject: "Registration declined",
		Body:    body,
	}
}
