package templates

import "fmt"

// RenderNewConsultOrderEmail generates the HTML sent to an expert when a farmer
// submits a new consultation request.
func RenderNewConsultOrderEmail(expertName, farmerName, problem string) string {
	body := fmt.Sprintf(
		"Hi %s,\n\n%s has requested a consultation with you.\n\nProblem description:\n%s\n\nOpen AgriConnect to accept or decline the request.",
		expertName, farmerName, problem)
	return RenderGenericEmail("New Consultation Request", body)
}

// RenderOrderCompletedEmail generates the HTML sent to a farmer when the expert
// marks their consultation as completed.
func RenderOrderCompletedEmail(farmerName, expertName string) string {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour consultation with %s has been marked as completed.\n\nPlease take a moment to rate your expert - your feedback helps other farmers choose the right advisor.",
		farmerName, expertName)
	return RenderGenericEmail("Consultation Completed", body)
}
