package services

import (
	"fmt"
	"strings"
)

// Canned replies served when the completion API cannot answer.
const (
	greetingReply  = "Hello! I'm your knowledge base assistant. How can I help you today?"
	documentsReply = "I can help you search and analyse your uploaded documents. What would you like to know?"
	genericReply   = `I received your message: "%s". The answer service is temporarily unavailable, please try again shortly.`
)

// CannedReply picks a fallback reply for message by keyword.
func CannedReply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "hello"), strings.Contains(message, "你好"):
		return greetingReply
	case strings.Contains(lower, "document"), strings.Contains(message, "文档"):
		return documentsReply
	default:
		return fmt.Sprintf(genericReply, message)
	}
}
