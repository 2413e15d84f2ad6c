package compose

import (
	"fmt"
	"strings"

	"github.com/harunnryd/bursar/internal/gateway"
)

// Prompt assembles the provider prompt. Pure function: no I/O, no clock,
// no randomness, the same inputs always yield the same prompt. The memory
// excerpt is selected by the caller (head truncation or index lookup) so
// composition itself stays deterministic.
func Prompt(approval gateway.ApprovalRequest, userMessage string, docs Documents, memoryExcerpt string) string {
	var b strings.Builder

	b.WriteString("You are responding to a user question about a spending approval request.\n")

	b.WriteString("\nAGENT IDENTITY:\n")
	b.WriteString(docs.Persona)
	b.WriteString("\n")

	b.WriteString("\nUSER CONTEXT:\n")
	b.WriteString(docs.User)
	b.WriteString("\n")

	b.WriteString("\nRECENT MEMORY:\n")
	b.WriteString(memoryExcerpt)
	b.WriteString("\n")

	b.WriteString("\nAPPROVAL REQUEST:\n")
	fmt.Fprintf(&b, "- Vendor: %s\n", approval.Vendor)
	fmt.Fprintf(&b, "- Amount: %s\n", approval.AmountDisplay())
	fmt.Fprintf(&b, "- Category: %s\n", approval.Category)
	fmt.Fprintf(&b, "- Reason: %s\n", approval.Reason)
	fmt.Fprintf(&b, "- Status: %s\n", approval.Status)
	if approval.DealSlug != "" {
		fmt.Fprintf(&b, "- Deal: %s\n", approval.DealSlug)
	}

	b.WriteString("\nUSER QUESTION:\n")
	b.WriteString(userMessage)
	b.WriteString("\n")

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("- Respond naturally as this agent based on identity and context\n")
	b.WriteString("- Be helpful and concise\n")
	b.WriteString("- Reference the request's vendor, amount, and reason where relevant\n")
	b.WriteString("- Provide clear options if the user is asking what to do\n")
	b.WriteString("- Do not invent details beyond the fields above\n")

	b.WriteString("\nYour response:")

	return b.String()
}

// HeadExcerpt bounds the memory blob to its first maxChars characters, the
// default excerpt strategy when no index is configured.
func HeadExcerpt(memory string, maxChars int) string {
	if maxChars <= 0 || len(memory) <= maxChars {
		return memory
	}
	return memory[:maxChars]
}

// FallbackReply is the canned apology posted after generation fails for
// good, when fallback replies are enabled.
func FallbackReply(approval gateway.ApprovalRequest) string {
	return fmt.Sprintf(
		"I received your question about the %s approval (%s). I'm having trouble generating a detailed response right now. Would you like to approve, deny, or wait on this request?",
		approval.Vendor, approval.AmountDisplay(),
	)
}
