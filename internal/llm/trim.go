package llm

// TrimHistory trims prior conversation to fit within a token budget.
//
// Messages are grouped into exchanges (a user message plus the assistant
// replies that follow it). The newest exchange is always kept; older
// exchanges are dropped first until the rest fits. An exchange is never
// split, so replay never starts with a dangling assistant reply.
func TrimHistory(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	groups := groupExchanges(messages)

	total := 0
	for _, g := range groups {
		total += g.tokens
	}
	if total <= maxTokens {
		return messages
	}

	kept := total
	dropUntil := 0
	for dropUntil < len(groups)-1 && kept > maxTokens {
		kept -= groups[dropUntil].tokens
		dropUntil++
	}

	var trimmed []Message
	for _, g := range groups[dropUntil:] {
		trimmed = append(trimmed, g.messages...)
	}
	return trimmed
}

// exchange is a run of messages kept or dropped as a whole.
type exchange struct {
	messages []Message
	tokens   int
}

// groupExchanges starts a new group at every user message. Leading
// assistant messages form their own group.
func groupExchanges(messages []Message) []exchange {
	var groups []exchange
	for _, msg := range messages {
		if msg.Role == RoleUser || len(groups) == 0 {
			groups = append(groups, exchange{})
		}
		g := &groups[len(groups)-1]
		g.messages = append(g.messages, msg)
		g.tokens += EstimateMessageTokens(msg)
	}
	return groups
}
