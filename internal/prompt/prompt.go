// Package prompt turns similarity-search results into the conversation
// payload sent to the generation model. Both steps are pure text
// transformations: same input, same output, no I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/askdoc/askdoc/internal/knowledge"
)

// Role tags a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged entry of the conversation payload.
type Message struct {
	Role Role
	Text string
}

// DefaultContextBudget is the context block character budget used when the
// caller does not configure one.
const DefaultContextBudget = 8000

const systemInstruction = `You are an intelligent assistant with access to a knowledge base.
Use the provided context documents to answer questions accurately and comprehensively.
If the context doesn't contain enough information to fully answer the question, say so clearly.
Always cite which documents you're referencing when possible.
Be helpful, accurate, and conversational.`

// Assemble renders ranked results into a single context block. Entries keep
// their input order, each under a header naming the source and the
// similarity score, separated by a dash rule as wide as the header.
//
// The budget is a hard character cap: an entry that would push the total
// past it is dropped whole, along with everything after it. Zero results
// yield an empty string.
func Assemble(results []knowledge.Result, budget int) string {
	if len(results) == 0 {
		return ""
	}
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	var (
		parts []string
		total int
	)
	for i, r := range results {
		header := fmt.Sprintf("Document %d: %s (Relevance: %.2f)", i+1, sourceLabel(r), r.Similarity)
		entry := header + "\n" + strings.Repeat("-", len(header)) + "\n" + r.Content + "\n"

		if total+len(entry) > budget {
			break
		}
		parts = append(parts, entry)
		total += len(entry)
	}

	return strings.Join(parts, "\n")
}

// sourceLabel prefers the filename recorded in chunk metadata and falls
// back to the owning document's identifier.
func sourceLabel(r knowledge.Result) string {
	if r.Metadata.Filename != "" {
		return r.Metadata.Filename
	}
	return fmt.Sprintf("Document %d", r.DocumentID)
}

// Build produces the two-message conversation for the generation model:
// a fixed system instruction and the user content. With context, the user
// message embeds the context block before the question and asks for cited
// answers; without it, the model is told to answer from general knowledge
// and say so.
func Build(userQuery, contextBlock string) []Message {
	var userContent string
	if contextBlock != "" {
		userContent = fmt.Sprintf(`Context Documents:
%s

Question: %s

Please answer the question using the context provided above. If you reference information from the context, please mention which document it came from.`, contextBlock, userQuery)
	} else {
		userContent = fmt.Sprintf(`Question: %s

Note: No relevant context documents were found in the knowledge base. Please provide a general response based on your training knowledge, but mention that you don't have specific context documents to reference.`, userQuery)
	}

	return []Message{
		{Role: RoleSystem, Text: systemInstruction},
		{Role: RoleUser, Text: userContent},
	}
}
