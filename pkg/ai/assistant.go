package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nemsutalks/pkg/domain"
)

const assistantSystemPrompt = `You are NEMSU AI, an advanced and highly intelligent AI assistant similar to ChatGPT. You are capable of helping with virtually any topic or task.

Your core capabilities include:
- Answering questions on any subject with accuracy and depth
- Helping with writing, editing, proofreading, and creative content
- Explaining complex concepts in simple, understandable terms
- Assisting with coding, mathematics, science, and technical problems
- Providing thoughtful analysis and critical thinking
- Offering advice, brainstorming ideas, and problem-solving
- Engaging in meaningful conversations on diverse topics
- Helping with academic work, research, and learning

As NEMSU AI specifically, you also have expertise in:
- North Eastern Mindanao State University (NEMSU) programs, services, and facilities
- Student life, campus activities, and university procedures
- Helping students express their sentiments constructively through NEMSUTalks
- Academic guidance and support for NEMSU students

Guidelines for your responses:
- Be helpful, accurate, and thorough in your answers
- Adapt your communication style to the user's needs
- Provide structured responses when appropriate (lists, steps, sections)
- Be honest when you're unsure about something
- Encourage learning and critical thinking
- Keep responses focused and relevant
- Use a friendly, professional tone
- Support multiple languages if the user prefers

Remember: You are a highly capable AI assistant. Help users to the best of your abilities while being thoughtful and constructive.`

// maxHistory bounds how many prior turns are replayed into the prompt.
const maxHistory = 20

// Assistant is the NEMSU AI chat collaborator.
type Assistant struct {
	gen TextGenerator
}

func NewAssistant(gen TextGenerator) *Assistant {
	return &Assistant{gen: gen}
}

// Reply answers the last user message given the conversation so far.
func (a *Assistant) Reply(ctx context.Context, messages []domain.ChatMessage) (domain.ChatMessage, error) {
	prompt, err := buildChatPrompt(messages)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	start := time.Now()
	text, err := a.gen.GenerateText(ctx, assistantSystemPrompt, prompt)
	observe("chat", start, err)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("chat: %w", err)
	}
	return domain.ChatMessage{Role: "assistant", Content: strings.TrimSpace(text)}, nil
}

// buildChatPrompt renders the history as a transcript ending with the
// latest user turn. Roles other than user and assistant are dropped.
func buildChatPrompt(messages []domain.ChatMessage) (string, error) {
	turns := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if (role != "user" && role != "assistant") || strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, domain.ChatMessage{Role: role, Content: strings.TrimSpace(m.Content)})
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != "user" {
		return "", ErrMessagesRequired
	}
	if len(turns) == 1 {
		return turns[0].Content, nil
	}
	if len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n\n")
	for _, t := range turns[:len(turns)-1] {
		label := "User"
		if t.Role == "assistant" {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", label, t.Content)
	}
	fmt.Fprintf(&b, "Reply to the user's latest message:\n%s", turns[len(turns)-1].Content)
	return b.String(), nil
}
