package service

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"github.com/xxxsen/bagbot/internal/ai"
)

const classifySystemPrompt = `You are a classifier. Classify the user query into ONLY ONE of the below:
- "POLICY" -> general info (returns, warranty, shipping, store hours)
- "ORDER" -> tracking or checking a specific order status
- "RECOMMENDATION" -> find or suggest products based on requirements
- "NOT_RELEVANT" -> unrelated to e-commerce, or not sure what it is about
Respond with exactly one word: POLICY, ORDER, RECOMMENDATION or NOT_RELEVANT.`

const filterSystemPrompt = `Extract product filtering parameters from the query.
Return RAW JSON ONLY with keys:

"category": "string | null",
"brand": "string | null",
"price_max": number | null,
"price_min": number | null,
"keywords": [string]

Always return valid JSON. No explanations.`

const replySystemPrompt = `You are **Bag**, a friendly and concise e-commerce chatbot. You always answer based on the available Knowledge Base and Previous Messages.

### Rules:
- Greet **only once** at the beginning. After that, continue the conversation naturally.
- Use simple and polite human-like language.
- Use previous conversation context when needed.
- If you provide steps/instructions, use a **clear, numbered list**.
- Always **bold titles** and **list items**.
- If something is unclear, ask **one short follow-up question**.
- If the user asks something unrelated to e-commerce, politely refuse to answer mentioning that you only help in the context of the **Bag online marketplace**.
- If the Knowledge Base does not contain relevant information, reply:
**"I'm sorry, I don't have that information right now."**
You may ask a short clarifying question **only if useful**.

Only respond with the final answer. Do not mention the rules or the Knowledge Base explicitly. If you cannot handle the request with the given data, say you can't answer it and that customer care is available at **support@bag.com**.`

var (
	classifyPrompt = prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(classifySystemPrompt, nil),
		prompts.NewHumanMessagePromptTemplate(
			"User Question: {{.input}}\nPrevious Conversations: {{.history}}",
			[]string{"input", "history"},
		),
	})
	filterPrompt = prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(filterSystemPrompt, nil),
		prompts.NewHumanMessagePromptTemplate("{{.input}}", []string{"input"}),
	})
	replyPrompt = prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(replySystemPrompt, nil),
		prompts.NewHumanMessagePromptTemplate(
			"**Knowledge Base:** {{.data}}\n\n**Previous Messages:** {{.history}}\n\n**User Question:** {{.input}}",
			[]string{"data", "history", "input"},
		),
	})
)

// buildChatRequest renders tmpl and maps the messages onto provider roles.
// All calls run at temperature 0.
func buildChatRequest(tmpl prompts.ChatPromptTemplate, values map[string]any) (*ai.ChatRequest, error) {
	msgs, err := tmpl.FormatMessages(values)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	req := &ai.ChatRequest{
		Messages:    make([]ai.ChatMessage, 0, len(msgs)),
		Temperature: new(float32),
	}
	for _, msg := range msgs {
		role := ai.RoleUser
		switch msg.GetType() {
		case llms.ChatMessageTypeSystem:
			role = ai.RoleSystem
		case llms.ChatMessageTypeAI:
			role = ai.RoleAssistant
		}
		req.Messages = append(req.Messages, ai.ChatMessage{Role: role, Content: msg.GetContent()})
	}
	return req, nil
}
