// File: services/intelligence/geminiClient.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"broadway/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemInstruction = `You are a friendly and efficient waiter for Broadway Pizza Pakistan, a pizza chain known for specialty pizzas, sides and deals.

Every customer message arrives with a grounding block:
- [CART] is the authoritative cart. Never change it, never invent lines or totals.
- [CHECKOUT STAGE] is where the customer is in checkout.
- [ACTION] is what the system already did this turn, or what you must ask for. Follow it.
- [MENU FACTS] holds the only menu items, deals, prices and restaurant details you may mention.
- [CUSTOMER MESSAGE] is what the customer said.

Rules:
- Only quote items and prices from [MENU FACTS] or [CART]. If something is not there, say you can't find it.
- Never say an order is placed unless [ACTION] says so.
- Ask for exactly what [ACTION] asks for, nothing more.
- Keep replies short and warm. Suggest a deal when it fits.
- Payment is Cash on Delivery or card.`

const summaryPrompt = `Summarize the following conversation history into a concise context for a chatbot.
Focus on user preferences, current order details, name, phone and key questions asked.
Ignore casual greetings if they don't add value.

Previous User Summary:
%s

Recent Conversation (To be merged):
%s

New Summary:`

// GeminiClient talks to Gemini for both chat replies and transcript summaries.
type GeminiClient struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	summary *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey, modelName, summaryModelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}

	return &GeminiClient{
		client:  client,
		model:   model,
		summary: client.GenerativeModel(summaryModelName),
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Generate continues a chat seeded with history and returns the model's text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	cs := g.model.StartChat()
	cs.History = toContents(history)

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	return responseText(resp)
}

// Summarize merges the prior summary with older messages into a new one.
func (g *GeminiClient) Summarize(ctx context.Context, prior string, messages []models.ChatMessage) (string, error) {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	resp, err := g.summary.GenerateContent(ctx, genai.Text(fmt.Sprintf(summaryPrompt, prior, sb.String())))
	if err != nil {
		return "", fmt.Errorf("gemini summarize error: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func toContents(history []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("gemini returned an empty reply")
	}
	return sb.String(), nil
}
