package rag

import (
	"fmt"
	"strings"

	"github.com/KaanK026/Harvia/internal/adapter/llm"
	"github.com/KaanK026/Harvia/internal/domain"
)

const systemPrompt = `You are the Harvia sauna assistant. Answer questions about saunas, bathing routines, heaters and wellbeing.
Use the numbered context passages when they are relevant and keep answers concise.
If the context does not contain the answer, say so instead of guessing.`

// BuildMessages assembles the chat prompt: system instructions with retrieved
// context, prior exchanges, then the question.
func BuildMessages(hits []Hit, history []domain.Exchange, question string) []llm.ChatMessage {
	var sys strings.Builder
	sys.WriteString(systemPrompt)
	if len(hits) > 0 {
		sys.WriteString("\n\nContext:\n")
		for i, h := range hits {
			fmt.Fprintf(&sys, "[%d] (%s) %s\n", i+1, h.Source, h.Text)
		}
	}

	msgs := make([]llm.ChatMessage, 0, 2+2*len(history))
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: sys.String()})
	for _, ex := range history {
		msgs = append(msgs,
			llm.ChatMessage{Role: llm.RoleUser, Content: ex.Question},
			llm.ChatMessage{Role: llm.RoleAssistant, Content: ex.Answer},
		)
	}
	return append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: question})
}
