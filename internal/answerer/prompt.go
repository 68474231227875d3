package answerer

import (
	"fmt"
	"strings"

	"github.com/stacklet/kotae/internal/models"
)

// NoContextMarker is embedded in the grounded prompt when no retrieved
// context passes the relevance threshold. The prompt instructs the model to
// say that no stored answer exists before giving a general one; this wording
// is part of the contract, not cosmetics.
const NoContextMarker = "NO RELEVANT DATA AVAILABLE"

const answerPromptTemplate = `You are Kotae, an AI assistant for a Q&A platform. For every question, you first search the platform's existing answers for relevant information.

If an answer is found in the context below, answer the user's question using ONLY that context.
If the context is marked "%s" or contains nothing relevant, honestly say: "The platform does not have a stored answer to this question yet. Here is a general answer:" and then provide your best response.

--- CONTEXT START ---
%s
--- CONTEXT END ---

User's Question:
%s

Your Answer:
`

// BuildAnswerPrompt renders the grounded prompt for the open-question mode.
// Contexts are embedded as (question title, answer content) pairs in the
// order given; an empty slice yields the explicit no-data marker.
func BuildAnswerPrompt(contexts []models.RetrievedContext, question string) string {
	contextText := NoContextMarker
	if len(contexts) > 0 {
		pairs := make([]string, len(contexts))
		for i, c := range contexts {
			pairs[i] = fmt.Sprintf("Q: %s\nA: %s", c.ParentTitle, c.Content)
		}
		contextText = strings.Join(pairs, "\n\n")
	}
	return fmt.Sprintf(answerPromptTemplate, NoContextMarker, contextText, question)
}

const draftPromptTemplate = `You are an expert contributor on a Q&A platform. Draft a high-quality answer to the question below.

Write the answer in Markdown:
- start with a one-paragraph summary of the approach,
- then give numbered step-by-step instructions,
- use fenced code blocks for any code or commands,
- end with common pitfalls, if any.

Question Title:
%s

Question Description:
%s

Your Draft Answer:
`

// BuildDraftPrompt renders the structured-draft prompt for a stored question.
func BuildDraftPrompt(question *models.Question) string {
	return fmt.Sprintf(draftPromptTemplate, question.Title, question.Description)
}
