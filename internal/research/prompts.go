package research

import (
	"fmt"

	"github.com/fyrsmithlabs/productflow/internal/llm"
)

const gatherSystemPrompt = `You are a market research analyst. Using your knowledge of the company at the given URL, gather customer sentiment findings about it. If you lack specific knowledge of the company, produce realistic findings representative of companies in its apparent market.

Return valid JSON matching this schema:
{
  "companyName": "string (official company name)",
  "description": "string (1-2 sentence company description)",
  "findings": [{
    "source": "string (e.g. G2, Reddit, Twitter, TechCrunch)",
    "sourceType": "review"|"forum"|"social_media"|"news"|"blog"|"support"|"other",
    "sourceUrl": "string (realistic URL for the stated source)",
    "title": "string",
    "content": "string (2-4 sentences)",
    "sentiment": "positive"|"negative"|"neutral",
    "sentimentScore": number (integer from -100 to 100),
    "category": "string (e.g. pricing, support, usability)",
    "tags": ["string"]
  }]
}

Generate 15-25 findings spanning multiple source types and categories. Make sentiment scores consistent with sentiment labels.`

func synthesisSystemPrompt(companyName string) string {
	return fmt.Sprintf(`You are a market research analyst. Synthesize the following customer sentiment findings about %q into an executive report.

Return valid JSON matching this schema:
{
  "summary": "string (3-5 paragraph executive summary)",
  "overallSentiment": "positive"|"negative"|"neutral"|"mixed",
  "keyStrengths": [{"title": "string", "description": "string", "evidenceCount": number}],
  "keyWeaknesses": [{"title": "string", "description": "string", "evidenceCount": number}],
  "recommendations": [{"title": "string", "description": "string", "priority": "critical"|"high"|"medium"|"low", "category": "string"}]
}

Include 3-6 items in each list. Ground every strength, weakness and recommendation in the findings provided.`, companyName)
}

func gatherFormat() *llm.ResponseFormat {
	return &llm.ResponseFormat{
		Name: "research_findings",
		Schema: llm.Object(map[string]*llm.Schema{
			"companyName": llm.String(),
			"description": llm.String(),
			"findings": llm.Array(llm.Object(map[string]*llm.Schema{
				"source":         llm.String(),
				"sourceType":     llm.StringEnum("review", "forum", "social_media", "news", "blog", "support", "other"),
				"sourceUrl":      llm.String(),
				"title":          llm.String(),
				"content":        llm.String(),
				"sentiment":      llm.StringEnum("positive", "negative", "neutral"),
				"sentimentScore": llm.Number(),
				"category":       llm.String(),
				"tags":           llm.Array(llm.String()),
			})),
		}),
	}
}

func synthesisFormat() *llm.ResponseFormat {
	insight := llm.Object(map[string]*llm.Schema{
		"title":         llm.String(),
		"description":   llm.String(),
		"evidenceCount": llm.Number(),
	})

	return &llm.ResponseFormat{
		Name: "research_synthesis",
		Schema: llm.Object(map[string]*llm.Schema{
			"summary":          llm.String(),
			"overallSentiment": llm.StringEnum("positive", "negative", "neutral", "mixed"),
			"keyStrengths":     llm.Array(insight),
			"keyWeaknesses":    llm.Array(insight),
			"recommendations": llm.Array(llm.Object(map[string]*llm.Schema{
				"title":       llm.String(),
				"description": llm.String(),
				"priority":    llm.StringEnum("critical", "high", "medium", "low"),
				"category":    llm.String(),
			})),
		}),
	}
}
