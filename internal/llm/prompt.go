package llm

// extractionInstruction describes the JSON schema the extraction service must
// return for one page. The category enum is the closed set from
// domain.Categories; choices run A through E to cover five-option papers.
const extractionInstruction = `You are extracting math exam questions from ONE PAGE.
Return ONLY JSON with this schema:
{ "questions": [
  {
    "numberLabel": "string",
    "stem": "string",
    "choices": {"A":"...","B":"...","C":"...","D":"...","E":"..."} | null,
    "category": "Algebra|Trigonometry|Geometry|Vectors|Probability|Calculus|Sequences|Functions|Set Theory|Other",
    "confidence": 0.0,
    "needsReview": true|false,
    "reviewReason": "string or null",
    "hasFigure": true|false
  }
] }
Rules:
- If the page is blurry / unreadable, set needsReview=true and lower confidence.
- Ignore solutions/explanations if present.
- Keep math expressions readable in plain text (use standard symbols).`
