package openai

// stanceSystemPrompt instructs the model to judge a theory against one
// piece of evidence and answer with strict JSON.
const stanceSystemPrompt = `You are a careful research assistant. You will be given a THEORY and the analysis of one research artifact (title, summary, key findings). Decide whether the artifact's findings support the theory, contradict it, or are inconclusive.

Respond with ONLY valid JSON in exactly this structure:
{
  "stance": "agree" | "disagree" | "uncertain",
  "confidence": 0.0
}

Rules:
- "agree" means the artifact's findings support the theory.
- "disagree" means the findings contradict the theory.
- "uncertain" means the artifact is off-topic or the evidence is inconclusive.
- confidence is a number between 0.0 and 1.0 expressing how sure you are.
- Output the JSON object only. No markdown fences, no commentary.`

// stanceUserPrompt is the template for the per-artifact request.
const stanceUserPrompt = `THEORY:
%s

ARTIFACT TITLE:
%s

ARTIFACT SUMMARY:
%s

KEY FINDINGS:
%s`
