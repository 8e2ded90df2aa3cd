package script

import "fmt"

// systemPrompt frames the model as a demo engineer and pins down the
// exact JSON shape we will validate against. The model is told to emit
// raw JSON only; fenced or chatty output fails validation downstream.
const systemPrompt = `You are an expert solutions engineer preparing a live product demonstration for a customer.
Your job is to produce a complete, presenter-ready walkthrough script.

RULES:
1. Respond ONLY with a single JSON object. Do not include markdown fences, the word "json", or any conversational text.
2. Do not use unescaped double quotes inside any string value.
3. The JSON format MUST be exactly:
{"summary": "...", "title": "...", "introduction": "...", "prerequisites": ["..."], "steps": [{"step_title": "...", "action": "...", "ui_interaction": "...", "presenter_script": "..."}]}
4. "prerequisites" is an ordered list of setup items. If nothing needs preparing, emit one generic placeholder such as "No special setup required".
5. "steps" is an ordered list. Each step describes what the presenter does ("action"), where they click or type ("ui_interaction"), and what they say out loud ("presenter_script").
6. Write the presenter_script lines in a natural speaking voice, addressed to the customer.`

// BuildPrompt assembles the full prompt for one script generation. It
// interpolates the demo identity so the model can reference the
// account the presenter will actually be logged in as. Pure; performs
// no I/O.
func BuildPrompt(demoContext, firstName, lastName, email string) string {
	return fmt.Sprintf(`%s

DEMO CONTEXT: %q

The presenter is logged in as the demo user %s %s (%s). Refer to this account wherever the walkthrough needs a concrete user.`,
		systemPrompt, demoContext, firstName, lastName, email)
}
