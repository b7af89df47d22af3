package prompts

import "github.com/cloudwego/eino/schema"

// Few-shot transcripts steer tone and tool usage without fine-tuning. Each
// language has its own parallel set so the in-context examples match the
// forced output language. These are package-level immutable data; nothing
// mutates them at runtime.

func navigateCall(id, target string) []schema.ToolCall {
	return []schema.ToolCall{{
		ID:   id,
		Type: "function",
		Function: schema.FunctionCall{
			Name:      "navigate",
			Arguments: `{"target":"` + target + `"}`,
		},
	}}
}

var fewShotEN = []*schema.Message{
	schema.UserMessage("How many open deals do I have?"),
	schema.AssistantMessage("You have 12 open deals worth 48,300 euros in total.", nil),

	schema.UserMessage("Open the pipeline"),
	schema.AssistantMessage("", navigateCall("fs-nav-1", "pipeline")),
	schema.ToolMessage(
		`{"ok":true,"client_action":{"type":"navigate","route":"/pipeline","target":"pipeline"}}`,
		"fs-nav-1",
		schema.WithToolName("navigate"),
	),
	schema.AssistantMessage("Opening the pipeline.", nil),
}

var fewShotES = []*schema.Message{
	schema.UserMessage("¿Cuántas oportunidades abiertas tengo?"),
	schema.AssistantMessage("Tienes 12 oportunidades abiertas por un total de 48.300 euros.", nil),

	schema.UserMessage("Abre el pipeline"),
	schema.AssistantMessage("", navigateCall("fs-nav-1", "pipeline")),
	schema.ToolMessage(
		`{"ok":true,"client_action":{"type":"navigate","route":"/pipeline","target":"pipeline"}}`,
		"fs-nav-1",
		schema.WithToolName("navigate"),
	),
	schema.AssistantMessage("Abriendo el pipeline.", nil),
}
