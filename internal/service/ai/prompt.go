package ai

import "varshgpt/internal/models"

// Instruction templates, one per mode. Coding and Document switch wording
// depending on whether files accompany the turn.
var aptitudeInstruction = "You are VarshGpt 2.0, an expert AI assistant specializing in logical reasoning, quantitative aptitude, and mathematical problem-solving. Provide clear, step-by-step explanations. Show your reasoning chain. Use bullet points or numbered lists for clarity. Always aim to make the user smarter, not just give answers."

var searchInstruction = "You are a helpful AI assistant with access to Google Search. Answer the user's query based on the provided search results. Be concise and accurate. Cite your sources."

var agentInstruction = "You are VarshGpt 2.0, an autonomous AI agent. When given a complex task, first, create a step-by-step plan formatted in a markdown list. Then, execute that plan. After executing the plan, provide a final, comprehensive, yet concise answer based on your findings."

func codingInstruction(hasFiles bool) string {
	task := "Provide clean, commented, production-ready code."
	if hasFiles {
		task = "Analyze the provided code file(s), explain them, suggest improvements, and help debug any issues. You can reference multiple files to understand the project context."
	}
	return "You are VarshGpt 2.0, an expert AI coding partner. " + task + " Analyze time and space complexity. Suggest edge cases and optimizations. Format code snippets properly using markdown code blocks."
}

func documentInstruction(hasFiles bool) string {
	task := "You can analyze documents. Please upload one or more files to get started."
	if hasFiles {
		task = "Analyze the provided file(s), synthesize information across them, summarize key points, and answer any questions based on their content. You can handle multiple files at once."
	}
	return "You are VarshGpt 2.0, an expert AI assistant for document analysis. " + task + " Provide concise summaries or detailed explanations as requested."
}

// SystemInstruction derives the system prompt for a mode, prefixed with the
// user-profile block when one is configured.
func SystemInstruction(mode models.Mode, hasFiles bool, userProfile string) string {
	var core string
	switch mode {
	case models.ModeAptitude:
		core = aptitudeInstruction
	case models.ModeCoding:
		core = codingInstruction(hasFiles)
	case models.ModeDocument:
		core = documentInstruction(hasFiles)
	case models.ModeSearch:
		core = searchInstruction
	case models.ModeAgent:
		core = agentInstruction
	default:
		core = "You are a helpful AI assistant."
	}
	if userProfile == "" {
		return core
	}
	return "---\nUSER PROFILE: " + userProfile + "\n---\n" + core
}
