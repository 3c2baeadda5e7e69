package constant

// Prompt templates for the diary chatbot. The therapist prompt asks for a
// short, directive, label-free reply; the summary prompt asks for a short
// second-person summary of the user's own notes.

const TherapistPromptPrefix = "You are my personal diary, and my mood is "

const TherapistPromptInstruction = " so act as an therapist,give some tips and console or give suggessions in short like 1-2 lines max for whatever i write without any extra thing like sure,fine,okay etc.  "

const SummaryPromptPrefix = "See now i will provide you a list of my notes that i wrote, you have to give me a short summary and instead of author or writer use you."

// BuildTherapistPrompt embeds the mood and the raw user input into the
// fixed instruction template.
func BuildTherapistPrompt(mood, userInput string) string {
	return TherapistPromptPrefix + mood + TherapistPromptInstruction + userInput
}

// BuildSummaryPrompt wraps an already concatenated chat history. The
// history is the user inputs joined with no separator, in chat order.
func BuildSummaryPrompt(chatHistory string) string {
	return SummaryPromptPrefix + chatHistory
}
