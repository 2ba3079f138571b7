package memory

import "fmt"

const memorySectionTemplate = `<user_memory>
%s
</user_memory>

<project_memory>
%s
</project_memory>`

const managementInstructionsTemplate = `## Long-term Memory

Your long-term memory is stored in files on disk and persists across sessions.

User memory: %s
Project memory: %s

Check both at the start of a session and before answering questions that
depend on past preferences or project conventions. Update user memory
immediately when the user states a preference, gives feedback on your work,
or explicitly asks you to remember something.`

// ComposeSystemPrompt builds the full system prompt for one model call:
// the loaded memory section, the assistant's base system prompt, then the
// memory-management instructions naming the on-disk paths.
func (l *Loader) ComposeSystemPrompt(baseSystemPrompt string, content Content) string {
	userMemory := content.UserMemory
	if userMemory == "" {
		userMemory = "(no user agent.md)"
	}
	projectMemory := content.ProjectMemory
	if projectMemory == "" {
		projectMemory = "(no project agent.md)"
	}
	memorySection := fmt.Sprintf(memorySectionTemplate, userMemory, projectMemory)

	projectPath := l.ProjectMemoryPath()
	if projectPath == "" {
		projectPath = "none (no project root detected)"
	}
	instructions := fmt.Sprintf(managementInstructionsTemplate, l.UserMemoryPath(), projectPath)

	return memorySection + "\n\n" + baseSystemPrompt + "\n\n" + instructions
}
