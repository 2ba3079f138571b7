package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northfold/agentrelay/pkg/memory"
)

func TestComposeSystemPrompt_OrdersSectionsAndFillsDefaults(t *testing.T) {
	l := memory.NewLoader(memory.Config{DataRoot: "/data", MultiTenant: true}, "u1", "asst")
	prompt := l.ComposeSystemPrompt("you are a helpful assistant", memory.Content{})

	memIdx := indexOf(prompt, "<user_memory>")
	baseIdx := indexOf(prompt, "you are a helpful assistant")
	mgmtIdx := indexOf(prompt, "## Long-term Memory")

	assert.True(t, memIdx < baseIdx)
	assert.True(t, baseIdx < mgmtIdx)
	assert.Contains(t, prompt, "(no user agent.md)")
	assert.Contains(t, prompt, "(no project agent.md)")
	assert.Contains(t, prompt, "none (no project root detected)")
}

func TestComposeSystemPrompt_IncludesLoadedContent(t *testing.T) {
	l := memory.NewLoader(memory.Config{DataRoot: "/data", MultiTenant: true, ProjectRoot: "/proj", AppName: "agentrelay"}, "u1", "asst")
	prompt := l.ComposeSystemPrompt("base", memory.Content{UserMemory: "prefers tabs", ProjectMemory: "uses gofmt"})

	assert.Contains(t, prompt, "prefers tabs")
	assert.Contains(t, prompt, "uses gofmt")
	assert.Contains(t, prompt, "/proj/.agentrelay/agent.md")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
