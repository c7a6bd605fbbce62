package answer

const (
	SystemMessage = "You are a helpful assistant."

	// ChunkSeparator joins retrieved chunks inside the prompt.
	ChunkSeparator = "\n\n---\n\n"

	GroundingPromptTmpl = `
Answer the user's question based on the document chunks below.
Explain simply and accurately.

Chunks:
{{.Context}}

Question:
{{.Question}}
`
)
