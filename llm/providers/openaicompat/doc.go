// Package openaicompat implements llm.Provider over the OpenAI chat completions
// HTTP protocol without an SDK, for self-hosted and proxy endpoints.
package openaicompat
