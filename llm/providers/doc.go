// Package providers holds helpers shared by the llm.Provider implementations:
// HTTP error mapping and the OpenAI-compatible wire types.
package providers
