package llm

import (
	"log"
	"time"
)

// ModeMock selects the mock client.
const ModeMock = "MOCK"

// ClientFactory builds a client for one API key.
type ClientFactory func(apiKey string) LLMClient

// NewFactory returns a ClientFactory for the given mode. In MOCK mode every
// key gets a MockClient; otherwise a real Client is built per key.
func NewFactory(mode, baseURL string, timeout time.Duration) ClientFactory {
	if mode == ModeMock {
		log.Println("LLM_MODE=MOCK detected, using mock LLM client")
		return func(string) LLMClient { return NewMockClient() }
	}
	return func(apiKey string) LLMClient {
		return NewClient(baseURL, apiKey, timeout)
	}
}
