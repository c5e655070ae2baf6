// Package inference serves model completions to agents through a fixed pool
// of workers, one per backend endpoint.
//
// Agents Submit a Prompt on a Channel and await the generated text. The
// Manager polls on a ticker: it forwards finished results to their waiters
// and hands queued prompts to idle workers through a one-slot mailbox. A
// worker whose backend fails, or whose circuit breaker is open, answers with
// NoResponse; backend errors never reach the agent.
//
// Worker lifecycle:
//
//	IDLE -> BUSY (assigned) -> WORKING (backend call) -> DONE -> IDLE (forwarded)
package inference
