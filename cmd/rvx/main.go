// RVX Relay is an LLM-backed explanation service for crypto and
// finance news.
//
// It exposes a small HTTP API that answers user questions through an
// OpenAI-compatible provider, with a bounded response cache, per-user
// sliding-window rate limiting, conversation context, and usage
// accounting.
//
// Usage:
//
//	# Start server with default configuration
//	rvx run
//
//	# Start with custom configuration file
//	rvx run --config /etc/rvx/config.yaml
//
//	# Validate configuration without starting
//	rvx validate --config /etc/rvx/config.yaml
//
//	# Show version information
//	rvx version
package main

func main() {
	Execute()
}
