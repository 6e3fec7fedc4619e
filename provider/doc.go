// Package provider is the contract shared by everything the bot calls
// out to: the recognition backends and the ffmpeg tools. A
// RequestResponse[I, O] answers one input with one output, and Middleware
// adds logging, tracing, metrics and resilience around it:
//
//	p = provider.Chain(
//	    provider.WithLogging[ocr.Request, *ocr.Annotation](log),
//	    provider.WithTracing[ocr.Request, *ocr.Annotation](),
//	    provider.WithResilience[ocr.Request, *ocr.Annotation](cfg),
//	)(p)
//
// A Registry builds backends by the name given in config.yml.
package provider
